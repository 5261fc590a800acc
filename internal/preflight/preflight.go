package preflight

import (
	"context"

	"telex/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir),
		CheckLogDirectory("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Journal.Enabled {
		results = append(results, CheckJournal(cfg))
	}

	results = append(results,
		CheckMailSettings(cfg),
		CheckSMTP(ctx, cfg.SMTP.Host, cfg.SMTP.Port),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
