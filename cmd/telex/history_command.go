package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"telex/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var outcomeFlags []string
	var itemID string
	var showSummary bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline outcomes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled (set [journal] enabled = true)")
			}

			outcomes, err := parseOutcomeFlags(outcomeFlags)
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			var entries []journal.Entry
			if strings.TrimSpace(itemID) != "" {
				entries, err = store.ForItem(cmd.Context(), strings.TrimSpace(itemID))
			} else {
				entries, err = store.Recent(cmd.Context(), limit, outcomes...)
			}
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries")
			} else {
				fmt.Fprintln(out, renderHistoryTable(entries))
			}

			if showSummary {
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return fmt.Errorf("summarize journal: %w", err)
				}
				fmt.Fprintln(out, formatSummary(summary))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().StringSliceVar(&outcomeFlags, "outcome", nil, "Only show these outcomes (repeatable)")
	cmd.Flags().StringVar(&itemID, "item", "", "Show every entry for one document ID")
	cmd.Flags().BoolVar(&showSummary, "summary", false, "Print outcome totals after the table")
	return cmd
}

func parseOutcomeFlags(values []string) ([]journal.Outcome, error) {
	outcomes := make([]journal.Outcome, 0, len(values))
	for _, value := range values {
		outcome, ok := journal.ParseOutcome(value)
		if !ok {
			known := make([]string, 0, len(journal.Outcomes()))
			for _, o := range journal.Outcomes() {
				known = append(known, string(o))
			}
			return nil, fmt.Errorf("unknown outcome %q (valid: %s)", value, strings.Join(known, ", "))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func renderHistoryTable(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.Subject
		if entry.Outcome.IsFailure() {
			detail = entry.ErrorMessage
		}
		rows = append(rows, []string{
			entry.CreatedAt.Local().Format(time.DateTime),
			shortItemID(entry.ItemID),
			string(entry.Outcome),
			entry.Route,
			strings.Join(entry.Recipients, ", "),
			detail,
			entry.SourcePath,
		})
	}
	return renderTableWithOptions(
		[]string{"Time", "Doc", "Outcome", "Route", "Recipients", "Detail", "Source"},
		rows,
		tableOptions{maxWidths: map[int]int{4: historyCellWidth, 5: historyCellWidth, 6: historyCellWidth}},
	)
}

func formatSummary(summary journal.Summary) string {
	keys := make([]string, 0, len(summary.ByStatus))
	for outcome := range summary.ByStatus {
		keys = append(keys, string(outcome))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, summary.ByStatus[journal.Outcome(key)]))
	}
	return fmt.Sprintf("Total: %d (failures: %d) %s", summary.Total, summary.Failures, strings.Join(parts, " "))
}

func shortItemID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}
