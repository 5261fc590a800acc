package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"telex/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The storage directory is created; delays default to zero so tests run fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StorageDir = filepath.Join(base, "inbox")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Watch.SettleSeconds = 0
	cfgVal.Mail.From = "telex@example.com"
	cfgVal.Mail.DefaultRecipient = "inbox@example.com"
	cfgVal.Mail.CooldownSeconds = 0
	cfgVal.SMTP.Host = "127.0.0.1"
	cfgVal.SMTP.UseTLS = false

	if err := os.MkdirAll(cfgVal.Paths.StorageDir, 0o755); err != nil {
		t.Fatalf("mkdir storage dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRoutes replaces the routing rules on the test config.
func WithRoutes(routes ...config.Route) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Routes = append([]config.Route(nil), routes...)
	}
}

// WithPatterns overrides the watched file-name patterns.
func WithPatterns(patterns ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Patterns = append([]string(nil), patterns...)
	}
}

// WithRecursiveWatch enables watching nested directories.
func WithRecursiveWatch() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Recursive = true
	}
}

// WithJournalDisabled turns off the outcome journal.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageDir)
}
