package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telex/internal/config"
	"telex/internal/services"
)

const minimalConfig = `
[paths]
storage_dir = "%STORAGE%"
log_dir = "%LOGS%"

[mail]
from = "Telex <telex@example.com>"
default_recipient = "inbox@example.com"

[smtp]
host = "smtp.example.com"
`

func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	storage := filepath.Join(dir, "inbox")
	body = strings.ReplaceAll(body, "%STORAGE%", storage)
	body = strings.ReplaceAll(body, "%LOGS%", filepath.Join(dir, "logs"))
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dir
}

func TestLoadAppliesDefaults(t *testing.T) {
	path, dir := writeConfig(t, minimalConfig)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StorageDir != filepath.Join(dir, "inbox") {
		t.Fatalf("unexpected storage dir %q", cfg.Paths.StorageDir)
	}
	if len(cfg.Watch.Patterns) != 1 || cfg.Watch.Patterns[0] != "*.pdf" {
		t.Fatalf("expected default pattern, got %v", cfg.Watch.Patterns)
	}
	if cfg.Watch.Recursive {
		t.Fatal("expected non-recursive watch by default")
	}
	if cfg.SettleDelay().Seconds() != 1 {
		t.Fatalf("expected 1s settle delay, got %s", cfg.SettleDelay())
	}
	if cfg.Cooldown().Seconds() != 10 {
		t.Fatalf("expected 10s cooldown, got %s", cfg.Cooldown())
	}
	if cfg.Mail.DefaultSubject == "" {
		t.Fatal("expected default subject")
	}
	if cfg.SMTP.Port != 587 || !cfg.SMTP.UseTLS {
		t.Fatalf("unexpected smtp defaults: %+v", cfg.SMTP)
	}
	if cfg.Logging.MaxSizeMB != 5 || cfg.Logging.MaxBackups != 2 {
		t.Fatalf("unexpected rotation defaults: %+v", cfg.Logging)
	}
	if len(cfg.Routes) != 0 {
		t.Fatalf("expected no routes, got %d", len(cfg.Routes))
	}
}

func TestLoadPreservesRouteOrder(t *testing.T) {
	body := minimalConfig + `
[[routes]]
name = "zulu"
keyword = "z"
subject = "Z"
recipients = ["z@example.com"]

[[routes]]
keyword = "alpha"
match = "Substring"
subject = "A"
recipients = [" a@example.com ", ""]

[[routes]]
name = "mike"
keyword = "m"
subject = "M"
recipients = ["m@example.com"]
`
	path, _ := writeConfig(t, body)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := []string{"zulu", "route-2", "mike"}
	if len(cfg.Routes) != len(want) {
		t.Fatalf("expected %d routes, got %d", len(want), len(cfg.Routes))
	}
	for i, name := range want {
		if cfg.Routes[i].Name != name {
			t.Fatalf("route %d: expected %q, got %q", i, name, cfg.Routes[i].Name)
		}
	}
	if cfg.Routes[0].Match != config.MatchRegex {
		t.Fatalf("expected regex default, got %q", cfg.Routes[0].Match)
	}
	if cfg.Routes[1].Match != config.MatchSubstring {
		t.Fatalf("expected substring match, got %q", cfg.Routes[1].Match)
	}
	if got := cfg.Routes[1].Recipients; len(got) != 1 || got[0] != "a@example.com" {
		t.Fatalf("expected trimmed recipients, got %v", got)
	}
}

func TestLoadMissingFileIsConfigurationError(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadMalformedFileIsConfigurationError(t *testing.T) {
	path, _ := writeConfig(t, "[paths\nstorage_dir = ")
	_, _, _, err := config.Load(path)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadReadsPasswordFromDotEnv(t *testing.T) {
	t.Setenv("TELEX_SMTP_PASSWORD", "")
	os.Unsetenv("TELEX_SMTP_PASSWORD")
	body := strings.Replace(minimalConfig, `host = "smtp.example.com"`,
		"host = \"smtp.example.com\"\nusername = \"telex\"", 1)
	path, dir := writeConfig(t, body)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEX_SMTP_PASSWORD=s3cret\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SMTP.Password != "s3cret" {
		t.Fatalf("expected password from .env, got %q", cfg.SMTP.Password)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"no patterns", func(c *config.Config) { c.Watch.Patterns = nil }, "watch.patterns"},
		{"bad pattern", func(c *config.Config) { c.Watch.Patterns = []string{"[*.pdf"} }, "watch.patterns"},
		{"path pattern", func(c *config.Config) { c.Watch.Patterns = []string{"sub/*.pdf"} }, "watch.patterns"},
		{"no from", func(c *config.Config) { c.Mail.From = "" }, "mail.from"},
		{"no default recipient", func(c *config.Config) { c.Mail.DefaultRecipient = "" }, "mail.default_recipient"},
		{"no host", func(c *config.Config) { c.SMTP.Host = "" }, "smtp.host"},
		{"bad port", func(c *config.Config) { c.SMTP.Port = 70000 }, "smtp.port"},
		{"bad regex", func(c *config.Config) {
			c.Routes = []config.Route{{Name: "r", Keyword: "(", Match: config.MatchRegex, Subject: "s", Recipients: []string{"x@example.com"}}}
		}, "keyword"},
		{"no recipients", func(c *config.Config) {
			c.Routes = []config.Route{{Name: "r", Keyword: "k", Match: config.MatchRegex, Subject: "s"}}
		}, "recipient"},
		{"duplicate names", func(c *config.Config) {
			r := config.Route{Name: "r", Keyword: "k", Match: config.MatchRegex, Subject: "s", Recipients: []string{"x@example.com"}}
			c.Routes = []config.Route{r, r}
		}, "duplicate"},
		{"unknown match", func(c *config.Config) {
			c.Routes = []config.Route{{Name: "r", Keyword: "k", Match: "glob", Subject: "s", Recipients: []string{"x@example.com"}}}
		}, "unsupported match"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "telex", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if len(cfg.Routes) != 2 {
		t.Fatalf("expected 2 sample routes, got %d", len(cfg.Routes))
	}
	if cfg.Routes[0].Name != "urgent" || cfg.Routes[1].Name != "weather" {
		t.Fatalf("unexpected sample route order: %q, %q", cfg.Routes[0].Name, cfg.Routes[1].Name)
	}
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Paths.StorageDir = "/srv/telex"
	cfg.Paths.LogDir = "/var/log/telex"
	cfg.Mail.From = "telex@example.com"
	cfg.Mail.DefaultRecipient = "inbox@example.com"
	cfg.SMTP.Host = "smtp.example.com"
	return cfg
}
