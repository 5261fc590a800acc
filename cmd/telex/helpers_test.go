package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telex/internal/config"
	"telex/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig renders cfg as TOML next to its temp directories and
// returns the file path.
func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nstorage_dir = %q\nlog_dir = %q\n\n", cfg.Paths.StorageDir, cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[watch]\npatterns = [%s]\nsettle_seconds = %d\n\n", quoteList(cfg.Watch.Patterns), cfg.Watch.SettleSeconds)
	fmt.Fprintf(&b, "[mail]\nfrom = %q\ndefault_recipient = %q\ncooldown_seconds = %d\n\n",
		cfg.Mail.From, cfg.Mail.DefaultRecipient, cfg.Mail.CooldownSeconds)
	fmt.Fprintf(&b, "[smtp]\nhost = %q\nport = %d\nuse_tls = %t\n\n", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.UseTLS)
	for _, route := range cfg.Routes {
		fmt.Fprintf(&b, "[[routes]]\nname = %q\nkeyword = %q\nmatch = %q\nsubject = %q\nrecipients = [%s]\n\n",
			route.Name, route.Keyword, route.Match, route.Subject, quoteList(route.Recipients))
	}
	fmt.Fprintf(&b, "[notifications]\nntfy_topic = %q\n\n", cfg.Notifications.NtfyTopic)
	fmt.Fprintf(&b, "[journal]\nenabled = %t\n", cfg.Journal.Enabled)

	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func quoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return strings.Join(quoted, ", ")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
