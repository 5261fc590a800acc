package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telex/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLogDirectory_CreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")
	result := CheckLogDirectory("logs", dir)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created: %v", err)
	}
}

func TestCheckSMTP_Reachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	result := CheckSMTP(context.Background(), "127.0.0.1", port)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckSMTP_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	result := CheckSMTP(context.Background(), "127.0.0.1", port)
	if result.Passed {
		t.Fatal("expected failure for closed port")
	}
}

func TestCheckSMTP_MissingHost(t *testing.T) {
	result := CheckSMTP(context.Background(), " ", 25)
	if result.Passed || result.Detail != "missing host" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckMailSettings(t *testing.T) {
	tests := []struct {
		name     string
		port     int
		useTLS   bool
		username string
		password string
		passed   bool
		contains string
	}{
		{"anonymous plain", 25, false, "", "", true, "plain text, no authentication"},
		{"starttls auth", 587, true, "telex", "secret", true, "STARTTLS required, authenticated as telex"},
		{"implicit tls", 465, false, "telex", "secret", true, "implicit TLS"},
		{"missing password", 587, true, "telex", "", false, "TELEX_SMTP_PASSWORD"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.SMTP.Port = tc.port
			cfg.SMTP.UseTLS = tc.useTLS
			cfg.SMTP.Username = tc.username
			cfg.SMTP.Password = tc.password
			result := CheckMailSettings(cfg)
			if result.Passed != tc.passed {
				t.Fatalf("expected passed=%v, got %+v", tc.passed, result)
			}
			if !strings.Contains(result.Detail, tc.contains) {
				t.Fatalf("expected %q in %q", tc.contains, result.Detail)
			}
		})
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsEachCheck(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	cfg := testsupport.NewConfig(t)
	cfg.SMTP.Port = ln.Addr().(*net.TCPAddr).Port

	results := RunAll(context.Background(), cfg)
	want := []string{"Storage directory", "Log directory", "Journal", "Mail settings", "SMTP server"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for i, name := range want {
		if results[i].Name != name {
			t.Fatalf("result %d: expected %q, got %q", i, name, results[i].Name)
		}
		if !results[i].Passed {
			t.Errorf("check %q failed: %s", results[i].Name, results[i].Detail)
		}
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected no failures, got %+v", failed)
	}
}

func TestRunAll_SkipsJournalWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())
	cfg.Paths.StorageDir = filepath.Join(t.TempDir(), "missing")

	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "Journal" {
			t.Fatal("journal check should be skipped when disabled")
		}
	}
	failed := Failed(results)
	if len(failed) == 0 || failed[0].Name != "Storage directory" {
		t.Fatalf("expected storage directory failure first, got %+v", failed)
	}
}
