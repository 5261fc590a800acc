package preflight

import (
	"fmt"
	"strings"

	"telex/internal/config"
)

// CheckMailSettings summarizes the configured transport security and
// authentication without contacting the server.
func CheckMailSettings(cfg *config.Config) Result {
	const name = "Mail settings"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}

	security := "plain text"
	switch {
	case cfg.SMTP.Port == 465:
		security = "implicit TLS"
	case cfg.SMTP.UseTLS:
		security = "STARTTLS required"
	}

	username := strings.TrimSpace(cfg.SMTP.Username)
	if username == "" {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s, no authentication", security)}
	}
	if cfg.SMTP.Password == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s, user %s but no password (set TELEX_SMTP_PASSWORD)", security, username)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s, authenticated as %s", security, username)}
}
