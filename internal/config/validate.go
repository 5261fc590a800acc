package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validateRoutes(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if len(c.Watch.Patterns) == 0 {
		return errors.New("watch.patterns must contain at least one pattern")
	}
	for _, pattern := range c.Watch.Patterns {
		if err := ValidatePattern(pattern); err != nil {
			return fmt.Errorf("watch.patterns: %w", err)
		}
	}
	if c.Watch.SettleSeconds < 0 {
		return errors.New("watch.settle_seconds must not be negative")
	}
	return nil
}

// ValidatePattern reports whether pattern is a usable file-name glob.
func ValidatePattern(pattern string) error {
	if strings.ContainsAny(pattern, `/\`) {
		return fmt.Errorf("pattern %q must match a file name, not a path", pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.From == "" {
		return errors.New("mail.from must be set")
	}
	if c.Mail.DefaultRecipient == "" {
		return errors.New("mail.default_recipient must be set")
	}
	if c.Mail.CooldownSeconds < 0 {
		return errors.New("mail.cooldown_seconds must not be negative")
	}
	if c.Mail.TimeoutSeconds <= 0 {
		return errors.New("mail.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Host == "" {
		return errors.New("smtp.host must be set")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d is out of range", c.SMTP.Port)
	}
	if c.SMTP.Password != "" && c.SMTP.Username == "" {
		return errors.New("smtp.username must be set when a password is configured")
	}
	return nil
}

func (c *Config) validateRoutes() error {
	seen := make(map[string]struct{}, len(c.Routes))
	for i, route := range c.Routes {
		label := fmt.Sprintf("routes[%d] (%s)", i, route.Name)
		if _, dup := seen[route.Name]; dup {
			return fmt.Errorf("%s: duplicate route name", label)
		}
		seen[route.Name] = struct{}{}
		if route.Keyword == "" {
			return fmt.Errorf("%s: keyword must be set", label)
		}
		if route.Subject == "" {
			return fmt.Errorf("%s: subject must be set", label)
		}
		if len(route.Recipients) == 0 {
			return fmt.Errorf("%s: at least one recipient is required", label)
		}
		switch route.Match {
		case MatchRegex:
			if _, err := regexp.Compile("(?i)" + route.Keyword); err != nil {
				return fmt.Errorf("%s: keyword: %w", label, err)
			}
		case MatchSubstring:
		default:
			return fmt.Errorf("%s: unsupported match %q (use %q or %q)", label, route.Match, MatchRegex, MatchSubstring)
		}
	}
	return nil
}

func (c *Config) validateJournal() error {
	if c.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
