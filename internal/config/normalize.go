package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envSMTPUsername = "TELEX_SMTP_USERNAME"
	envSMTPPassword = "TELEX_SMTP_PASSWORD"
)

// loadDotEnv reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeMail()
	c.normalizeSMTP()
	c.normalizeRoutes()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StorageDir, err = expandPath(strings.TrimSpace(c.Paths.StorageDir)); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	c.Watch.Patterns = trimList(c.Watch.Patterns)
}

func (c *Config) normalizeMail() {
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	c.Mail.DefaultRecipient = strings.TrimSpace(c.Mail.DefaultRecipient)
	c.Mail.DefaultSubject = strings.TrimSpace(c.Mail.DefaultSubject)
	if c.Mail.DefaultSubject == "" {
		c.Mail.DefaultSubject = defaultSubject
	}
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	c.SMTP.Username = strings.TrimSpace(c.SMTP.Username)
	if c.SMTP.Username == "" {
		if value, ok := os.LookupEnv(envSMTPUsername); ok {
			c.SMTP.Username = strings.TrimSpace(value)
		}
	}
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv(envSMTPPassword); ok {
			c.SMTP.Password = value
		}
	}
}

func (c *Config) normalizeRoutes() {
	for i := range c.Routes {
		route := &c.Routes[i]
		route.Name = strings.TrimSpace(route.Name)
		route.Keyword = strings.TrimSpace(route.Keyword)
		route.Subject = strings.TrimSpace(route.Subject)
		route.Match = strings.ToLower(strings.TrimSpace(route.Match))
		if route.Match == "" {
			route.Match = MatchRegex
		}
		route.Recipients = trimList(route.Recipients)
		if route.Name == "" {
			route.Name = fmt.Sprintf("route-%d", i+1)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
