package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"telex/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	LogDir     string `toml:"log_dir"`
}

// Watch controls which files in the storage directory are picked up.
type Watch struct {
	Patterns      []string `toml:"patterns"`
	Recursive     bool     `toml:"recursive"`
	SettleSeconds int      `toml:"settle_seconds"`
}

// Mail contains message composition defaults.
type Mail struct {
	From             string `toml:"from"`
	DefaultSubject   string `toml:"default_subject"`
	DefaultRecipient string `toml:"default_recipient"`
	CooldownSeconds  int    `toml:"cooldown_seconds"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// SMTP contains the outgoing mail server endpoint and credentials.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	UseTLS   bool   `toml:"use_tls"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Route maps a keyword pattern to a subject and recipient list.
// Routes are evaluated in the order they appear in the file.
type Route struct {
	Name       string   `toml:"name"`
	Keyword    string   `toml:"keyword"`
	Match      string   `toml:"match"`
	Subject    string   `toml:"subject"`
	Recipients []string `toml:"recipients"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	ExtractionFailures bool   `toml:"extraction_failures"`
	DeliveryFailures   bool   `toml:"delivery_failures"`
}

// Journal controls the outcome history database.
type Journal struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config encapsulates all configuration values for telex.
//
// Configuration sections by subsystem:
//   - Paths: watched storage directory and log directory
//   - Watch: filename patterns, recursion, settle delay
//   - Mail: sender identity, default subject/recipient, send cooldown
//   - SMTP: mail server endpoint and credentials
//   - Routes: ordered keyword routing rules
//   - Notifications: ntfy push on failures
//   - Journal: outcome history retention
//   - Logging: log format, level, and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Mail          Mail          `toml:"mail"`
	SMTP          SMTP          `toml:"smtp"`
	Routes        []Route       `toml:"routes"`
	Notifications Notifications `toml:"notifications"`
	Journal       Journal       `toml:"journal"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. When no path is given the default locations are
// tried. A missing file is an error: there is no usable zero configuration.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, configError("resolve", err)
	}
	if !exists {
		return nil, resolvedPath, false, configError("open",
			fmt.Errorf("config file %s not found (create one with 'telex config init')", resolvedPath))
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		return nil, "", false, configError("open", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, "", false, configError("parse", err)
	}
	if err := loadDotEnv(filepath.Join(filepath.Dir(resolvedPath), ".env")); err != nil {
		return nil, "", false, configError("env", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, configError("normalize", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, configError("validate", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func configError(operation string, err error) error {
	return services.Wrap(services.ErrConfiguration, "config", operation, "", err)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("telex.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory. The storage directory is
// owned by the upstream producer and is never created here.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// SettleDelay is the wait between a create event and enqueueing the file.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watch.SettleSeconds) * time.Second
}

// Cooldown is the pause applied after every successful send.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Mail.CooldownSeconds) * time.Second
}

// SendTimeout bounds a single SMTP conversation.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Mail.TimeoutSeconds) * time.Second
}

// JournalPath returns the location of the outcome history database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.LogDir, "journal.db")
}

// LogPath returns the location of the rotated daemon log.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "telex.log")
}

// LockPath returns the location of the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "telex.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
