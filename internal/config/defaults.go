package config

const (
	defaultConfigPath         = "~/.config/telex/config.toml"
	defaultStorageDir         = "~/telex/inbox"
	defaultLogDir             = "~/.local/share/telex/logs"
	defaultPattern            = "*.pdf"
	defaultSettleSeconds      = 1
	defaultSubject            = "Телеграмма"
	defaultCooldownSeconds    = 10
	defaultSendTimeoutSeconds = 30
	defaultSMTPPort           = 587
	defaultNotifyTimeout      = 10
	defaultJournalRetention   = 90
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 5
	defaultLogMaxBackups      = 2

	// MatchRegex treats a route keyword as a case-insensitive regular expression.
	MatchRegex = "regex"
	// MatchSubstring treats a route keyword as a case-folded literal substring.
	MatchSubstring = "substring"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
		},
		Watch: Watch{
			Patterns:      []string{defaultPattern},
			SettleSeconds: defaultSettleSeconds,
		},
		Mail: Mail{
			DefaultSubject:  defaultSubject,
			CooldownSeconds: defaultCooldownSeconds,
			TimeoutSeconds:  defaultSendTimeoutSeconds,
		},
		SMTP: SMTP{
			Port:   defaultSMTPPort,
			UseTLS: true,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			ExtractionFailures: true,
			DeliveryFailures:   true,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetention,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
