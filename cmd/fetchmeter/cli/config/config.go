package config

import "time"

// Config represents the fetchmeter CLI configuration.
// Use mapstructure tags for Viper unmarshaling.
type Config struct {
	// Progress selects the progress display mode: auto, tty, or plain.
	Progress string `mapstructure:"progress"`

	// Timeout aborts a command after this duration. Zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`

	// Trace is a file path to write operation traces to.
	Trace string `mapstructure:"trace"`

	// UserAgent overrides the User-Agent sent to remotes.
	UserAgent string `mapstructure:"user-agent"`
}
