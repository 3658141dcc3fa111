package config

// Config is the runtime configuration shared by both commands.
//
// Sources, lowest precedence first:
//   - Default()
//   - config file (JSON or YAML; unknown keys are rejected)
//   - PUSHQUEUE_* environment variables (optionally seeded from a dotenv file)
//   - command-line flags
//
// Durations are Go duration strings (e.g. "500ms", "10s").
type Config struct {
	// Debug logs message bodies and full credentials.
	Debug bool `json:"debug"`

	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Transport TransportConfig `json:"transport"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// LoggingConfig selects the log sinks and level.
type LoggingConfig struct {
	Level   string      `json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	// Journal mirrors logs to the systemd journal.
	Journal bool `json:"journal"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path" validate:"required_if=Enabled true"`
}

// StorageConfig tunes the SQLite queue. The queue file itself is a
// positional argument of both commands.
type StorageConfig struct {
	// BusyTimeout bounds the wait for another process's write lock.
	BusyTimeout string `json:"busy_timeout,omitempty" split_words:"true"`
	// OpTimeout bounds one whole store operation.
	OpTimeout string `json:"op_timeout,omitempty" split_words:"true"`
}

// TransportConfig selects and tunes the push transport.
//
// Drivers:
//   - "pushover": api key = application token, user key = user/group key
//   - "telegram": api key = bot token, user key = chat id[:thread id] or @channel
//   - "console": log only
type TransportConfig struct {
	Driver   string `json:"driver" validate:"oneof=pushover telegram console"`
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	Timeout  string `json:"timeout,omitempty"`
	// RatePerSec paces sends within one flush. 0 disables pacing.
	RatePerSec float64 `json:"rate_per_sec" split_words:"true" validate:"gte=0"`
	// BreakerFailures trips the pushover circuit breaker after this many
	// consecutive platform failures. -1 disables the breaker.
	BreakerFailures int    `json:"breaker_failures" split_words:"true" validate:"gte=-1"`
	UserAgent       string `json:"user_agent,omitempty" split_words:"true"`
}

// MetricsConfig controls the node_exporter textfile export.
type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path written after each
	// flush. Empty disables metrics.
	Textfile string `json:"textfile,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Storage: StorageConfig{
			BusyTimeout: "5s",
		},
		Transport: TransportConfig{
			Driver:          "pushover",
			Timeout:         "10s",
			RatePerSec:      2,
			BreakerFailures: 3,
		},
	}
}
