package extension

import "time"

// Config holds the tab extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tab" or "tab" keys).
type Config struct {
	// DisableLoad skips loading persisted state on start. Migrations still run.
	DisableLoad bool `json:"disable_load" mapstructure:"disable_load" yaml:"disable_load"`

	// FlushInterval is how often dirty collections are saved to the store
	// (default: 2s).
	FlushInterval time.Duration `json:"flush_interval" mapstructure:"flush_interval" yaml:"flush_interval"`

	// OutboxSize is the capacity of the post-commit event queue (default: 1024).
	OutboxSize int `json:"outbox_size" mapstructure:"outbox_size" yaml:"outbox_size"`

	// Currency is the ISO code every item price is expressed in (default: "eur").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FlushInterval: 2 * time.Second,
		OutboxSize:    1024,
		Currency:      "eur",
	}
}
