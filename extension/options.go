package extension

import (
	"time"

	"github.com/xraph/tab"
	"github.com/xraph/tab/plugin"
	"github.com/xraph/tab/store"
)

// Option configures the tab Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger. Build one with store/postgres,
// store/sqlite or store/mongo from a grove.DB; the default is store/memory.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTabOption passes a tab.Option through to the underlying ledger.
func WithTabOption(opt tab.Option) Option {
	return func(e *Extension) {
		e.tabOpts = append(e.tabOpts, opt)
	}
}

// WithPlugin registers a tab plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.tabOpts = append(e.tabOpts, tab.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableLoad starts the ledger empty instead of loading persisted state.
func WithDisableLoad() Option {
	return func(e *Extension) { e.config.DisableLoad = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithFlushInterval sets how frequently dirty collections are persisted.
func WithFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.FlushInterval = d }
}

// WithOutboxSize sets the capacity of the event outbox.
func WithOutboxSize(n int) Option {
	return func(e *Extension) { e.config.OutboxSize = n }
}

// WithCurrency sets the ledger currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}
