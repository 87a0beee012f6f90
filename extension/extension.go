// Package extension provides the Forge extension adapter for tab.
//
// It implements the forge.Extension interface to integrate the table order
// ledger into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tab" or "tab" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tab"
	"github.com/xraph/tab/store"
	"github.com/xraph/tab/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tab"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Restaurant table order and bill ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts tab as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config  Config
	engine  *tab.Ledger
	store   store.Store
	tabOpts []tab.Option
}

// New creates a new tab Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *tab.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// builds the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	e.engine = e.build()

	return vessel.Provide(fapp.Container(), func() (*tab.Ledger, error) {
		return e.engine, nil
	})
}

// build constructs the ledger from the resolved config, using the memory
// store if none was provided programmatically.
func (e *Extension) build() *tab.Ledger {
	if e.store == nil {
		e.store = memory.New()
	}
	return tab.New(e.store, e.buildTabOpts()...)
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tab: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	defer e.MarkStopped()
	if e.engine != nil {
		return e.engine.Stop()
	}
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tab: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildTabOpts constructs tab.Option values from the resolved config.
// Pass-through options come last so they win over config values.
func (e *Extension) buildTabOpts() []tab.Option {
	opts := make([]tab.Option, 0, len(e.tabOpts)+4)

	opts = append(opts, tab.WithLoadOnStart(!e.config.DisableLoad))
	if e.config.Currency != "" {
		opts = append(opts, tab.WithCurrency(e.config.Currency))
	}
	if e.config.FlushInterval > 0 {
		opts = append(opts, tab.WithFlushInterval(e.config.FlushInterval))
	}
	if e.config.OutboxSize > 0 {
		opts = append(opts, tab.WithOutboxSize(e.config.OutboxSize))
	}

	return append(opts, e.tabOpts...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tab: configuration is required but not found in config files; " +
				"ensure 'extensions.tab' or 'tab' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tab: configuration loaded",
		forge.F("disable_load", e.config.DisableLoad),
		forge.F("flush_interval", e.config.FlushInterval),
		forge.F("outbox_size", e.config.OutboxSize),
		forge.F("currency", e.config.Currency),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.tab", "tab"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("tab: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("tab: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.OutboxSize == 0 {
		cfg.OutboxSize = defaults.OutboxSize
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableLoad {
		yamlConfig.DisableLoad = true
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.FlushInterval == 0 {
		yamlConfig.FlushInterval = programmaticConfig.FlushInterval
	}
	if yamlConfig.OutboxSize == 0 {
		yamlConfig.OutboxSize = programmaticConfig.OutboxSize
	}
	return mergeWithDefaults(yamlConfig)
}
