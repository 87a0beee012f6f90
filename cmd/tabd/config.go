package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the daemon configuration, read from TAB_* environment variables
// and an optional .env file.
type Config struct {
	HTTPAddr      string        `mapstructure:"http_addr"`
	BasePath      string        `mapstructure:"base_path"`
	Currency      string        `mapstructure:"currency"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	OutboxSize    int           `mapstructure:"outbox_size"`
	AMQPURL       string        `mapstructure:"amqp_url"`
	AMQPExchange  string        `mapstructure:"amqp_exchange"`
	LogLevel      string        `mapstructure:"log_level"`
}

func loadConfig() (Config, error) {
	_ = godotenv.Load() // load .env if it exists

	v := viper.New()
	v.SetEnvPrefix("tab")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("base_path", "/v1")
	v.SetDefault("currency", "eur")
	v.SetDefault("flush_interval", 2*time.Second)
	v.SetDefault("outbox_size", 1024)
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "tab.events")
	v.SetDefault("log_level", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.FlushInterval <= 0 {
		return Config{}, fmt.Errorf("config: flush_interval must be positive, got %s", cfg.FlushInterval)
	}
	return cfg, nil
}

func (c Config) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
