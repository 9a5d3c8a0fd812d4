// Package config loads engine configuration from config.yaml and the
// QUOTESTREAM_* environment, with sane defaults for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderMock     = "mock"
	ProviderExternal = "external"
)

// DefaultSymbols is the symbol set every new session starts with and the
// universe used for snapshot queries with an empty symbol list.
var DefaultSymbols = []string{"AAPL", "GOOGL", "TSLA", "MSFT", "NVDA", "AMZN"}

// Config holds the full engine configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Quotes QuotesConfig `mapstructure:"quotes"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type QuotesConfig struct {
	Provider       string      `mapstructure:"provider"`
	Alpha          AlphaConfig `mapstructure:"alpha"`
	TickIntervalMs int         `mapstructure:"tick_interval_ms"`
	Deterministic  bool        `mapstructure:"deterministic"`
	DefaultSymbols []string    `mapstructure:"default_symbols"`
}

type AlphaConfig struct {
	APIKey         string `mapstructure:"api_key"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
}

// TickInterval returns the broadcast period.
func (q QuotesConfig) TickInterval() time.Duration {
	return time.Duration(q.TickIntervalMs) * time.Millisecond
}

// PollInterval returns the minimum time between external fetches per symbol.
func (a AlphaConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalMs) * time.Millisecond
}

// Load reads config.yaml if present, then applies environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("quotes.provider", ProviderMock)
	v.SetDefault("quotes.alpha.api_key", "")
	v.SetDefault("quotes.alpha.poll_interval_ms", 15000)
	v.SetDefault("quotes.tick_interval_ms", 1000)
	v.SetDefault("quotes.deterministic", false)
	v.SetDefault("quotes.default_symbols", DefaultSymbols)

	v.SetEnvPrefix("QUOTESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Quotes.Provider != ProviderMock && cfg.Quotes.Provider != ProviderExternal {
		return nil, fmt.Errorf("unknown quotes provider %q", cfg.Quotes.Provider)
	}
	if len(cfg.Quotes.DefaultSymbols) == 0 {
		cfg.Quotes.DefaultSymbols = DefaultSymbols
	}

	return &cfg, nil
}
