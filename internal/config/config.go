// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"normex/internal/exchange"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Binance     BinanceConfig     `mapstructure:"binance"`
	Hyperliquid HyperliquidConfig `mapstructure:"hyperliquid"`
}

type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogPath     string `mapstructure:"log_path"`
	ListenAddr  string `mapstructure:"listen_addr"`
	JournalPath string `mapstructure:"journal_path"`
}

type EngineConfig struct {
	RuleTTL             time.Duration `mapstructure:"rule_ttl"`
	LeverageReverifyTTL time.Duration `mapstructure:"leverage_reverify_ttl"`
}

type BinanceConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
}

type HyperliquidConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIURL     string `mapstructure:"api_url"`
	PrivateKey string `mapstructure:"private_key"` // hex, already decrypted by the caller
	ChainID    int64  `mapstructure:"chain_id"`
}

// Load reads the YAML file at path and applies defaults and validation.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ListenAddr == "" {
		c.App.ListenAddr = ":8870"
	}
	if c.Engine.RuleTTL <= 0 {
		c.Engine.RuleTTL = time.Hour
	}
	if c.Engine.LeverageReverifyTTL <= 0 {
		c.Engine.LeverageReverifyTTL = 15 * time.Minute
	}
	if c.Hyperliquid.ChainID == 0 {
		c.Hyperliquid.ChainID = 1337
	}
}

func (c *Config) validate() error {
	if !c.Binance.Enabled && !c.Hyperliquid.Enabled {
		return fmt.Errorf("at least one venue must be enabled")
	}
	if c.Binance.Enabled && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
		return fmt.Errorf("binance requires api_key and api_secret")
	}
	if c.Hyperliquid.Enabled && c.Hyperliquid.PrivateKey == "" {
		return fmt.Errorf("hyperliquid requires private_key")
	}
	return nil
}

// EnabledVenues lists the venues this configuration activates.
func (c *Config) EnabledVenues() []exchange.Venue {
	var out []exchange.Venue
	if c.Binance.Enabled {
		out = append(out, exchange.VenueBinance)
	}
	if c.Hyperliquid.Enabled {
		out = append(out, exchange.VenueHyperliquid)
	}
	return out
}
