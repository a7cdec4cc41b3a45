// Package config loads YAML configuration for the command-line tools.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the CLIs.
type Config struct {
	Symbol string `yaml:"symbol" default:"NIFTY50" validate:"required"`

	Alignment struct {
		Frequency   string `yaml:"frequency" default:"WEEKLY" validate:"oneof=DAILY WEEKLY MONTHLY"`
		PEStaleness int    `yaml:"pe_staleness_periods" default:"2" validate:"min=1"`
		PBStaleness int    `yaml:"pb_staleness_periods" default:"2" validate:"min=1"`
	} `yaml:"alignment"`

	Simulation struct {
		BaseAmount          float64 `yaml:"base_amount" default:"10000" validate:"gt=0"`
		TotalCapital        float64 `yaml:"total_capital" default:"1000000" validate:"gt=0"`
		BaselineAnnualYield float64 `yaml:"baseline_annual_yield" default:"0.055" validate:"gte=0"`
		Workers             int     `yaml:"workers" default:"4" validate:"min=1"`
	} `yaml:"simulation"`

	Catalog struct {
		// Path to a preset catalog file; empty means the embedded catalog.
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Storage struct {
		Backend  string `yaml:"backend" default:"memory" validate:"oneof=memory postgres clickhouse"`
		Postgres struct {
			DatabaseURL string `yaml:"database_url"`
		} `yaml:"postgres"`
		ClickHouse struct {
			DSN string `yaml:"dsn"`
		} `yaml:"clickhouse"`
	} `yaml:"storage"`

	MarketData struct {
		HistoryURL string        `yaml:"history_url"`
		QuoteWSURL string        `yaml:"quote_ws_url"`
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"15m"`
	} `yaml:"marketdata"`
}

// Default returns the configuration with all defaults applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse parses YAML configuration bytes, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOL"); v != "" {
		c.Symbol = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.Postgres.DatabaseURL = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouse.DSN = v
	}
	if v := os.Getenv("HISTORY_URL"); v != "" {
		c.MarketData.HistoryURL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Storage.Backend == "postgres" && c.Storage.Postgres.DatabaseURL == "" {
		return fmt.Errorf("storage.postgres.database_url is required for the postgres backend")
	}
	if c.Storage.Backend == "clickhouse" && c.Storage.ClickHouse.DSN == "" {
		return fmt.Errorf("storage.clickhouse.dsn is required for the clickhouse backend")
	}
	return nil
}
