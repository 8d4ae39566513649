package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"iceberg_go/internal/detect"
)

// InstrumentConfig carries the per-instrument feed conversion parameters.
// tick_size is the real price per tick; size_multiplier divides feed-native
// sizes into normalized units.
type InstrumentConfig struct {
	TickSize       decimal.Decimal `yaml:"tick_size"`
	SizeMultiplier float64         `yaml:"size_multiplier"`
}

// Config holds the full application configuration. Loaded from YAML, then
// overridden by environment variables, then validated.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		Coinbase struct {
			WSURL    string   `yaml:"ws_url"`
			Products []string `yaml:"products"`
		} `yaml:"coinbase"`
	} `yaml:"feed"`

	// Instruments maps product ids to conversion parameters. Every feed
	// product needs an entry.
	Instruments map[string]InstrumentConfig `yaml:"instruments"`

	Engine struct {
		InboxSize          int `yaml:"inbox_size"`
		CleanupIntervalSec int `yaml:"cleanup_interval_sec"`
		RecordBuffer       int `yaml:"record_buffer"`
	} `yaml:"engine"`

	// Detection parameters; absent keys keep their defaults.
	Detection detect.Settings `yaml:"detection"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Storage struct {
		Path string `yaml:"path"` // empty = per-user data directory
	} `yaml:"storage"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Detection: detect.DefaultSettings()}
	cfg.Engine.InboxSize = 1024
	cfg.Engine.CleanupIntervalSec = 30
	cfg.Engine.RecordBuffer = 256

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Feed
	ws := c.Feed.Coinbase.WSURL
	if ws == "" || (!hasPrefix(ws, "ws://") && !hasPrefix(ws, "wss://")) {
		return fmt.Errorf("invalid feed WS URL: %s", ws)
	}
	if len(c.Feed.Coinbase.Products) == 0 {
		return fmt.Errorf("at least one feed product is required")
	}

	// Instruments
	for _, product := range c.Feed.Coinbase.Products {
		inst, ok := c.Instruments[product]
		if !ok {
			return fmt.Errorf("product %s has no instrument config", product)
		}
		if !inst.TickSize.IsPositive() {
			return fmt.Errorf("product %s: tick_size must be positive", product)
		}
		if inst.SizeMultiplier < 0 {
			return fmt.Errorf("product %s: size_multiplier must not be negative", product)
		}
	}

	// Engine
	if c.Engine.InboxSize <= 0 {
		return fmt.Errorf("inbox size must be positive")
	}
	if c.Engine.CleanupIntervalSec <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}
	if c.Engine.RecordBuffer <= 0 {
		return fmt.Errorf("record buffer must be positive")
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("ICEBERG_FEED_WS_URL"); url != "" {
		cfg.Feed.Coinbase.WSURL = url
	}
	if path := os.Getenv("ICEBERG_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if level := os.Getenv("ICEBERG_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
