// Package common provides shared utilities for Paperdesk
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Paperdesk
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Market      MarketConfig  `toml:"market"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	StaticDir string `toml:"static_dir"` // optional frontend directory served at /
}

// StorageConfig holds flat-file storage configuration.
type StorageConfig struct {
	Path     string `toml:"path"`
	Versions int    `toml:"versions"` // rotated backups kept for the portfolio file
}

// MarketConfig holds the simulated market configuration.
type MarketConfig struct {
	StartingCash float64       `toml:"starting_cash"`
	Seed         uint64        `toml:"seed"` // 0 means non-deterministic
	Stocks       []StockConfig `toml:"stocks"`
}

// StockConfig seeds one stock in the simulated market.
type StockConfig struct {
	Symbol string  `toml:"symbol"`
	Price  float64 `toml:"price"`
	Mu     float64 `toml:"mu"`
	Sigma  float64 `toml:"sigma"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultStocks is the default simulated universe, used when the config file
// does not list any stocks.
func DefaultStocks() []StockConfig {
	return []StockConfig{
		{Symbol: "ABC", Price: 100.0, Mu: 0.0006, Sigma: 0.02},
		{Symbol: "XYZ", Price: 50.0, Mu: 0.0003, Sigma: 0.03},
		{Symbol: "FOO", Price: 200.0, Mu: 0.0008, Sigma: 0.015},
		{Symbol: "BAR", Price: 10.0, Mu: 0.0001, Sigma: 0.05},
	}
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5001,
		},
		Storage: StorageConfig{
			Path:     "data",
			Versions: 3,
		},
		Market: MarketConfig{
			StartingCash: 10000.0,
			Stocks:       DefaultStocks(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if config.Market.StartingCash <= 0 {
		return nil, fmt.Errorf("starting cash must be positive, got %v", config.Market.StartingCash)
	}
	if len(config.Market.Stocks) == 0 {
		config.Market.Stocks = DefaultStocks()
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PAPERDESK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PAPERDESK_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PAPERDESK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PAPERDESK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("PAPERDESK_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if dir := os.Getenv("PAPERDESK_STATIC_DIR"); dir != "" {
		config.Server.StaticDir = dir
	}

	if cash := os.Getenv("PAPERDESK_STARTING_CASH"); cash != "" {
		if v, err := strconv.ParseFloat(cash, 64); err == nil && v > 0 {
			config.Market.StartingCash = v
		}
	}

	if seed := os.Getenv("PAPERDESK_MARKET_SEED"); seed != "" {
		if v, err := strconv.ParseUint(seed, 10, 64); err == nil {
			config.Market.Seed = v
		}
	}
}

// ResolveConfigPath returns the config file path to load. Priority:
// explicit argument, PAPERDESK_CONFIG, paperdesk.toml next to the binary,
// then config/paperdesk.toml for development checkouts.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("PAPERDESK_CONFIG"); env != "" {
		return env
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "paperdesk.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "config/paperdesk.toml"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
