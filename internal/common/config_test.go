package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()
	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 5001, config.Server.Port)
	assert.Equal(t, "data", config.Storage.Path)
	assert.Equal(t, 3, config.Storage.Versions)
	assert.Equal(t, 10000.0, config.Market.StartingCash)
	assert.Len(t, config.Market.Stocks, 4)
	assert.False(t, config.IsProduction())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paperdesk.toml")
	content := `
environment = "production"

[server]
port = 8080

[market]
starting_cash = 50000.0
seed = 7

[[market.stocks]]
symbol = "ONE"
price = 25.0
mu = 0.001
sigma = 0.01
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.True(t, config.IsProduction())
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 50000.0, config.Market.StartingCash)
	assert.Equal(t, uint64(7), config.Market.Seed)
	require.Len(t, config.Market.Stocks, 1)
	assert.Equal(t, "ONE", config.Market.Stocks[0].Symbol)

	// Untouched sections keep their defaults
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "data", config.Storage.Path)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 5001, config.Server.Port)
	assert.Len(t, config.Market.Stocks, 4)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PAPERDESK_PORT", "9999")
	t.Setenv("PAPERDESK_LOG_LEVEL", "debug")
	t.Setenv("PAPERDESK_STARTING_CASH", "25000")
	t.Setenv("PAPERDESK_MARKET_SEED", "11")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 25000.0, config.Market.StartingCash)
	assert.Equal(t, uint64(11), config.Market.Seed)
}

func TestLoadConfigRejectsNonPositiveStartingCash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paperdesk.toml")
	require.NoError(t, os.WriteFile(path, []byte("[market]\nstarting_cash = -5.0\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
