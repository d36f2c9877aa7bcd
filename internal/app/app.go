// Package app wires configuration, storage, and services together.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/interfaces"
	"github.com/paperdesk/paperdesk/internal/services/ledger"
	"github.com/paperdesk/paperdesk/internal/services/market"
	"github.com/paperdesk/paperdesk/internal/storage"
)

// App holds all initialized services and storage. It is the shared core used
// by cmd/paperdesk-server and by server tests.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Storage       interfaces.StorageManager
	MarketService interfaces.MarketService
	LedgerService interfaces.LedgerService
	StartupTime   time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(common.ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory for self-contained
	// operation.
	binDir := getBinaryDir()
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Server.StaticDir != "" && !filepath.IsAbs(config.Server.StaticDir) {
		config.Server.StaticDir = filepath.Join(binDir, config.Server.StaticDir)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return NewAppWithConfig(config, logger)
}

// NewAppWithConfig builds an App from an already-loaded config. Tests use this
// to point storage at a temp directory.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	marketService, err := market.NewService(storageManager.Market(), logger, config.Market)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize market service: %w", err)
	}

	ledgerService, err := ledger.NewService(storageManager.Ledger(), marketService, logger, config.Market.StartingCash)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize ledger service: %w", err)
	}

	return &App{
		Config:        config,
		Logger:        logger,
		Storage:       storageManager,
		MarketService: marketService,
		LedgerService: ledgerService,
		StartupTime:   time.Now(),
	}, nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
