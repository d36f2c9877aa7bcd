// Package storage provides flat-file JSON persistence with atomic writes.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/interfaces"
	"github.com/paperdesk/paperdesk/internal/models"
)

const (
	ledgerFile = "portfolio.json"
	marketFile = "market.json"
)

// FileStore provides file-based JSON storage with optional versioning.
// Every write goes to a temp file in the same directory and is renamed into
// place, so a crash mid-write never leaves a torn state file.
type FileStore struct {
	basePath string
	versions int
	logger   *common.Logger
}

// NewFileStore creates a new FileStore and ensures the data directory exists.
func NewFileStore(logger *common.Logger, config *common.StorageConfig) (*FileStore, error) {
	versions := config.Versions
	if versions < 0 {
		versions = 0
	}

	fs := &FileStore{
		basePath: config.Path,
		versions: versions,
		logger:   logger,
	}

	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", fs.basePath, err)
	}

	logger.Debug().Str("path", config.Path).Int("versions", versions).Msg("FileStore opened")
	return fs, nil
}

// readJSON reads and unmarshals a JSON file. Returns os.ErrNotExist-wrapped
// errors untouched so callers can detect first-run.
func (fs *FileStore) readJSON(name string, dest interface{}) error {
	path := filepath.Join(fs.basePath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically.
// If versioned is true and fs.versions > 0, rotates previous versions before
// overwriting. Use versioned=true for user-authored state (the portfolio) and
// versioned=false for derived state (the simulated market).
func (fs *FileStore) writeJSON(name string, data interface{}, versioned bool) error {
	target := filepath.Join(fs.basePath, name)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if versioned && fs.versions > 0 {
		fs.rotateVersions(target)
	}

	// Atomic write: write to temp file in the same directory, then rename
	tmpFile, err := os.CreateTemp(fs.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rotateVersions shifts existing versions up and moves current to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
func (fs *FileStore) rotateVersions(target string) {
	oldest := fmt.Sprintf("%s.v%d", target, fs.versions)
	os.Remove(oldest)

	for i := fs.versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		os.Rename(src, dst) // Ignore errors (file may not exist yet)
	}

	if _, err := os.Stat(target); err == nil {
		v1 := fmt.Sprintf("%s.v1", target)
		os.Rename(target, v1) // Ignore errors
	}
}

// --- Ledger storage ---

type ledgerStore struct {
	fs *FileStore
}

func (s *ledgerStore) LoadLedger(ctx context.Context) (*models.LedgerState, error) {
	var state models.LedgerState
	if err := s.fs.readJSON(ledgerFile, &state); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if state.Holdings == nil {
		state.Holdings = make(map[string]*models.Holding)
	}
	if state.Trades == nil {
		state.Trades = []models.TradeRecord{}
	}
	return &state, nil
}

func (s *ledgerStore) SaveLedger(ctx context.Context, state *models.LedgerState) error {
	if err := s.fs.writeJSON(ledgerFile, state, true); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

// --- Market storage ---

type marketStore struct {
	fs *FileStore
}

func (s *marketStore) LoadMarket(ctx context.Context) (*models.MarketState, error) {
	var state models.MarketState
	if err := s.fs.readJSON(marketFile, &state); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load market: %w", err)
	}
	if state.Stocks == nil {
		state.Stocks = make(map[string]*models.StockState)
	}
	return &state, nil
}

func (s *marketStore) SaveMarket(ctx context.Context, state *models.MarketState) error {
	if err := s.fs.writeJSON(marketFile, state, false); err != nil {
		return fmt.Errorf("failed to save market: %w", err)
	}
	return nil
}

// --- Manager ---

// Manager implements interfaces.StorageManager over a single FileStore.
type Manager struct {
	fs     *FileStore
	ledger *ledgerStore
	market *marketStore
}

// NewStorageManager creates the flat-file storage manager.
func NewStorageManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	fs, err := NewFileStore(logger, &config.Storage)
	if err != nil {
		return nil, err
	}
	return &Manager{
		fs:     fs,
		ledger: &ledgerStore{fs: fs},
		market: &marketStore{fs: fs},
	}, nil
}

// Ledger returns the ledger store.
func (m *Manager) Ledger() interfaces.LedgerStore { return m.ledger }

// Market returns the market store.
func (m *Manager) Market() interfaces.MarketStore { return m.market }

// DataPath returns the base data directory path.
func (m *Manager) DataPath() string { return m.fs.basePath }

// Close releases storage resources. Flat files need no teardown.
func (m *Manager) Close() error { return nil }

var _ interfaces.StorageManager = (*Manager)(nil)
