// Package interfaces defines service contracts for Paperdesk
package interfaces

import (
	"context"

	"github.com/paperdesk/paperdesk/internal/models"
)

// LedgerStore persists the combined ledger + history state as one unit.
type LedgerStore interface {
	// LoadLedger reads the persisted state. Returns (nil, nil) when no state
	// has been written yet (first run).
	LoadLedger(ctx context.Context) (*models.LedgerState, error)

	// SaveLedger writes the full state atomically.
	SaveLedger(ctx context.Context, state *models.LedgerState) error
}

// MarketStore persists the simulated market state.
type MarketStore interface {
	// LoadMarket reads the persisted market. Returns (nil, nil) when absent.
	LoadMarket(ctx context.Context) (*models.MarketState, error)

	// SaveMarket writes the full market state atomically.
	SaveMarket(ctx context.Context, state *models.MarketState) error
}

// StorageManager coordinates the storage backends.
type StorageManager interface {
	Ledger() LedgerStore
	Market() MarketStore

	// DataPath returns the base data directory path.
	DataPath() string

	// Lifecycle
	Close() error
}
