// Package interfaces defines service contracts for Paperdesk
package interfaces

import (
	"context"

	"github.com/paperdesk/paperdesk/internal/models"
)

// LedgerService manages the portfolio ledger and trade history.
type LedgerService interface {
	// Buy executes a buy at the current market price. Rejects with
	// models.ErrInsufficientFunds when cash is too low; a rejected buy leaves
	// state and history untouched.
	Buy(ctx context.Context, symbol string, quantity int64) (*models.PortfolioView, error)

	// Sell executes a sell at the current market price. Rejects with
	// models.ErrInsufficientHoldings when the position is too small.
	Sell(ctx context.Context, symbol string, quantity int64) (*models.PortfolioView, error)

	// Portfolio returns the current portfolio priced at market.
	Portfolio(ctx context.Context) (*models.PortfolioView, error)

	// Stats returns aggregate figures for the current state and history.
	Stats(ctx context.Context) (*models.Stats, error)

	// History returns all trade records, oldest first.
	History(ctx context.Context) ([]models.TradeRecord, error)

	// ExportCSV renders the history as CSV with columns
	// timestamp, symbol, side, quantity, price.
	ExportCSV(ctx context.Context) ([]byte, error)

	// Reset restores starting cash, clears holdings and history, and
	// re-seeds the market. Returns the fresh portfolio view.
	Reset(ctx context.Context) (*models.PortfolioView, error)
}

// MarketService supplies simulated prices and drives the price simulation.
type MarketService interface {
	// CurrentPrice returns the current price for a symbol, or an error
	// wrapping models.ErrPriceUnavailable when the symbol is unknown.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)

	// ListPrices returns the simulated date and all current prices.
	ListPrices(ctx context.Context) (string, map[string]float64, error)

	// AdvanceDays steps the simulation forward and returns the new date.
	AdvanceDays(ctx context.Context, days int) (string, error)

	// AddStock lists a new stock. Rejects duplicates and non-positive prices.
	AddStock(ctx context.Context, symbol string, price, mu, sigma float64) error

	// PriceHistory returns the recorded daily prices for a symbol.
	PriceHistory(ctx context.Context, symbol string) ([]models.PricePoint, error)

	// RenderPriceChart renders the symbol's price history as a PNG.
	RenderPriceChart(ctx context.Context, symbol string) ([]byte, error)

	// Reset recreates the default market.
	Reset(ctx context.Context) error
}
