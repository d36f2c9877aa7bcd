// Package ledger manages the portfolio ledger and trade history.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/interfaces"
	"github.com/paperdesk/paperdesk/internal/models"
)

// cashEpsilon absorbs float rounding when comparing cost against cash.
const cashEpsilon = 1e-9

// Service implements LedgerService over a persisted LedgerState.
//
// A single mutex serializes every read-modify-write-persist cycle. Mutations
// build the next state on a clone and swap it in only after a successful save,
// so a failed persist leaves the in-memory ledger at the last durable state.
type Service struct {
	mu           sync.RWMutex
	state        *models.LedgerState
	store        interfaces.LedgerStore
	market       interfaces.MarketService
	logger       *common.Logger
	startingCash float64
	now          func() time.Time // injectable clock for testing
}

// NewService loads the persisted ledger or creates a fresh one.
func NewService(store interfaces.LedgerStore, market interfaces.MarketService, logger *common.Logger, startingCash float64) (*Service, error) {
	s := &Service{
		store:        store,
		market:       market,
		logger:       logger,
		startingCash: startingCash,
		now:          time.Now,
	}

	ctx := context.Background()
	state, err := store.LoadLedger(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = models.NewLedgerState(startingCash)
		if err := store.SaveLedger(ctx, state); err != nil {
			return nil, err
		}
		logger.Info().Float64("cash", startingCash).Msg("Created fresh portfolio")
	}
	s.state = state
	return s, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validateOrder(symbol string, quantity int64) error {
	if normalizeSymbol(symbol) == "" {
		return models.ErrInvalidSymbol
	}
	if quantity <= 0 {
		return models.ErrInvalidQuantity
	}
	return nil
}

// Buy purchases quantity units at the current market price.
func (s *Service) Buy(ctx context.Context, symbol string, quantity int64) (*models.PortfolioView, error) {
	if err := validateOrder(symbol, quantity); err != nil {
		return nil, err
	}
	sym := normalizeSymbol(symbol)

	price, err := s.market.CurrentPrice(ctx, sym)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cost := float64(quantity) * price
	if cost > s.state.Cash+cashEpsilon {
		return nil, fmt.Errorf("need %.2f, have %.2f: %w", cost, s.state.Cash, models.ErrInsufficientFunds)
	}

	next := s.state.Clone()
	next.Cash -= cost

	holding, ok := next.Holdings[sym]
	if !ok {
		holding = &models.Holding{Symbol: sym}
		next.Holdings[sym] = holding
	}
	// Weighted-average cost over the combined position.
	oldQty := holding.Quantity
	holding.AvgCost = (float64(oldQty)*holding.AvgCost + float64(quantity)*price) / float64(oldQty+quantity)
	holding.Quantity = oldQty + quantity

	next.Trades = append(next.Trades, models.TradeRecord{
		Timestamp: s.now().UTC(),
		Symbol:    sym,
		Side:      models.TradeSideBuy,
		Quantity:  quantity,
		Price:     price,
	})

	if err := s.store.SaveLedger(ctx, next); err != nil {
		return nil, err
	}
	s.state = next

	s.logger.Info().
		Str("symbol", sym).
		Int64("quantity", quantity).
		Float64("price", price).
		Float64("cash", next.Cash).
		Msg("Buy executed")

	return s.portfolioLocked(ctx)
}

// Sell disposes quantity units at the current market price.
func (s *Service) Sell(ctx context.Context, symbol string, quantity int64) (*models.PortfolioView, error) {
	if err := validateOrder(symbol, quantity); err != nil {
		return nil, err
	}
	sym := normalizeSymbol(symbol)

	price, err := s.market.CurrentPrice(ctx, sym)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holding, ok := s.state.Holdings[sym]
	if !ok || holding.Quantity < quantity {
		var held int64
		if ok {
			held = holding.Quantity
		}
		return nil, fmt.Errorf("have %d %s, want to sell %d: %w", held, sym, quantity, models.ErrInsufficientHoldings)
	}

	next := s.state.Clone()
	next.Cash += float64(quantity) * price

	h := next.Holdings[sym]
	h.Quantity -= quantity
	if h.Quantity == 0 {
		delete(next.Holdings, sym)
	}

	next.Trades = append(next.Trades, models.TradeRecord{
		Timestamp: s.now().UTC(),
		Symbol:    sym,
		Side:      models.TradeSideSell,
		Quantity:  quantity,
		Price:     price,
	})

	if err := s.store.SaveLedger(ctx, next); err != nil {
		return nil, err
	}
	s.state = next

	s.logger.Info().
		Str("symbol", sym).
		Int64("quantity", quantity).
		Float64("price", price).
		Float64("cash", next.Cash).
		Msg("Sell executed")

	return s.portfolioLocked(ctx)
}

// Portfolio returns the current portfolio priced at market.
func (s *Service) Portfolio(ctx context.Context) (*models.PortfolioView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.portfolioLocked(ctx)
}

// portfolioLocked builds the view. Caller holds at least the read lock.
func (s *Service) portfolioLocked(ctx context.Context) (*models.PortfolioView, error) {
	view := &models.PortfolioView{
		Cash:     s.state.Cash,
		NetWorth: s.state.Cash,
		Holdings: make([]models.HoldingView, 0, len(s.state.Holdings)),
	}

	for _, sym := range sortedSymbols(s.state.Holdings) {
		h := s.state.Holdings[sym]
		price, err := s.market.CurrentPrice(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("pricing holding %s: %w", sym, err)
		}
		value := float64(h.Quantity) * price
		view.NetWorth += value
		view.Holdings = append(view.Holdings, models.HoldingView{
			Symbol:   sym,
			Quantity: h.Quantity,
			AvgCost:  h.AvgCost,
			Price:    price,
			Value:    value,
		})
	}
	return view, nil
}

// Stats aggregates the ledger and trade history at query time.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{
		Cash:      s.state.Cash,
		NumTrades: len(s.state.Trades),
	}

	for _, sym := range sortedSymbols(s.state.Holdings) {
		h := s.state.Holdings[sym]
		price, err := s.market.CurrentPrice(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("pricing holding %s: %w", sym, err)
		}
		stats.Invested += float64(h.Quantity) * h.AvgCost
		stats.MarketValue += float64(h.Quantity) * price
	}
	stats.UnrealizedPL = stats.MarketValue - stats.Invested

	for _, t := range s.state.Trades {
		notional := float64(t.Quantity) * t.Price
		switch t.Side {
		case models.TradeSideBuy:
			stats.TotalBuys += notional
		case models.TradeSideSell:
			stats.TotalSells += notional
		}
	}
	stats.NetInvested = stats.TotalBuys - stats.TotalSells

	return stats, nil
}

// History returns a copy of all trade records, oldest first.
func (s *Service) History(ctx context.Context) ([]models.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := make([]models.TradeRecord, len(s.state.Trades))
	copy(trades, s.state.Trades)
	return trades, nil
}

// Reset restores starting cash, clears holdings and history, and re-seeds the
// market.
func (s *Service) Reset(ctx context.Context) (*models.PortfolioView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.NewLedgerState(s.startingCash)
	if err := s.store.SaveLedger(ctx, next); err != nil {
		return nil, err
	}
	s.state = next

	if err := s.market.Reset(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().Float64("cash", s.startingCash).Msg("Portfolio reset")
	return s.portfolioLocked(ctx)
}

func sortedSymbols(holdings map[string]*models.Holding) []string {
	symbols := make([]string, 0, len(holdings))
	for sym := range holdings {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
