// Package market provides the simulated price source.
package market

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/interfaces"
	"github.com/paperdesk/paperdesk/internal/models"
)

const (
	dateLayout = "2006-01-02"

	// maxHistoryPoints bounds the per-stock history kept in the state file.
	maxHistoryPoints = 10000

	// MaxAdvanceDays bounds a single simulation request.
	MaxAdvanceDays = 3650
)

// Service implements MarketService with a geometric-Brownian-motion day step:
// price *= exp((mu - sigma^2/2) + sigma * eps), eps ~ N(0,1).
// Market state is persisted after every mutation so held symbols keep a price
// across restarts.
type Service struct {
	mu     sync.RWMutex
	state  *models.MarketState
	store  interfaces.MarketStore
	logger *common.Logger
	config common.MarketConfig
	noise  distuv.Normal
	now    func() time.Time // injectable clock for testing
}

// NewService loads the persisted market or seeds the default one from config.
func NewService(store interfaces.MarketStore, logger *common.Logger, config common.MarketConfig) (*Service, error) {
	s := &Service{
		store:  store,
		logger: logger,
		config: config,
		noise:  distuv.Normal{Mu: 0, Sigma: 1},
		now:    time.Now,
	}
	if config.Seed != 0 {
		s.noise.Src = rand.NewPCG(config.Seed, config.Seed)
	}

	ctx := context.Background()
	state, err := store.LoadMarket(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || len(state.Stocks) == 0 {
		state = s.defaultState()
		if err := store.SaveMarket(ctx, state); err != nil {
			return nil, err
		}
		logger.Info().Int("stocks", len(state.Stocks)).Str("date", state.Date).Msg("Seeded default market")
	}
	s.state = state
	return s, nil
}

// defaultState builds the configured default universe dated today.
func (s *Service) defaultState() *models.MarketState {
	date := s.now().Format(dateLayout)
	state := &models.MarketState{
		Date:   date,
		Stocks: make(map[string]*models.StockState, len(s.config.Stocks)),
	}
	for _, sc := range s.config.Stocks {
		sym := normalizeSymbol(sc.Symbol)
		if sym == "" || sc.Price <= 0 {
			continue
		}
		state.Stocks[sym] = &models.StockState{
			Symbol:  sym,
			Price:   sc.Price,
			Mu:      sc.Mu,
			Sigma:   sc.Sigma,
			History: []models.PricePoint{{Date: date, Price: sc.Price}},
		}
	}
	return state
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CurrentPrice returns the current price for a symbol.
func (s *Service) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, ok := s.state.Stocks[normalizeSymbol(symbol)]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %q: %w", symbol, models.ErrPriceUnavailable)
	}
	return stock.Price, nil
}

// ListPrices returns the simulated date and all current prices.
func (s *Service) ListPrices(ctx context.Context) (string, map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.state.Stocks))
	for sym, stock := range s.state.Stocks {
		prices[sym] = stock.Price
	}
	return s.state.Date, prices, nil
}

// AdvanceDays steps the simulation forward day by day and persists the result.
func (s *Service) AdvanceDays(ctx context.Context, days int) (string, error) {
	if days < 1 || days > MaxAdvanceDays {
		return "", fmt.Errorf("days must be between 1 and %d: %w", MaxAdvanceDays, models.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	date, err := time.Parse(dateLayout, next.Date)
	if err != nil {
		date = s.now()
	}

	// Step stocks in a stable order so a seeded run is reproducible.
	symbols := sortedSymbols(next.Stocks)

	for i := 0; i < days; i++ {
		date = date.AddDate(0, 0, 1)
		dateStr := date.Format(dateLayout)
		for _, sym := range symbols {
			stock := next.Stocks[sym]
			stock.Price *= s.dayStep(stock.Mu, stock.Sigma)
			stock.History = append(stock.History, models.PricePoint{Date: dateStr, Price: stock.Price})
			if len(stock.History) > maxHistoryPoints {
				stock.History = stock.History[len(stock.History)-maxHistoryPoints:]
			}
		}
	}
	next.Date = date.Format(dateLayout)

	if err := s.store.SaveMarket(ctx, next); err != nil {
		return "", err
	}
	s.state = next

	s.logger.Info().Int("days", days).Str("date", next.Date).Msg("Market advanced")
	return next.Date, nil
}

// dayStep returns the multiplicative price change for one simulated day.
func (s *Service) dayStep(mu, sigma float64) float64 {
	eps := s.noise.Rand()
	drift := mu - 0.5*sigma*sigma
	return math.Exp(drift + sigma*eps)
}

// AddStock lists a new stock at the given price.
func (s *Service) AddStock(ctx context.Context, symbol string, price, mu, sigma float64) error {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return models.ErrInvalidSymbol
	}
	if price <= 0 {
		return models.ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.Stocks[sym]; exists {
		return fmt.Errorf("%q: %w", sym, models.ErrDuplicateSymbol)
	}

	next := s.state.Clone()
	next.Stocks[sym] = &models.StockState{
		Symbol:  sym,
		Price:   price,
		Mu:      mu,
		Sigma:   sigma,
		History: []models.PricePoint{{Date: next.Date, Price: price}},
	}

	if err := s.store.SaveMarket(ctx, next); err != nil {
		return err
	}
	s.state = next

	s.logger.Info().Str("symbol", sym).Float64("price", price).Msg("Stock added")
	return nil
}

// PriceHistory returns a copy of the recorded prices for a symbol.
func (s *Service) PriceHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, ok := s.state.Stocks[normalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q: %w", symbol, models.ErrPriceUnavailable)
	}
	history := make([]models.PricePoint, len(stock.History))
	copy(history, stock.History)
	return history, nil
}

// Reset recreates the default market and persists it.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.defaultState()
	if err := s.store.SaveMarket(ctx, next); err != nil {
		return err
	}
	s.state = next

	s.logger.Info().Str("date", next.Date).Msg("Market reset to defaults")
	return nil
}

func sortedSymbols(stocks map[string]*models.StockState) []string {
	symbols := make([]string, 0, len(stocks))
	for sym := range stocks {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
