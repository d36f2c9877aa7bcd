package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/models"
)

// stubMarket serves fixed prices from a mutable map.
type stubMarket struct {
	prices map[string]float64
	resets int
}

func (m *stubMarket) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	p, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %q: %w", symbol, models.ErrPriceUnavailable)
	}
	return p, nil
}

func (m *stubMarket) ListPrices(ctx context.Context) (string, map[string]float64, error) {
	return "2026-01-01", m.prices, nil
}

func (m *stubMarket) AdvanceDays(ctx context.Context, days int) (string, error) {
	return "2026-01-01", nil
}

func (m *stubMarket) AddStock(ctx context.Context, symbol string, price, mu, sigma float64) error {
	return nil
}

func (m *stubMarket) PriceHistory(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	return nil, nil
}

func (m *stubMarket) RenderPriceChart(ctx context.Context, symbol string) ([]byte, error) {
	return nil, nil
}

func (m *stubMarket) Reset(ctx context.Context) error {
	m.resets++
	return nil
}

// memStore keeps the last saved state in memory.
type memStore struct {
	state    *models.LedgerState
	saves    int
	failSave bool
}

func (s *memStore) LoadLedger(ctx context.Context) (*models.LedgerState, error) {
	return s.state, nil
}

func (s *memStore) SaveLedger(ctx context.Context, state *models.LedgerState) error {
	if s.failSave {
		return errors.New("disk full")
	}
	s.state = state.Clone()
	s.saves++
	return nil
}

func newTestService(t *testing.T, prices map[string]float64) (*Service, *stubMarket, *memStore) {
	t.Helper()
	market := &stubMarket{prices: prices}
	store := &memStore{}
	svc, err := NewService(store, market, common.NewSilentLogger(), 10000.0)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC) }
	return svc, market, store
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-6 && diff > -1e-6
}

func TestBuySellWorkedExample(t *testing.T) {
	ctx := context.Background()
	svc, market, _ := newTestService(t, map[string]float64{"AAPL": 150.0})

	view, err := svc.Buy(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !almostEqual(view.Cash, 8500.0) {
		t.Errorf("cash after buy: got %v, want 8500", view.Cash)
	}
	if len(view.Holdings) != 1 || view.Holdings[0].Quantity != 10 || !almostEqual(view.Holdings[0].AvgCost, 150.0) {
		t.Errorf("holdings after buy: got %+v", view.Holdings)
	}

	market.prices["AAPL"] = 160.0

	view, err = svc.Sell(ctx, "AAPL", 4)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !almostEqual(view.Cash, 9140.0) {
		t.Errorf("cash after sell: got %v, want 9140", view.Cash)
	}
	if len(view.Holdings) != 1 {
		t.Fatalf("holdings after sell: got %+v", view.Holdings)
	}
	h := view.Holdings[0]
	if h.Quantity != 6 {
		t.Errorf("quantity: got %d, want 6", h.Quantity)
	}
	// Average cost is not touched by sells
	if !almostEqual(h.AvgCost, 150.0) {
		t.Errorf("avg cost: got %v, want 150", h.AvgCost)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !almostEqual(stats.Invested, 900.0) {
		t.Errorf("invested: got %v, want 900", stats.Invested)
	}
	if !almostEqual(stats.MarketValue, 960.0) {
		t.Errorf("market value: got %v, want 960", stats.MarketValue)
	}
	if !almostEqual(stats.UnrealizedPL, 60.0) {
		t.Errorf("unrealized P/L: got %v, want 60", stats.UnrealizedPL)
	}
	if !almostEqual(stats.TotalBuys, 1500.0) || !almostEqual(stats.TotalSells, 640.0) {
		t.Errorf("trade flow: got buys %v sells %v", stats.TotalBuys, stats.TotalSells)
	}
	if !almostEqual(stats.NetInvested, 860.0) {
		t.Errorf("net invested: got %v, want 860", stats.NetInvested)
	}
	if stats.NumTrades != 2 {
		t.Errorf("num trades: got %d, want 2", stats.NumTrades)
	}
}

func TestBuyAveragesCostAcrossLots(t *testing.T) {
	ctx := context.Background()
	svc, market, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "ABC", 10); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	market.prices["ABC"] = 200.0
	view, err := svc.Buy(ctx, "ABC", 10)
	if err != nil {
		t.Fatalf("second buy: %v", err)
	}
	if !almostEqual(view.Holdings[0].AvgCost, 150.0) {
		t.Errorf("blended avg cost: got %v, want 150", view.Holdings[0].AvgCost)
	}
	if view.Holdings[0].Quantity != 20 {
		t.Errorf("quantity: got %d, want 20", view.Holdings[0].Quantity)
	}
}

func TestBuyRejections(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService(t, map[string]float64{"ABC": 100.0})
	savesBefore := store.saves

	cases := []struct {
		name     string
		symbol   string
		quantity int64
		wantErr  error
	}{
		{"empty symbol", "", 5, models.ErrInvalidSymbol},
		{"zero quantity", "ABC", 0, models.ErrInvalidQuantity},
		{"negative quantity", "ABC", -3, models.ErrInvalidQuantity},
		{"unknown symbol", "NOPE", 5, models.ErrPriceUnavailable},
		{"insufficient funds", "ABC", 101, models.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Buy(ctx, tc.symbol, tc.quantity)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}

	// Rejected buys leave state and history untouched
	if store.saves != savesBefore {
		t.Errorf("rejected buys persisted: %d saves", store.saves-savesBefore)
	}
	trades, _ := svc.History(ctx)
	if len(trades) != 0 {
		t.Errorf("rejected buys recorded trades: %+v", trades)
	}
	view, _ := svc.Portfolio(ctx)
	if !almostEqual(view.Cash, 10000.0) {
		t.Errorf("cash changed: got %v", view.Cash)
	}
}

func TestBuyExactCashSucceeds(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	view, err := svc.Buy(ctx, "ABC", 100)
	if err != nil {
		t.Fatalf("buy spending exact cash: %v", err)
	}
	if !almostEqual(view.Cash, 0.0) {
		t.Errorf("cash: got %v, want 0", view.Cash)
	}
}

func TestSellRejections(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Sell(ctx, "ABC", 1); !errors.Is(err, models.ErrInsufficientHoldings) {
		t.Errorf("sell with no position: got %v", err)
	}

	if _, err := svc.Buy(ctx, "ABC", 5); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := svc.Sell(ctx, "ABC", 6); !errors.Is(err, models.ErrInsufficientHoldings) {
		t.Errorf("oversell: got %v", err)
	}
	if _, err := svc.Sell(ctx, "ABC", 0); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Errorf("zero quantity sell: got %v", err)
	}

	trades, _ := svc.History(ctx)
	if len(trades) != 1 {
		t.Errorf("history should hold only the buy, got %d records", len(trades))
	}
}

func TestSellEntirePositionRemovesHolding(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "ABC", 5); err != nil {
		t.Fatalf("buy: %v", err)
	}
	view, err := svc.Sell(ctx, "ABC", 5)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if len(view.Holdings) != 0 {
		t.Errorf("expected empty holdings, got %+v", view.Holdings)
	}
	if !almostEqual(view.Cash, 10000.0) {
		t.Errorf("cash: got %v, want 10000", view.Cash)
	}
}

func TestSymbolsAreNormalized(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "  abc ", 2); err != nil {
		t.Fatalf("buy with messy symbol: %v", err)
	}
	view, err := svc.Sell(ctx, "Abc", 1)
	if err != nil {
		t.Fatalf("sell with mixed case: %v", err)
	}
	if view.Holdings[0].Symbol != "ABC" {
		t.Errorf("symbol: got %q, want ABC", view.Holdings[0].Symbol)
	}
}

func TestHistoryIsChronological(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, map[string]float64{"ABC": 100.0, "XYZ": 50.0})

	orders := []struct {
		symbol string
		side   models.TradeSide
		qty    int64
	}{
		{"ABC", models.TradeSideBuy, 3},
		{"XYZ", models.TradeSideBuy, 10},
		{"ABC", models.TradeSideSell, 1},
	}
	for _, o := range orders {
		var err error
		if o.side == models.TradeSideBuy {
			_, err = svc.Buy(ctx, o.symbol, o.qty)
		} else {
			_, err = svc.Sell(ctx, o.symbol, o.qty)
		}
		if err != nil {
			t.Fatalf("%s %s: %v", o.side, o.symbol, err)
		}
	}

	trades, err := svc.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3", len(trades))
	}
	for i, o := range orders {
		if trades[i].Symbol != o.symbol || trades[i].Side != o.side || trades[i].Quantity != o.qty {
			t.Errorf("trade %d: got %+v, want %+v", i, trades[i], o)
		}
	}
}

func TestFailedPersistLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc, _, store := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "ABC", 2); err != nil {
		t.Fatalf("buy: %v", err)
	}

	store.failSave = true
	if _, err := svc.Buy(ctx, "ABC", 1); err == nil {
		t.Fatal("expected save failure to surface")
	}
	store.failSave = false

	view, _ := svc.Portfolio(ctx)
	if view.Holdings[0].Quantity != 2 {
		t.Errorf("quantity after failed persist: got %d, want 2", view.Holdings[0].Quantity)
	}
	trades, _ := svc.History(ctx)
	if len(trades) != 1 {
		t.Errorf("history after failed persist: got %d records, want 1", len(trades))
	}
}

func TestResetRestoresStartingState(t *testing.T) {
	ctx := context.Background()
	svc, market, _ := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "ABC", 3); err != nil {
		t.Fatalf("buy: %v", err)
	}

	view, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !almostEqual(view.Cash, 10000.0) || len(view.Holdings) != 0 {
		t.Errorf("view after reset: %+v", view)
	}
	trades, _ := svc.History(ctx)
	if len(trades) != 0 {
		t.Errorf("history after reset: %d records", len(trades))
	}
	if market.resets != 1 {
		t.Errorf("market resets: got %d, want 1", market.resets)
	}
}

func TestServiceReloadsPersistedState(t *testing.T) {
	ctx := context.Background()
	svc, market, store := newTestService(t, map[string]float64{"ABC": 100.0})

	if _, err := svc.Buy(ctx, "ABC", 4); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// A second service over the same store sees the persisted ledger
	reloaded, err := NewService(store, market, common.NewSilentLogger(), 10000.0)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	view, err := reloaded.Portfolio(ctx)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if !almostEqual(view.Cash, 9600.0) || view.Holdings[0].Quantity != 4 {
		t.Errorf("reloaded view: %+v", view)
	}
}
