// Package models defines data structures for Paperdesk
package models

import "time"

// TradeSide identifies the direction of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Holding represents a position in one symbol: quantity owned and the
// weighted-average purchase cost per unit. Average cost is updated only on
// buys; sells leave it unchanged.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// TradeRecord is one executed trade. Records are immutable once appended and
// ordered by append time (chronological).
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      TradeSide `json:"side"`
	Quantity  int64     `json:"quantity"`
	Price     float64   `json:"price"`
}

// LedgerState is the persisted portfolio: cash, open holdings, and the full
// trade history. The three are always written to disk as one unit so a trade
// can never land with cash debited but no matching history record.
type LedgerState struct {
	Cash     float64             `json:"cash"`
	Holdings map[string]*Holding `json:"holdings"`
	Trades   []TradeRecord       `json:"trades"`
}

// NewLedgerState returns a fresh ledger with the given starting cash and no
// holdings or history.
func NewLedgerState(startingCash float64) *LedgerState {
	return &LedgerState{
		Cash:     startingCash,
		Holdings: make(map[string]*Holding),
		Trades:   []TradeRecord{},
	}
}

// Clone returns a deep copy. Mutations build the full next state on a clone
// and only swap it in after a successful persist.
func (s *LedgerState) Clone() *LedgerState {
	next := &LedgerState{
		Cash:     s.Cash,
		Holdings: make(map[string]*Holding, len(s.Holdings)),
		Trades:   make([]TradeRecord, len(s.Trades)),
	}
	for sym, h := range s.Holdings {
		copied := *h
		next.Holdings[sym] = &copied
	}
	copy(next.Trades, s.Trades)
	return next
}

// HoldingView is a holding enriched with the current market price for API
// responses. Value is Quantity × Price.
type HoldingView struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

// PortfolioView is the portfolio as returned by the API: cash, net worth
// (cash + market value of holdings), and the priced holdings list.
type PortfolioView struct {
	Cash     float64       `json:"cash"`
	NetWorth float64       `json:"net_worth"`
	Holdings []HoldingView `json:"holdings"`
}

// Stats aggregates the ledger and trade history at query time.
type Stats struct {
	Cash         float64 `json:"cash"`
	Invested     float64 `json:"invested"`      // Σ quantity × avg_cost across open holdings
	MarketValue  float64 `json:"market_value"`  // Σ quantity × current price
	UnrealizedPL float64 `json:"unrealized_pl"` // market_value - invested
	TotalBuys    float64 `json:"total_buys"`    // Σ quantity × price over BUY records
	TotalSells   float64 `json:"total_sells"`   // Σ quantity × price over SELL records
	NetInvested  float64 `json:"net_invested"`  // total_buys - total_sells
	NumTrades    int     `json:"num_trades"`
}
