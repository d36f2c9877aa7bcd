package models

// PricePoint is one entry in a stock's simulated price history.
type PricePoint struct {
	Date  string  `json:"date"` // simulated calendar day, YYYY-MM-DD
	Price float64 `json:"price"`
}

// StockState holds a simulated stock: its current price, the drift and
// volatility parameters of its daily price step, and the recorded history.
type StockState struct {
	Symbol  string       `json:"symbol"`
	Price   float64      `json:"price"`
	Mu      float64      `json:"mu"`
	Sigma   float64      `json:"sigma"`
	History []PricePoint `json:"history"`
}

// MarketState is the persisted simulated market: the current simulated date
// and all listed stocks. Persisted separately from the ledger; price
// recording is not part of the trade transaction.
type MarketState struct {
	Date   string                 `json:"date"` // YYYY-MM-DD
	Stocks map[string]*StockState `json:"stocks"`
}

// Clone returns a deep copy of the market state.
func (m *MarketState) Clone() *MarketState {
	next := &MarketState{
		Date:   m.Date,
		Stocks: make(map[string]*StockState, len(m.Stocks)),
	}
	for sym, s := range m.Stocks {
		copied := *s
		copied.History = make([]PricePoint, len(s.History))
		copy(copied.History, s.History)
		next.Stocks[sym] = &copied
	}
	return next
}
