package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Trading
	mux.HandleFunc("/api/buy", s.handleBuy)
	mux.HandleFunc("/api/sell", s.handleSell)
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history_csv", s.handleHistoryCSV)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/performance", s.handlePerformance)
	mux.HandleFunc("/api/reset", s.handleReset)

	// Market
	mux.HandleFunc("/api/prices/", s.routePrices)
	mux.HandleFunc("/api/prices", s.handlePrices)
	mux.HandleFunc("/api/next", s.handleNext)
	mux.HandleFunc("/api/stocks", s.handleAddStock)

	// Static frontend (optional)
	if dir := s.app.Config.Server.StaticDir; dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}
}

// routePrices dispatches /api/prices/{symbol}/history and
// /api/prices/{symbol}/chart.
func (s *Server) routePrices(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/history"):
		s.handlePriceHistory(w, r)
	case strings.HasSuffix(path, "/chart"):
		s.handlePriceChart(w, r)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}
