package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/paperdesk/paperdesk/internal/common"
	"github.com/paperdesk/paperdesk/internal/models"
)

// orderRequest is the body for /api/buy and /api/sell. The qty field is an
// accepted alias for quantity.
type orderRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
	Qty      int64  `json:"qty"`
}

func (req *orderRequest) quantity() int64 {
	if req.Quantity != 0 {
		return req.Quantity
	}
	return req.Qty
}

// writeServiceError maps service errors to HTTP responses. Business
// rejections become 400, everything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if models.IsRejection(err) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error())
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleBuy handles POST /api/buy.
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req orderRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	view, err := s.app.LedgerService.Buy(r.Context(), req.Symbol, req.quantity())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleSell handles POST /api/sell.
func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req orderRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	view, err := s.app.LedgerService.Sell(r.Context(), req.Symbol, req.quantity())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handlePortfolio handles GET /api/portfolio.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	view, err := s.app.LedgerService.Portfolio(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	trades, err := s.app.LedgerService.History(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// handleHistoryCSV handles GET /api/history_csv.
func (s *Server) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data, err := s.app.LedgerService.ExportCSV(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := s.app.LedgerService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// handlePerformance handles GET /api/performance.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := s.app.LedgerService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]float64{
		"invested":      stats.Invested,
		"market_value":  stats.MarketValue,
		"unrealized_pl": stats.UnrealizedPL,
	})
}

// handleReset handles POST /api/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	view, err := s.app.LedgerService.Reset(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handlePrices handles GET /api/prices.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	date, prices, err := s.app.MarketService.ListPrices(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date":   date,
		"prices": prices,
	})
}

// nextRequest is the body for /api/next.
type nextRequest struct {
	Days int `json:"days"`
}

// handleNext handles POST /api/next.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	req := nextRequest{Days: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}
	date, err := s.app.MarketService.AdvanceDays(r.Context(), req.Days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"date": date})
}

// addStockRequest is the body for /api/stocks.
type addStockRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Mu     float64 `json:"mu"`
	Sigma  float64 `json:"sigma"`
}

// handleAddStock handles POST /api/stocks.
func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req addStockRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := s.app.MarketService.AddStock(r.Context(), req.Symbol, req.Price, req.Mu, req.Sigma); err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"symbol": req.Symbol,
		"price":  req.Price,
	})
}

// handlePriceHistory handles GET /api/prices/{symbol}/history.
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/api/prices/", "/history")
	history, err := s.app.MarketService.PriceHistory(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrPriceUnavailable) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"history": history,
	})
}

// handlePriceChart handles GET /api/prices/{symbol}/chart.
func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/api/prices/", "/chart")
	png, err := s.app.MarketService.RenderPriceChart(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrPriceUnavailable) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
