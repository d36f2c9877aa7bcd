package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"
)

var csvHeader = []string{"timestamp", "symbol", "side", "quantity", "price"}

// ExportCSV renders the trade history as CSV, oldest first. The header row is
// always present, even with no trades.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	trades, err := s.History(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, t := range trades {
		record := []string{
			t.Timestamp.Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
