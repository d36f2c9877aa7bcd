package market

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderPriceChart renders a symbol's price history as a PNG line chart.
func (s *Service) RenderPriceChart(ctx context.Context, symbol string) ([]byte, error) {
	history, err := s.PriceHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(history) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(history))
	}

	xValues := make([]time.Time, len(history))
	yValues := make([]float64, len(history))
	for i, p := range history {
		t, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return nil, fmt.Errorf("bad history date %q: %w", p.Date, err)
		}
		xValues[i] = t
		yValues[i] = p.Price
	}

	priceSeries := chart.TimeSeries{
		Name: normalizeSymbol(symbol),
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Price history: %s", normalizeSymbol(symbol)),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{priceSeries},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
