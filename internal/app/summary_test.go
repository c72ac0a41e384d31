package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockanalyzer/internal/domain"
)

func TestNewQuoteSummary(t *testing.T) {
	tests := []struct {
		name       string
		series     *domain.PriceSeries
		meta       domain.IssuerMetadata
		wantPrev   float64
		wantChange float64
		wantPct    float64
		wantArrow  string
	}{
		{
			name:       "previous close from metadata",
			series:     makeSeries("AAPL", 100, 105),
			meta:       domain.NewIssuerMetadata(map[string]any{domain.FactPreviousClose: 110.0}),
			wantPrev:   110,
			wantChange: -5,
			wantPct:    -5.0 / 110 * 100,
			wantArrow:  "▼",
		},
		{
			name:       "previous close from second to last bar",
			series:     makeSeries("AAPL", 100, 105),
			wantPrev:   100,
			wantChange: 5,
			wantPct:    5,
			wantArrow:  "▲",
		},
		{
			name:       "single bar compares with itself",
			series:     makeSeries("AAPL", 42),
			wantPrev:   42,
			wantChange: 0,
			wantPct:    0,
			wantArrow:  "▲",
		},
		{
			name:       "zero previous close gives zero percent",
			series:     makeSeries("AAPL", 5),
			meta:       domain.NewIssuerMetadata(map[string]any{domain.FactPreviousClose: 0.0}),
			wantPrev:   0,
			wantChange: 5,
			wantPct:    0,
			wantArrow:  "▲",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := NewQuoteSummary(tt.series, tt.meta)
			assert.True(t, ok)
			assert.Equal(t, tt.wantPrev, q.PreviousClose)
			assert.InDelta(t, tt.wantChange, q.Change, 1e-9)
			assert.InDelta(t, tt.wantPct, q.ChangePercent, 1e-9)
			assert.Equal(t, tt.wantArrow, q.Arrow())
		})
	}

	_, ok := NewQuoteSummary(makeSeries("AAPL"), domain.IssuerMetadata{})
	assert.False(t, ok)
}

func TestQuoteSummary_ChangeText(t *testing.T) {
	q := QuoteSummary{Price: 97.5, PreviousClose: 100, Change: -2.5, ChangePercent: -2.5}
	assert.Equal(t, "▼ $2.50 (-2.50%)", q.ChangeText())
}

func TestNewProfile(t *testing.T) {
	p := NewProfile("MSFT", domain.IssuerMetadata{})
	assert.Equal(t, Profile{Name: "MSFT", Exchange: "N/A", Sector: "N/A", Summary: "No business summary available."}, p)

	p = NewProfile("MSFT", domain.NewIssuerMetadata(map[string]any{
		domain.FactLongName: "Microsoft Corporation",
		domain.FactSector:   "Technology",
	}))
	assert.Equal(t, "Microsoft Corporation", p.Name)
	assert.Equal(t, "Technology", p.Sector)
}

func TestKeyMetrics(t *testing.T) {
	meta := domain.NewIssuerMetadata(map[string]any{
		domain.FactMarketCap:      2_500_000_000,
		domain.FactVolume:         45_600_000,
		domain.FactTrailingPE:     0.0,
		domain.FactTrailingEPS:    6.43,
		domain.FactDividendYield:  0.0052,
		domain.FactBeta:           "1.25",
		domain.FactFiftyTwoWeekHi: 1234.5,
	})

	got := map[string]string{}
	var labels []string
	for _, m := range KeyMetrics(meta) {
		got[m.Label] = m.Value
		labels = append(labels, m.Label)
	}

	assert.Equal(t, []string{"Market Cap", "Volume", "P/E Ratio", "EPS", "Dividend Yield", "Beta", "52 Week High", "52 Week Low"}, labels)
	assert.Equal(t, "2.50B", got["Market Cap"])
	assert.Equal(t, "45.60M", got["Volume"])
	assert.Equal(t, "N/A", got["P/E Ratio"], "zero P/E is unavailable")
	assert.Equal(t, "$6.43", got["EPS"])
	assert.Equal(t, "0.52%", got["Dividend Yield"])
	assert.Equal(t, "1.25", got["Beta"])
	assert.Equal(t, "$1,234.50", got["52 Week High"])
	assert.Equal(t, "N/A", got["52 Week Low"])
}
