package domain

import (
	"fmt"
	"sort"
	"time"
)

// PriceBar is a single daily OHLCV observation.
type PriceBar struct {
	Time   time.Time // Session date of the bar
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume float64   // Traded volume
}

// PriceSeries is an ordered history of bars for one symbol.
// Bars are ascending by Time with no duplicate timestamps.
type PriceSeries struct {
	Symbol    string
	Period    Period
	Source    string // Name of the data source that produced the bars
	Bars      []PriceBar
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes extracts the closing prices in series order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := range closes {
		closes[i] = s.Bars[i].Close
	}
	return closes
}

// Last returns the most recent bar, if any.
func (s *PriceSeries) Last() (PriceBar, bool) {
	if s.Len() == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Validate checks ordering and value invariants of the series.
func (s *PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if b.Open < 0 || b.High < 0 || b.Low < 0 || b.Close < 0 || b.Volume < 0 {
			return fmt.Errorf("bar %d (%s) has negative values", i, b.Time.Format(time.DateOnly))
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Time
		if !b.Time.After(prev) {
			return fmt.Errorf("bar %d (%s) is not after bar %d (%s)",
				i, b.Time.Format(time.RFC3339), i-1, prev.Format(time.RFC3339))
		}
	}
	return nil
}

// NormalizeBars sorts bars ascending and collapses duplicate timestamps,
// keeping the last occurrence. Data sources call it before building a series.
func NormalizeBars(bars []PriceBar) []PriceBar {
	if len(bars) == 0 {
		return bars
	}
	sorted := make([]PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := sorted[:1]
	for _, b := range sorted[1:] {
		if b.Time.Equal(out[len(out)-1].Time) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
