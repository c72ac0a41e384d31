package app

import (
	"math"

	"github.com/guregu/null/v5"

	"stockanalyzer/internal/domain"
	"stockanalyzer/internal/format"
)

const (
	arrowUp   = "▲"
	arrowDown = "▼"

	noBusinessSummary = "No business summary available."
)

// QuoteSummary is the latest price and its change against the previous close.
type QuoteSummary struct {
	Price         float64
	PreviousClose float64
	Change        float64
	ChangePercent float64
}

// NewQuoteSummary derives the quote from the series and metadata. The previous
// close comes from metadata when present, else the second-to-last close, else
// the current price. ok is false for an empty series.
func NewQuoteSummary(series *domain.PriceSeries, meta domain.IssuerMetadata) (QuoteSummary, bool) {
	last, ok := series.Last()
	if !ok {
		return QuoteSummary{}, false
	}

	q := QuoteSummary{Price: last.Close, PreviousClose: last.Close}
	if prev := meta.Float(domain.FactPreviousClose); prev.Valid {
		q.PreviousClose = prev.Float64
	} else if n := series.Len(); n > 1 {
		q.PreviousClose = series.Bars[n-2].Close
	}

	q.Change = q.Price - q.PreviousClose
	if q.PreviousClose != 0 {
		q.ChangePercent = q.Change / q.PreviousClose * 100
	}
	return q, true
}

// Up reports whether the price is unchanged or higher.
func (q QuoteSummary) Up() bool { return q.Change >= 0 }

// Arrow returns ▲ for a non-negative change and ▼ otherwise.
func (q QuoteSummary) Arrow() string {
	if q.Up() {
		return arrowUp
	}
	return arrowDown
}

// ChangeText renders the change line, e.g. "▲ $2.50 (1.31%)".
func (q QuoteSummary) ChangeText() string {
	return q.Arrow() + " " + format.Currency(null.FloatFrom(math.Abs(q.Change))) +
		" (" + format.Percentage(null.FloatFrom(q.ChangePercent)) + ")"
}

// Metric is one labelled, display-ready value.
type Metric struct {
	Label string
	Value string
}

// Profile is the descriptive part of the issuer metadata.
type Profile struct {
	Name     string
	Exchange string
	Sector   string
	Summary  string
}

// NewProfile reads the descriptive facts, falling back to the symbol for the
// name and to "N/A" elsewhere.
func NewProfile(symbol string, meta domain.IssuerMetadata) Profile {
	return Profile{
		Name:     meta.StringOr(domain.FactLongName, symbol),
		Exchange: meta.StringOr(domain.FactExchange, format.NotAvailable),
		Sector:   meta.StringOr(domain.FactSector, format.NotAvailable),
		Summary:  meta.StringOr(domain.FactBusinessSummary, noBusinessSummary),
	}
}

// KeyMetrics renders the financial metrics in display order. P/E, EPS,
// dividend yield and beta reported as zero are shown as unavailable.
// Dividend yield arrives as a fraction and is shown in percent.
func KeyMetrics(meta domain.IssuerMetadata) []Metric {
	dividend := format.NonZero(meta.Float(domain.FactDividendYield))
	if dividend.Valid {
		dividend = null.FloatFrom(dividend.Float64 * 100)
	}

	return []Metric{
		{Label: "Market Cap", Value: format.Magnitude(meta.Float(domain.FactMarketCap))},
		{Label: "Volume", Value: format.Magnitude(meta.Float(domain.FactVolume))},
		{Label: "P/E Ratio", Value: format.Ratio(format.NonZero(meta.Float(domain.FactTrailingPE)))},
		{Label: "EPS", Value: format.Currency(format.NonZero(meta.Float(domain.FactTrailingEPS)))},
		{Label: "Dividend Yield", Value: format.Percentage(dividend)},
		{Label: "Beta", Value: format.Ratio(format.NonZero(meta.Float(domain.FactBeta)))},
		{Label: "52 Week High", Value: format.Currency(meta.Float(domain.FactFiftyTwoWeekHi))},
		{Label: "52 Week Low", Value: format.Currency(meta.Float(domain.FactFiftyTwoWeekLo))},
	}
}
