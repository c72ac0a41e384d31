package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

// Well-known issuer fact keys. Sources populate whichever they can; none is guaranteed.
const (
	FactLongName        = "longName"
	FactExchange        = "exchange"
	FactSector          = "sector"
	FactCurrency        = "currency"
	FactBusinessSummary = "longBusinessSummary"
	FactMarketCap       = "marketCap"
	FactVolume          = "volume"
	FactTrailingPE      = "trailingPE"
	FactTrailingEPS     = "trailingEps"
	FactDividendYield   = "dividendYield"
	FactBeta            = "beta"
	FactFiftyTwoWeekHi  = "fiftyTwoWeekHigh"
	FactFiftyTwoWeekLo  = "fiftyTwoWeekLow"
	FactPreviousClose   = "previousClose"
)

// IssuerMetadata is a flat bag of named facts about a symbol.
// Lookups never fail: an absent or malformed fact comes back as an invalid null value.
type IssuerMetadata struct {
	facts map[string]any
}

// NewIssuerMetadata copies facts into a new metadata value. Nil values are dropped.
func NewIssuerMetadata(facts map[string]any) IssuerMetadata {
	m := IssuerMetadata{facts: make(map[string]any, len(facts))}
	for k, v := range facts {
		if v != nil {
			m.facts[k] = v
		}
	}
	return m
}

// Has reports whether a fact with the given key is present.
func (m IssuerMetadata) Has(key string) bool {
	_, ok := m.facts[key]
	return ok
}

// Len returns the number of facts present.
func (m IssuerMetadata) Len() int { return len(m.facts) }

// Keys returns the fact keys in sorted order.
func (m IssuerMetadata) Keys() []string {
	keys := make([]string, 0, len(m.facts))
	for k := range m.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float looks up a numeric fact. Strings holding a number are accepted;
// anything else, including NaN and infinities, is reported as unavailable.
func (m IssuerMetadata) Float(key string) null.Float {
	v, ok := m.facts[key]
	if !ok {
		return null.Float{}
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// String looks up a textual fact. Empty strings count as unavailable.
func (m IssuerMetadata) String(key string) null.String {
	v, ok := m.facts[key]
	if !ok {
		return null.String{}
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// StringOr returns the textual fact or fallback when unavailable.
func (m IssuerMetadata) StringOr(key, fallback string) string {
	if s := m.String(key); s.Valid {
		return s.String
	}
	return fallback
}

// MarshalJSON encodes the facts as a plain JSON object.
func (m IssuerMetadata) MarshalJSON() ([]byte, error) {
	if m.facts == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.facts)
}

// UnmarshalJSON decodes a plain JSON object of facts.
func (m *IssuerMetadata) UnmarshalJSON(data []byte) error {
	var facts map[string]any
	if err := json.Unmarshal(data, &facts); err != nil {
		return err
	}
	*m = NewIssuerMetadata(facts)
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case decimal.Decimal:
		return n.InexactFloat64(), true
	case null.Float:
		return n.Float64, n.Valid
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
