package indicators

import (
	"errors"
	"fmt"
	"sort"

	"github.com/guregu/null/v5"

	"stockanalyzer/internal/domain"
)

// Config selects which indicators are computed and with what parameters.
type Config struct {
	SMAWindows []int

	RSIEnabled bool
	RSI        RSIConfig

	MACDEnabled bool
	MACD        MACDConfig

	BollingerEnabled bool
	Bollinger        BollingerConfig
}

// DefaultConfig returns MA20/50/200, RSI(14), MACD(12,26,9) and Bollinger(20,2).
func DefaultConfig() Config {
	return Config{
		SMAWindows:       []int{20, 50, 200},
		RSIEnabled:       true,
		RSI:              RSIConfig{IndicatorConfig: IndicatorConfig{Period: 14}, Overbought: DefaultOverbought, Oversold: DefaultOversold},
		MACDEnabled:      true,
		MACD:             DefaultMACDConfig(),
		BollingerEnabled: true,
		Bollinger:        BollingerConfig{IndicatorConfig: IndicatorConfig{Period: 20}, K: 2},
	}
}

// Indicators builds the configured indicators in output column order.
func (c Config) Indicators() []Indicator {
	windows := append([]int(nil), c.SMAWindows...)
	sort.Ints(windows)

	var out []Indicator
	seen := make(map[int]bool, len(windows))
	for _, w := range windows {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, NewMovingAverage(MovingAverageConfig{
			IndicatorConfig: IndicatorConfig{Period: w},
			Type:            SimpleMovingAverage,
		}))
	}
	if c.RSIEnabled {
		out = append(out, NewRSI(c.RSI))
	}
	if c.MACDEnabled {
		out = append(out, NewMACD(c.MACD))
	}
	if c.BollingerEnabled {
		out = append(out, NewBollinger(c.Bollinger))
	}
	return out
}

// Validate reports every invalid parameter at once.
func (c Config) Validate() error {
	var errs []error
	for _, ind := range c.Indicators() {
		if err := ind.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid indicator configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Result is a price series augmented with named indicator columns.
// Every column is exactly as long as Bars.
type Result struct {
	Symbol  string
	Period  domain.Period
	Bars    []domain.PriceBar
	Columns []Column

	rsi      *RSI
	required map[string]int
}

// Column returns the named column.
func (r *Result) Column(name string) (Series, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in output order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Latest returns the final value of the named column.
func (r *Result) Latest(name string) null.Float {
	s, ok := r.Column(name)
	if !ok {
		return null.Float{}
	}
	return s.Last()
}

// RequiredBars returns how many bars the named column needs before its first
// defined value, or 0 for an unknown column.
func (r *Result) RequiredBars(name string) int {
	return r.required[name]
}

// WarmingUp reports whether the series is too short for the named column to
// have any defined value.
func (r *Result) WarmingUp(name string) bool {
	return len(r.Bars) < r.RequiredBars(name)
}

// RSIZone classifies the latest RSI reading. ok is false when RSI was not
// computed or is still warming up.
func (r *Result) RSIZone() (zone RSIZone, value float64, ok bool) {
	if r.rsi == nil {
		return "", 0, false
	}
	last := r.Latest(r.rsi.Name())
	if !last.Valid {
		return "", 0, false
	}
	return r.rsi.Zone(last.Float64), last.Float64, true
}

// Engine computes indicators with a validated configuration.
type Engine struct {
	indicators []Indicator
}

// NewEngine validates cfg and returns an engine for it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{indicators: cfg.Indicators()}, nil
}

// Compute derives every configured column from series. The input is not
// modified; short histories yield undefined entries rather than errors.
func (e *Engine) Compute(series *domain.PriceSeries) *Result {
	res := &Result{required: make(map[string]int)}
	if series == nil {
		return res
	}
	res.Symbol = series.Symbol
	res.Period = series.Period
	res.Bars = append([]domain.PriceBar(nil), series.Bars...)

	closes := series.Closes()
	for _, ind := range e.indicators {
		cols := ind.Compute(closes)
		for _, c := range cols {
			res.required[c.Name] = ind.RequiredDataPoints()
		}
		res.Columns = append(res.Columns, cols...)
		if rsi, ok := ind.(*RSI); ok {
			res.rsi = rsi
		}
	}
	return res
}
