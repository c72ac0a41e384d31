package indicators

import "fmt"

// MACDConfig holds the three spans of a MACD.
type MACDConfig struct {
	Fast   int
	Slow   int
	Signal int
}

// DefaultMACDConfig returns the conventional 12/26/9 spans.
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{Fast: 12, Slow: 26, Signal: 9}
}

// MACD implements moving average convergence/divergence.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) *MACD {
	return &MACD{config: config}
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return "MACD"
}

// RequiredDataPoints is 1: every component is an EMA seeded with the first value.
func (m *MACD) RequiredDataPoints() int {
	return 1
}

// Validate checks that every span is positive and fast is below slow.
func (m *MACD) Validate() error {
	for _, p := range []struct {
		name string
		span int
	}{{"MACD fast", m.config.Fast}, {"MACD slow", m.config.Slow}, {"MACD signal", m.config.Signal}} {
		if err := validatePeriod(p.name, p.span); err != nil {
			return err
		}
	}
	if m.config.Fast >= m.config.Slow {
		return fmt.Errorf("MACD fast span (%d) must be less than slow span (%d)", m.config.Fast, m.config.Slow)
	}
	return nil
}

// MACDLines holds the components of a MACD computation.
type MACDLines struct {
	FastEMA   []float64
	SlowEMA   []float64
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// Lines computes every MACD component over closes.
func (m *MACD) Lines(closes []float64) MACDLines {
	fast := EMA(closes, m.config.Fast)
	slow := EMA(closes, m.config.Slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal := EMA(macd, m.config.Signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - signal[i]
	}
	return MACDLines{FastEMA: fast, SlowEMA: slow, MACD: macd, Signal: signal, Histogram: hist}
}

// Compute returns the fast and slow EMAs, MACD, Signal and Histogram columns.
func (m *MACD) Compute(closes []float64) []Column {
	l := m.Lines(closes)
	return []Column{
		{Name: fmt.Sprintf("EMA%d", m.config.Fast), Values: seriesFrom(l.FastEMA)},
		{Name: fmt.Sprintf("EMA%d", m.config.Slow), Values: seriesFrom(l.SlowEMA)},
		{Name: "MACD", Values: seriesFrom(l.MACD)},
		{Name: "Signal", Values: seriesFrom(l.Signal)},
		{Name: "Histogram", Values: seriesFrom(l.Histogram)},
	}
}
