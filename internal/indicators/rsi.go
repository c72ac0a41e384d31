package indicators

import "fmt"

// Conventional RSI guide levels.
const (
	DefaultOverbought = 70.0
	DefaultOversold   = 30.0
)

// RSIZone classifies an RSI reading.
type RSIZone string

const (
	RSIZoneOverbought RSIZone = "overbought"
	RSIZoneOversold   RSIZone = "oversold"
	RSIZoneNeutral    RSIZone = "neutral"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSI implements the Relative Strength Index using simple rolling means of
// gains and losses.
type RSI struct {
	BaseIndicator
	config RSIConfig
}

// NewRSI creates a new RSI indicator instance. When both guide levels are
// zero they default to 70/30.
func NewRSI(config RSIConfig) *RSI {
	if config.Overbought == 0 && config.Oversold == 0 {
		config.Overbought = DefaultOverbought
		config.Oversold = DefaultOversold
	}
	return &RSI{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (r *RSI) Name() string {
	return "RSI"
}

// Validate checks the period and guide levels.
func (r *RSI) Validate() error {
	if err := validatePeriod("RSI", r.Config.Period); err != nil {
		return err
	}
	if r.config.Oversold >= r.config.Overbought {
		return fmt.Errorf("RSI oversold level (%.2f) must be below overbought level (%.2f)",
			r.config.Oversold, r.config.Overbought)
	}
	return nil
}

// Compute returns the RSI column.
func (r *RSI) Compute(closes []float64) []Column {
	return []Column{{Name: r.Name(), Values: RSIValues(closes, r.Config.Period)}}
}

// Zone classifies value against the configured guide levels.
func (r *RSI) Zone(value float64) RSIZone {
	switch {
	case value >= r.config.Overbought:
		return RSIZoneOverbought
	case value <= r.config.Oversold:
		return RSIZoneOversold
	default:
		return RSIZoneNeutral
	}
}

// RSIValues computes RSI over window. The first bar has no predecessor and
// contributes zero gain and zero loss, so entries are defined from index
// window-1. A window with zero mean loss yields exactly 100.
func RSIValues(closes []float64, window int) Series {
	out := undefinedSeries(len(closes))
	if window <= 0 || len(closes) < window {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else if delta < 0 {
			losses[i] = -delta
		}
	}

	for i := window - 1; i < len(closes); i++ {
		var sumGain, sumLoss float64
		for j := i - window + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		avgLoss := sumLoss / float64(window)
		if avgLoss == 0 {
			out[i] = defined(100)
			continue
		}
		rs := (sumGain / float64(window)) / avgLoss
		out[i] = defined(100 - 100/(1+rs))
	}
	return out
}
