package indicators

import "fmt"

// Indicator derives one or more aligned columns from a close-price series.
type Indicator interface {
	// Compute returns the indicator's columns, each exactly len(closes) long.
	Compute(closes []float64) []Column

	// RequiredDataPoints returns the number of bars before the first defined value.
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string

	// Validate rejects parameters the indicator cannot be computed with.
	Validate() error
}

// Column is a named derived series.
type Column struct {
	Name   string
	Values Series
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of bars needed for a defined value
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s period must be positive, got %d", name, period)
	}
	return nil
}
