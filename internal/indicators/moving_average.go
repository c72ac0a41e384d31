package indicators

import "fmt"

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the column name, e.g. "MA20" or "EMA12".
func (m *MovingAverage) Name() string {
	if m.config.Type == ExponentialMovingAverage {
		return fmt.Sprintf("EMA%d", m.Config.Period)
	}
	return fmt.Sprintf("MA%d", m.Config.Period)
}

// RequiredDataPoints is 1 for an EMA, which is seeded with the first close.
func (m *MovingAverage) RequiredDataPoints() int {
	if m.config.Type == ExponentialMovingAverage {
		return 1
	}
	return m.Config.Period
}

// Validate checks the period and type.
func (m *MovingAverage) Validate() error {
	switch m.config.Type {
	case SimpleMovingAverage, ExponentialMovingAverage:
	default:
		return fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
	return validatePeriod(string(m.config.Type), m.Config.Period)
}

// Compute returns a single column holding the moving average of closes.
func (m *MovingAverage) Compute(closes []float64) []Column {
	var values Series
	if m.config.Type == ExponentialMovingAverage {
		values = seriesFrom(EMA(closes, m.Config.Period))
	} else {
		values = SMA(closes, m.Config.Period)
	}
	return []Column{{Name: m.Name(), Values: values}}
}

// SMA computes the simple moving average over window. Entry i is the mean of
// values[i-window+1..i]; the first window-1 entries are undefined.
// Each window is summed directly so defined values match a fresh mean exactly.
func SMA(values []float64, window int) Series {
	out := undefinedSeries(len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		total := 0.0
		for _, v := range values[i-window+1 : i+1] {
			total += v
		}
		out[i] = defined(total / float64(window))
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(span+1),
// seeded with values[0] and defined for every entry.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
