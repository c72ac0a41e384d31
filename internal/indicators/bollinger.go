package indicators

import (
	"fmt"
	"math"
)

// BollingerConfig holds the window and band width of Bollinger Bands.
type BollingerConfig struct {
	IndicatorConfig
	K float64
}

// Bollinger implements Bollinger Bands around a simple moving average.
type Bollinger struct {
	BaseIndicator
	config BollingerConfig
}

// NewBollinger creates a new Bollinger Bands indicator instance
func NewBollinger(config BollingerConfig) *Bollinger {
	return &Bollinger{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (b *Bollinger) Name() string {
	return "Bollinger"
}

// Validate requires a window of at least 2 (sample deviation) and a positive k.
func (b *Bollinger) Validate() error {
	if b.Config.Period < 2 {
		return fmt.Errorf("Bollinger period must be at least 2, got %d", b.Config.Period)
	}
	if b.config.K <= 0 || math.IsNaN(b.config.K) || math.IsInf(b.config.K, 0) {
		return fmt.Errorf("Bollinger k must be a positive number, got %v", b.config.K)
	}
	return nil
}

// BollingerBands holds the band series.
type BollingerBands struct {
	Middle Series
	Upper  Series
	Lower  Series
	StdDev Series
}

// Bands computes the bands over closes.
func (b *Bollinger) Bands(closes []float64) BollingerBands {
	window := b.Config.Period
	bands := BollingerBands{
		Middle: SMA(closes, window),
		Upper:  undefinedSeries(len(closes)),
		Lower:  undefinedSeries(len(closes)),
		StdDev: RollingStdDev(closes, window),
	}
	for i := range closes {
		mid, sd := bands.Middle[i], bands.StdDev[i]
		if !mid.Valid || !sd.Valid {
			continue
		}
		width := b.config.K * sd.Float64
		bands.Upper[i] = defined(mid.Float64 + width)
		bands.Lower[i] = defined(mid.Float64 - width)
	}
	return bands
}

// Compute returns the middle, upper and lower band columns.
func (b *Bollinger) Compute(closes []float64) []Column {
	bands := b.Bands(closes)
	return []Column{
		{Name: "BB_Middle", Values: bands.Middle},
		{Name: "BB_Upper", Values: bands.Upper},
		{Name: "BB_Lower", Values: bands.Lower},
	}
}

// RollingStdDev computes the sample standard deviation (n-1 denominator) of
// each window-length slice. Windows below 2 leave every entry undefined.
func RollingStdDev(values []float64, window int) Series {
	out := undefinedSeries(len(values))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		slice := values[i-window+1 : i+1]
		mean := 0.0
		for _, v := range slice {
			mean += v
		}
		mean /= float64(window)
		ss := 0.0
		for _, v := range slice {
			d := v - mean
			ss += d * d
		}
		out[i] = defined(math.Sqrt(ss / float64(window-1)))
	}
	return out
}
