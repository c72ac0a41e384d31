package indicators

import (
	"math"

	"github.com/guregu/null/v5"
)

// Series is a derived series aligned 1:1 with the input bars.
// Entries inside an indicator's warm-up region are invalid (undefined).
type Series []null.Float

// undefinedSeries returns a series of n undefined entries.
func undefinedSeries(n int) Series {
	return make(Series, n)
}

// seriesFrom wraps fully defined values.
func seriesFrom(values []float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = defined(v)
	}
	return s
}

// defined wraps v, treating NaN and infinities as undefined.
func defined(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// Defined returns the number of defined entries.
func (s Series) Defined() int {
	n := 0
	for _, v := range s {
		if v.Valid {
			n++
		}
	}
	return n
}

// FirstDefined returns the index of the first defined entry, or -1.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.Valid {
			return i
		}
	}
	return -1
}

// Last returns the final entry, which may be undefined.
func (s Series) Last() null.Float {
	if len(s) == 0 {
		return null.Float{}
	}
	return s[len(s)-1]
}

// At returns entry i, or an undefined value when i is out of range.
func (s Series) At(i int) null.Float {
	if i < 0 || i >= len(s) {
		return null.Float{}
	}
	return s[i]
}
