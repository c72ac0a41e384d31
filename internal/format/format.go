// Package format renders optional numeric values for display.
// Every formatter is total: missing, NaN and infinite inputs render as NotAvailable.
package format

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v5"
)

// NotAvailable is rendered for values that are missing or not finite.
const NotAvailable = "N/A"

var magnitudes = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

func finite(v null.Float) (float64, bool) {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return 0, false
	}
	return v.Float64, true
}

// Currency renders a dollar amount with thousands separators and two decimals,
// e.g. 1234.5 as "$1,234.50". Rounding matches Ratio and Percentage.
func Currency(v null.Float) string {
	f, ok := finite(v)
	if !ok {
		return NotAvailable
	}
	digits := strconv.FormatFloat(math.Abs(f), 'f', 2, 64)
	dot := strings.IndexByte(digits, '.')
	whole, _ := new(big.Int).SetString(digits[:dot], 10)
	sign := ""
	if f < 0 && strings.Trim(digits, "0.") != "" {
		sign = "-"
	}
	return "$" + sign + humanize.BigComma(whole) + digits[dot:]
}

// Magnitude scales a value by the largest applicable T/B/M/K suffix with two
// decimals, e.g. 2.5e9 as "2.50B". Values below 1,000, negatives included,
// render as plain two-decimal numbers.
func Magnitude(v null.Float) string {
	f, ok := finite(v)
	if !ok {
		return NotAvailable
	}
	for _, m := range magnitudes {
		if f >= m.threshold {
			return fmt.Sprintf("%.2f%s", f/m.threshold, m.suffix)
		}
	}
	return fmt.Sprintf("%.2f", f)
}

// Percentage renders a value already expressed in percent, e.g. 0 as "0.00%".
func Percentage(v null.Float) string {
	f, ok := finite(v)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", f)
}

// Ratio renders a plain two-decimal number such as a P/E or beta.
func Ratio(v null.Float) string {
	f, ok := finite(v)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", f)
}

// NonZero treats a zero value as missing. Issuer facts such as P/E or beta
// are reported as zero by some sources when they are unknown.
func NonZero(v null.Float) null.Float {
	if v.Valid && v.Float64 == 0 {
		return null.Float{}
	}
	return v
}
