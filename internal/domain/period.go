package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is the lookback token used when requesting price history.
type Period string

const (
	Period1Month     Period = "1mo"
	Period3Months    Period = "3mo"
	Period6Months    Period = "6mo"
	PeriodYearToDate Period = "ytd"
	Period1Year      Period = "1y"
	Period2Years     Period = "2y"
	Period5Years     Period = "5y"
	PeriodMax        Period = "max"

	DefaultPeriod = Period1Year
)

// Periods lists every supported lookback token in selector order.
func Periods() []Period {
	return []Period{
		Period1Month,
		Period3Months,
		Period6Months,
		PeriodYearToDate,
		Period1Year,
		Period2Years,
		Period5Years,
		PeriodMax,
	}
}

// ParsePeriod converts a user supplied token (case-insensitive) to a Period.
func ParsePeriod(s string) (Period, error) {
	token := Period(strings.ToLower(strings.TrimSpace(s)))
	if token == "" {
		return DefaultPeriod, nil
	}
	for _, p := range Periods() {
		if p == token {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported period %q (expected one of %s)", s, periodList())
}

// Start returns the earliest timestamp covered by the period, relative to now.
// PeriodMax returns the zero time.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Period1Month:
		return now.AddDate(0, -1, 0)
	case Period3Months:
		return now.AddDate(0, -3, 0)
	case Period6Months:
		return now.AddDate(0, -6, 0)
	case PeriodYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case Period1Year:
		return now.AddDate(-1, 0, 0)
	case Period2Years:
		return now.AddDate(-2, 0, 0)
	case Period5Years:
		return now.AddDate(-5, 0, 0)
	default:
		return time.Time{}
	}
}

func (p Period) String() string { return string(p) }

func periodList() string {
	parts := make([]string, 0, len(Periods()))
	for _, p := range Periods() {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ", ")
}
