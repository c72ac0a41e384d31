package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol accepts alphanumeric tickers with optional dots or hyphens (e.g. BRK.B, BTC-USD).
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid stock symbol %q", symbol)
	}
	return nil
}
