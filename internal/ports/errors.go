package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with one of these so callers can use errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Data Source Errors
	ErrInvalidSymbol      = errors.New("invalid stock symbol")
	ErrInvalidPeriod      = errors.New("unsupported lookback period")
	ErrNoData             = errors.New("no data available")
	ErrInvalidSeries      = errors.New("price series failed validation")
	ErrConnectionFailed   = errors.New("failed to connect to the market data source")
	ErrRateLimited        = errors.New("API rate limit exceeded")
	ErrUnexpectedResponse = errors.New("unexpected response from market data source")

	// Cache Errors
	ErrCacheFailure = errors.New("series cache operation failed")
)
