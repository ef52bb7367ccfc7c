package ports

import "errors"

// Standard application-level errors.
// Adapters and core components wrap underlying errors with these so callers
// can branch on the taxonomy with errors.Is.
var (
	// Core Errors
	ErrInsufficientData     = errors.New("not enough data points for calculation")
	ErrPositionAlreadyOpen  = errors.New("a position is already open")
	ErrNoOpenPosition       = errors.New("no open position")
	ErrInvalidConfiguration = errors.New("invalid or missing configuration")
	ErrUnknownStrategy      = errors.New("unknown strategy id")

	// Feed Specific Errors
	ErrFeedUnavailable  = errors.New("market data feed is unavailable")
	ErrConnectionFailed = errors.New("failed to connect to the market data feed")
	ErrRateLimited      = errors.New("API rate limit exceeded")

	// Database Specific Errors
	ErrNotFound     = errors.New("resource not found")
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
