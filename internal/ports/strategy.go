package ports

import (
	"context"

	"voltybot/internal/domain"
)

// Strategy defines the interface for signal-producing trading strategies.
// Evaluate must be a pure function of the candle history so the live and
// backtest paths are interchangeable: the same history always yields the
// same signal (or lack of one).
type Strategy interface {
	// Name returns the identifier of the strategy variant.
	Name() string

	// RequiredDataPoints returns the minimum number of candles needed
	// before Evaluate can produce a valid result (the warm-up period).
	RequiredDataPoints() int

	// Evaluate inspects the candle history, most recent bar last, and
	// returns at most one signal for the current bar. It returns
	// (nil, nil) when no signal fires and wraps ErrInsufficientData when
	// the history is shorter than the warm-up period.
	Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error)
}
