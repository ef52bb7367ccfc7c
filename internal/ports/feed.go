package ports

import (
	"context"
	"time"

	"voltybot/internal/domain"
)

// MarketDataFeed defines the interface for a candle/price source.
// Implementations must deliver candles in non-decreasing open-time order;
// the core does not reorder out-of-order input.
type MarketDataFeed interface {
	// GetCandles retrieves historical candles for the given symbol, most
	// recent bar last. It must supply at least the strategy's warm-up
	// length before the first evaluation.
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)

	// GetTickerPrice retrieves the last traded price for a symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// StreamCandles starts a push stream of candle updates. Updates for an
	// in-progress bar share the same open time; handler receives every
	// update, errHandler receives transport errors. The returned doneCh
	// closes when the stream ends, stopCh stops it.
	StreamCandles(ctx context.Context, symbol, interval string, handler func(candle *domain.Candle), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)

	// GetServerTime retrieves the feed's current server time.
	GetServerTime(ctx context.Context) (time.Time, error)

	// Ping checks connectivity to the feed.
	Ping(ctx context.Context) error
}
