package ports

import "context"

// Logger is the structured logging interface shared by the trading service,
// the adapters and the backtester. Implementations attach the optional field
// maps as key=value pairs; injecting the interface keeps the core testable
// with a no-op logger.
type Logger interface {
	// Debug logs fine-grained events such as per-candle handling.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs lifecycle events: positions opened and closed, state saved.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs recoverable conditions, e.g. a skipped entry signal.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs failures together with the causing error.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
