package ports

import (
	"context"

	"voltybot/internal/domain"
)

// PositionRepository defines the interface for storing and retrieving positions.
type PositionRepository interface {
	// Create saves a new position record.
	Create(ctx context.Context, pos *domain.Position) error
	// Update modifies an existing position (trailing stop, close fields).
	Update(ctx context.Context, pos *domain.Position) error
	// FindOpenBySymbol retrieves the open positions for a symbol in entry
	// order (oldest first). Returns an empty slice when none are open.
	FindOpenBySymbol(ctx context.Context, symbol string) ([]*domain.Position, error)
	// FindAll retrieves all positions, ordered by entry time descending.
	FindAll(ctx context.Context) ([]*domain.Position, error)
}

// TradeRepository defines the interface for storing and retrieving completed trades.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindBySymbol retrieves the most recent trades for a symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// GetTotalPnL calculates the sum of PnL across all recorded trades.
	GetTotalPnL(ctx context.Context) (float64, error)
}
