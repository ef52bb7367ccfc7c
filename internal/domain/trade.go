package domain

import "time"

// Trade represents a completed trade record derived from a closed position.
type Trade struct {
	ID         int64      `json:"id"`         // Unique identifier for the trade (usually from DB)
	PositionID string     `json:"positionId"` // Identifier of the position this trade closed
	Symbol     string     `json:"symbol"`     // Trading symbol (e.g., "BTCUSDT")
	Side       Side       `json:"side"`       // LONG or SHORT
	EntryPrice float64    `json:"entryPrice"` // Price at which the position was entered
	ExitPrice  float64    `json:"exitPrice"`  // Price at which the position was exited
	Size       float64    `json:"size"`       // Size of the position traded
	PnL        float64    `json:"pnl"`        // Profit and Loss for this trade
	PnLPct     float64    `json:"pnlPct"`     // P&L as a percentage of the entry notional
	EntryTime  time.Time  `json:"entryTime"`  // Timestamp when the position was entered
	ExitTime   time.Time  `json:"exitTime"`   // Timestamp when the position was exited
	ExitReason ExitReason `json:"exitReason"` // Reason why the position was closed (TP, SL, etc.)
}

// TradeFromPosition builds the trade record for a closed position.
func TradeFromPosition(p *Position) *Trade {
	return &Trade{
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.ExitPrice,
		Size:       p.Size,
		PnL:        p.RealizedPnL,
		PnLPct:     p.RealizedPnLPct,
		EntryTime:  p.EntryTime,
		ExitTime:   p.ExitTime,
		ExitReason: p.ExitReason,
	}
}

// PositionFromTrade rebuilds the closed position behind an exported trade
// record. Risk levels and extremes are not part of the record and stay zero.
func PositionFromTrade(t *Trade) *Position {
	return &Position{
		ID:             t.PositionID,
		Symbol:         t.Symbol,
		Side:           t.Side,
		EntryPrice:     t.EntryPrice,
		ExitPrice:      t.ExitPrice,
		Size:           t.Size,
		EntryTime:      t.EntryTime,
		ExitTime:       t.ExitTime,
		Status:         StatusClosed,
		ExitReason:     t.ExitReason,
		RealizedPnL:    t.PnL,
		RealizedPnLPct: t.PnLPct,
	}
}
