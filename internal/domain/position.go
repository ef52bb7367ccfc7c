package domain

import "time"

// Position represents one open or closed simulated trade.
type Position struct {
	ID         string         `json:"id"`         // Unique identifier for the position
	Symbol     string         `json:"symbol"`     // Trading symbol (e.g., "BTCUSDT")
	Side       Side           `json:"side"`       // LONG or SHORT
	EntryPrice float64        `json:"entryPrice"` // Price at which the position was entered
	ExitPrice  float64        `json:"exitPrice"`  // Price at which the position was exited (0 while open)
	Size       float64        `json:"size"`       // Position size in base-asset units; never changes after creation
	EntryTime  time.Time      `json:"entryTime"`  // Timestamp when the position was entered
	ExitTime   time.Time      `json:"exitTime"`   // Timestamp when the position was exited (zero value while open)
	Status     PositionStatus `json:"status"`     // OPEN or CLOSED
	ExitReason ExitReason     `json:"exitReason"` // Reason for closing (empty while open)

	// Risk levels derived from the manager's settings (0 = disabled).
	TakeProfitPrice   float64 `json:"takeProfitPrice"`
	StopLossPrice     float64 `json:"stopLossPrice"`
	TrailingStopPrice float64 `json:"trailingStopPrice"`

	// Most favorable price seen since entry, used to ratchet the trailing stop.
	HighestPrice float64 `json:"highestPrice"` // LONG positions only
	LowestPrice  float64 `json:"lowestPrice"`  // SHORT positions only

	// P&L in quote-asset units and as a percentage of the entry notional.
	RealizedPnL      float64 `json:"realizedPnl"`
	RealizedPnLPct   float64 `json:"realizedPnlPct"`
	UnrealizedPnL    float64 `json:"unrealizedPnl"`
	UnrealizedPnLPct float64 `json:"unrealizedPnlPct"`
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// GrossPnL returns the side-aware P&L of exiting the full size at price.
// LONG profits when price > entry, SHORT profits when price < entry.
func (p *Position) GrossPnL(price float64) float64 {
	if p.Side == Short {
		return (p.EntryPrice - price) * p.Size
	}
	return (price - p.EntryPrice) * p.Size
}
