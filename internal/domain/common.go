package domain

// Side represents the direction of a position (LONG or SHORT).
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// SignalAction represents the action suggested by a strategy signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
)

// Side returns the position side a signal action maps to.
func (a SignalAction) Side() Side {
	if a == ActionSell {
		return Short
	}
	return Long
}

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// ExitReason indicates why a position was closed.
type ExitReason string

const (
	ExitReasonTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitReasonStopLoss     ExitReason = "STOP_LOSS"
	ExitReasonTrailingStop ExitReason = "TRAILING_STOP"
	ExitReasonSignal       ExitReason = "SIGNAL"
	ExitReasonManual       ExitReason = "MANUAL"
	ExitReasonReset        ExitReason = "RESET"
)
