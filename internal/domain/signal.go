package domain

// Signal is an entry suggestion produced by a strategy evaluation.
type Signal struct {
	Action     SignalAction // BUY or SELL
	Price      float64      // Close price of the bar the signal fired on
	Reason     string       // Human-readable trigger description
	Confidence int          // Optional 0-100 score; 0 when the strategy does not score
}
