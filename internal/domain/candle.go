package domain

import "time"

// Candle represents a single OHLCV bar for a fixed time interval.
// A feed may deliver several updates for the same OpenTime while the bar is
// in progress; IsFinal marks the last update before a new bar begins.
type Candle struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol (e.g., "BTCUSDT")
	Interval  string    // Candle interval (e.g., "1m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this candle is the final one for the interval
}

// Closes extracts the closing prices from a candle series.
func Closes(candles []*Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Volumes extracts the volumes from a candle series.
func Volumes(candles []*Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}
