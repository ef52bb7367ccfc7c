// Package indicators provides pure technical-indicator calculations over
// price and candle series. Functions hold no state; callers that need
// warm-up tolerance map ErrInsufficientData to "no signal".
package indicators

import (
	"fmt"
	"math"

	"voltybot/internal/domain"
	"voltybot/internal/ports"
)

// SMA computes the arithmetic mean of the last period values.
func SMA(series []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: SMA period must be positive, got %d", ports.ErrInvalidConfiguration, period)
	}
	if len(series) < period {
		return 0, fmt.Errorf("%w: SMA needs %d points, got %d", ports.ErrInsufficientData, period, len(series))
	}

	total := 0.0
	for i := len(series) - period; i < len(series); i++ {
		total += series[i]
	}
	return total / float64(period), nil
}

// StdDev computes the population standard deviation of the last period
// values against a given mean.
func StdDev(series []float64, mean float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: StdDev period must be positive, got %d", ports.ErrInvalidConfiguration, period)
	}
	if len(series) < period {
		return 0, fmt.Errorf("%w: StdDev needs %d points, got %d", ports.ErrInsufficientData, period, len(series))
	}

	sumSquaredDiff := 0.0
	for i := len(series) - period; i < len(series); i++ {
		diff := series[i] - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(period)), nil
}

// EMA computes the exponential moving average of the full series, seeded
// with the SMA of the first period values and smoothed by 2/(period+1).
// It returns the final value; use EMASeries for the whole sequence.
func EMA(series []float64, period int) (float64, error) {
	values, err := EMASeries(series, period)
	if err != nil {
		return 0, err
	}
	return values[len(values)-1], nil
}

// EMASeries computes the exponential moving average sequence. The returned
// slice has len(series)-period+1 values; value i corresponds to the input
// index i+period-1.
func EMASeries(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: EMA period must be positive, got %d", ports.ErrInvalidConfiguration, period)
	}
	if len(series) < period {
		return nil, fmt.Errorf("%w: EMA needs %d points, got %d", ports.ErrInsufficientData, period, len(series))
	}

	multiplier := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += series[i]
	}
	seed /= float64(period)

	values := make([]float64, 0, len(series)-period+1)
	values = append(values, seed)
	ema := seed
	for i := period; i < len(series); i++ {
		ema = (series[i]-ema)*multiplier + ema
		values = append(values, ema)
	}
	return values, nil
}

// RSI computes the Relative Strength Index using Wilder's smoothing.
// It needs period+1 points for the first value.
func RSI(series []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: RSI period must be positive, got %d", ports.ErrInvalidConfiguration, period)
	}
	if len(series) <= period {
		return 0, fmt.Errorf("%w: RSI needs %d points, got %d", ports.ErrInsufficientData, period+1, len(series))
	}

	changes := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		changes = append(changes, series[i]-series[i-1])
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder's smoothing over the remaining deltas.
	for i := period; i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain = (avgGain*float64(period-1) + changes[i]) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - changes[i]) / float64(period)
		}
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil // flat series
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi, nil
}

// TrueRange computes the true range of a candle against the previous close.
func TrueRange(candle *domain.Candle, prevClose float64) float64 {
	tr := candle.High - candle.Low
	if v := math.Abs(candle.High - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(candle.Low - prevClose); v > tr {
		tr = v
	}
	return tr
}

// ATR computes the Average True Range as the simple average of the last
// period true ranges. It needs period+1 candles since the first true range
// requires a previous close.
func ATR(candles []*domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: ATR period must be positive, got %d", ports.ErrInvalidConfiguration, period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("%w: ATR needs %d candles, got %d", ports.ErrInsufficientData, period+1, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1].Close)
	}
	return sum / float64(period), nil
}

// Bands holds one Bollinger Bands calculation.
type Bands struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// BollingerBands computes the bands over the last period values:
// middle = SMA, upper/lower = middle +/- mult * population standard deviation.
func BollingerBands(series []float64, period int, mult float64) (Bands, error) {
	mean, err := SMA(series, period)
	if err != nil {
		return Bands{}, err
	}
	dev, err := StdDev(series, mean, period)
	if err != nil {
		return Bands{}, err
	}
	return Bands{
		Middle: mean,
		Upper:  mean + mult*dev,
		Lower:  mean - mult*dev,
	}, nil
}

// MACDPoint holds one bar's MACD line, signal line, and histogram values.
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACDSeries computes the MACD sequence: the fast/slow EMA difference,
// an EMA of that difference over signalPeriod, and their histogram.
// Point i corresponds to input index slowPeriod+signalPeriod-2+i, the first
// bar where the signal line exists.
func MACDSeries(series []float64, fastPeriod, slowPeriod, signalPeriod int) ([]MACDPoint, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return nil, fmt.Errorf("%w: MACD periods must be positive", ports.ErrInvalidConfiguration)
	}
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("%w: MACD fast period %d must be less than slow period %d", ports.ErrInvalidConfiguration, fastPeriod, slowPeriod)
	}
	if len(series) < slowPeriod+signalPeriod-1 {
		return nil, fmt.Errorf("%w: MACD needs %d points, got %d", ports.ErrInsufficientData, slowPeriod+signalPeriod-1, len(series))
	}

	fastEMA, err := EMASeries(series, fastPeriod)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMASeries(series, slowPeriod)
	if err != nil {
		return nil, err
	}

	// MACD line exists from input index slowPeriod-1 onward.
	macdLine := make([]float64, len(slowEMA))
	offset := slowPeriod - fastPeriod
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	signalLine, err := EMASeries(macdLine, signalPeriod)
	if err != nil {
		return nil, err
	}

	// Align: signal value i pairs with macdLine index i+signalPeriod-1.
	points := make([]MACDPoint, len(signalLine))
	for i := range signalLine {
		macd := macdLine[i+signalPeriod-1]
		points[i] = MACDPoint{
			MACD:      macd,
			Signal:    signalLine[i],
			Histogram: macd - signalLine[i],
		}
	}
	return points, nil
}
