package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"voltybot/internal/domain"
	"voltybot/internal/ports"
)

const tolerance = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		period   int
		expected float64
		wantErr  error
	}{
		{
			name:     "last period values",
			series:   []float64{1, 2, 3, 4, 5},
			period:   3,
			expected: 4.0,
		},
		{
			name:     "full window",
			series:   []float64{10, 20, 30},
			period:   3,
			expected: 20.0,
		},
		{
			name:    "insufficient data",
			series:  []float64{1, 2},
			period:  3,
			wantErr: ports.ErrInsufficientData,
		},
		{
			name:    "invalid period",
			series:  []float64{1, 2, 3},
			period:  0,
			wantErr: ports.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SMA(tt.series, tt.period)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.expected) {
				t.Errorf("SMA = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	// Population standard deviation of [2,4,4,4,5,5,7,9] around mean 5 is 2.
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got, err := StdDev(series, 5.0, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 2.0) {
		t.Errorf("StdDev = %v, want 2.0", got)
	}

	if _, err := StdDev(series, 5.0, 9); !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEMASeries(t *testing.T) {
	// period 3, multiplier 0.5: seed=SMA(1,2,3)=2, then 3, then 4.
	series := []float64{1, 2, 3, 4, 5}
	got, err := EMASeries(series, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []float64{2, 3, 4}
	if len(got) != len(expected) {
		t.Fatalf("EMASeries length = %d, want %d", len(got), len(expected))
	}
	for i := range expected {
		if !almostEqual(got[i], expected[i]) {
			t.Errorf("EMASeries[%d] = %v, want %v", i, got[i], expected[i])
		}
	}

	final, err := EMA(series, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(final, 4.0) {
		t.Errorf("EMA = %v, want 4.0", final)
	}

	if _, err := EMASeries([]float64{1, 2}, 3); !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		period   int
		expected float64
		wantErr  error
	}{
		{
			name:     "mixed gains and losses",
			series:   []float64{100, 102, 101, 103, 102, 104},
			period:   3,
			expected: 77.272727,
		},
		{
			name:     "all gains",
			series:   []float64{100, 102, 104, 106},
			period:   3,
			expected: 100.0,
		},
		{
			name:     "all losses",
			series:   []float64{106, 104, 102, 100},
			period:   3,
			expected: 0.0,
		},
		{
			name:     "flat series",
			series:   []float64{100, 100, 100, 100},
			period:   3,
			expected: 50.0,
		},
		{
			name:    "insufficient data",
			series:  []float64{100, 102, 104},
			period:  3,
			wantErr: ports.ErrInsufficientData,
		},
		{
			name:    "invalid period",
			series:  []float64{100, 102},
			period:  -1,
			wantErr: ports.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RSI(tt.series, tt.period)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got, tt.expected) {
				t.Errorf("RSI = %v, want %v", got, tt.expected)
			}
		})
	}
}

func candle(high, low, close float64) *domain.Candle {
	return &domain.Candle{
		OpenTime: time.Now(),
		High:     high,
		Low:      low,
		Close:    close,
	}
}

func TestTrueRange(t *testing.T) {
	tests := []struct {
		name      string
		candle    *domain.Candle
		prevClose float64
		expected  float64
	}{
		{
			name:      "range dominates",
			candle:    candle(12, 10, 11),
			prevClose: 11,
			expected:  2,
		},
		{
			name:      "gap up dominates",
			candle:    candle(12, 10, 11),
			prevClose: 9,
			expected:  3,
		},
		{
			name:      "gap down dominates",
			candle:    candle(12, 10, 11),
			prevClose: 14,
			expected:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrueRange(tt.candle, tt.prevClose)
			if !almostEqual(got, tt.expected) {
				t.Errorf("TrueRange = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestATR(t *testing.T) {
	candles := []*domain.Candle{
		candle(102, 98, 100),
		candle(104, 100, 102), // TR = 4
		candle(103, 101, 102), // TR = 2
		candle(108, 102, 106), // TR = 6
	}

	got, err := ATR(candles, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 4.0) {
		t.Errorf("ATR = %v, want 4.0", got)
	}

	if _, err := ATR(candles, 4); !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := ATR(candles, 0); !errors.Is(err, ports.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestBollingerBands(t *testing.T) {
	// mean 4, population stddev sqrt(1.6)
	series := []float64{2, 4, 4, 4, 6}
	dev := math.Sqrt(1.6)

	got, err := BollingerBands(series, 5, 2.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got.Middle, 4.0) {
		t.Errorf("Middle = %v, want 4.0", got.Middle)
	}
	if !almostEqual(got.Upper, 4.0+2*dev) {
		t.Errorf("Upper = %v, want %v", got.Upper, 4.0+2*dev)
	}
	if !almostEqual(got.Lower, 4.0-2*dev) {
		t.Errorf("Lower = %v, want %v", got.Lower, 4.0-2*dev)
	}

	if _, err := BollingerBands(series, 6, 2.0); !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMACDSeries(t *testing.T) {
	// 40 points trending up, then structural checks.
	series := make([]float64, 40)
	for i := range series {
		series[i] = 100 + float64(i)
	}

	points, err := MACDSeries(series, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One point per bar from index slow+signal-2 onward.
	wantLen := len(series) - (26 + 9 - 2)
	if len(points) != wantLen {
		t.Fatalf("MACDSeries length = %d, want %d", len(points), wantLen)
	}
	for i, p := range points {
		if !almostEqual(p.Histogram, p.MACD-p.Signal) {
			t.Errorf("point %d: histogram %v != macd-signal %v", i, p.Histogram, p.MACD-p.Signal)
		}
		// A steady uptrend keeps the fast EMA above the slow EMA.
		if p.MACD <= 0 {
			t.Errorf("point %d: expected positive MACD in uptrend, got %v", i, p.MACD)
		}
	}

	if _, err := MACDSeries(series[:10], 12, 26, 9); !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := MACDSeries(series, 26, 12, 9); !errors.Is(err, ports.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
