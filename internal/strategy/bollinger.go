package strategy

import (
	"context"
	"fmt"
	"math"

	"voltybot/internal/domain"
	"voltybot/internal/indicators"
	"voltybot/internal/ports"
)

// volumeAvgPeriod is the trailing window the recent volume is compared against.
const volumeAvgPeriod = 30

// BollingerVolumeConfig holds parameters for the Bollinger+Volume strategy.
type BollingerVolumeConfig struct {
	Period            int     `json:"period"`            // Bollinger period, e.g. 20
	StdDevMultiplier  float64 `json:"stdDevMultiplier"`  // band width in standard deviations, e.g. 2.0
	VolumeCandles     int     `json:"volumeCandles"`     // recent candles averaged for the volume check, e.g. 3
	VolumeIncreasePct float64 `json:"volumeIncreasePct"` // required excess over the trailing average, e.g. 20
}

// BollingerVolume signals when the close breaks a Bollinger band and the
// recent volume confirms the move.
type BollingerVolume struct {
	cfg    BollingerVolumeConfig
	logger ports.Logger
}

// NewBollingerVolume creates a new Bollinger+Volume strategy instance.
func NewBollingerVolume(cfg BollingerVolumeConfig, logger ports.Logger) (*BollingerVolume, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.Period <= 0 || cfg.VolumeCandles <= 0 {
		return nil, fmt.Errorf("%w: bollinger periods must be positive", ports.ErrInvalidConfiguration)
	}
	if cfg.StdDevMultiplier <= 0 {
		return nil, fmt.Errorf("%w: std dev multiplier must be positive", ports.ErrInvalidConfiguration)
	}
	if cfg.VolumeIncreasePct < 0 {
		return nil, fmt.Errorf("%w: volume increase percentage cannot be negative", ports.ErrInvalidConfiguration)
	}
	return &BollingerVolume{cfg: cfg, logger: logger}, nil
}

// Name returns the identifier of the strategy variant.
func (s *BollingerVolume) Name() string { return IDBollingerVolume }

// RequiredDataPoints returns the warm-up length: the band period or the
// trailing volume window, whichever is longer.
func (s *BollingerVolume) RequiredDataPoints() int {
	if s.cfg.Period > volumeAvgPeriod {
		return s.cfg.Period
	}
	return volumeAvgPeriod
}

// Evaluate signals BUY when the close is at or below the lower band and
// SELL when at or above the upper band, in both cases only when the recent
// average volume exceeds the trailing average by the configured percentage.
func (s *BollingerVolume) Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error) {
	if len(candles) < s.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: bollinger needs %d candles, got %d", ports.ErrInsufficientData, s.RequiredDataPoints(), len(candles))
	}

	closes := domain.Closes(candles)
	volumes := domain.Volumes(candles)
	price := closes[len(closes)-1]

	bands, err := indicators.BollingerBands(closes, s.cfg.Period, s.cfg.StdDevMultiplier)
	if err != nil {
		return nil, err
	}

	recentVolume, err := indicators.SMA(volumes, s.cfg.VolumeCandles)
	if err != nil {
		return nil, err
	}
	avgVolume, err := indicators.SMA(volumes, volumeAvgPeriod)
	if err != nil {
		return nil, err
	}
	if avgVolume <= 0 {
		return nil, nil
	}
	volumeIncrease := recentVolume/avgVolume*100 - 100
	if volumeIncrease < s.cfg.VolumeIncreasePct {
		return nil, nil
	}

	belowLower := price <= bands.Lower
	aboveUpper := price >= bands.Upper
	if belowLower && aboveUpper {
		// Degenerate bands (zero deviation); ambiguous, so no signal.
		return nil, nil
	}

	if belowLower {
		return &domain.Signal{
			Action:     domain.ActionBuy,
			Price:      price,
			Reason:     "price below lower Bollinger band with volume confirmation",
			Confidence: confidence(price, bands.Lower, volumeIncrease, s.cfg.VolumeIncreasePct),
		}, nil
	}
	if aboveUpper {
		return &domain.Signal{
			Action:     domain.ActionSell,
			Price:      price,
			Reason:     "price above upper Bollinger band with volume confirmation",
			Confidence: confidence(price, bands.Upper, volumeIncrease, s.cfg.VolumeIncreasePct),
		}, nil
	}
	return nil, nil
}

// confidence scores a band break 0-100 from how far price sits beyond the
// band and how much the volume exceeds the required increase.
func confidence(price, band, volumeIncrease, minVolumeIncrease float64) int {
	if band == 0 {
		return 0
	}
	priceFactor := math.Min(math.Abs(price-band)/band*100, 5) / 5
	volumeFactor := math.Min((volumeIncrease-minVolumeIncrease)/50, 1)
	return int(math.Round((priceFactor*0.6 + volumeFactor*0.4) * 100))
}
