package strategy

import (
	"context"
	"fmt"

	"voltybot/internal/domain"
	"voltybot/internal/indicators"
	"voltybot/internal/ports"
)

// MACDConfig holds parameters for the MACD crossover strategy.
type MACDConfig struct {
	FastPeriod   int `json:"fastPeriod"`   // fast EMA period, e.g. 12
	SlowPeriod   int `json:"slowPeriod"`   // slow EMA period, e.g. 26
	SignalPeriod int `json:"signalPeriod"` // EMA period of the MACD line, e.g. 9
}

// MACD signals on a sign change of the MACD histogram between the previous
// and current bar.
type MACD struct {
	cfg    MACDConfig
	logger ports.Logger
}

// NewMACD creates a new MACD crossover strategy instance.
func NewMACD(cfg MACDConfig, logger ports.Logger) (*MACD, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.SignalPeriod <= 0 {
		return nil, fmt.Errorf("%w: MACD periods must be positive", ports.ErrInvalidConfiguration)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("%w: MACD fast period must be less than slow period", ports.ErrInvalidConfiguration)
	}
	return &MACD{cfg: cfg, logger: logger}, nil
}

// Name returns the identifier of the strategy variant.
func (s *MACD) Name() string { return IDMACD }

// RequiredDataPoints returns the warm-up length: enough bars for two
// consecutive histogram values.
func (s *MACD) RequiredDataPoints() int {
	return s.cfg.SlowPeriod + s.cfg.SignalPeriod
}

// Evaluate signals BUY when the histogram turns positive and SELL when it
// turns negative. A histogram that keeps its sign fires nothing.
func (s *MACD) Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error) {
	if len(candles) < s.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: MACD needs %d candles, got %d", ports.ErrInsufficientData, s.RequiredDataPoints(), len(candles))
	}

	closes := domain.Closes(candles)
	points, err := indicators.MACDSeries(closes, s.cfg.FastPeriod, s.cfg.SlowPeriod, s.cfg.SignalPeriod)
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: MACD needs two histogram values, got %d", ports.ErrInsufficientData, len(points))
	}

	prev := points[len(points)-2].Histogram
	curr := points[len(points)-1].Histogram
	price := closes[len(closes)-1]

	if prev <= 0 && curr > 0 {
		return &domain.Signal{
			Action: domain.ActionBuy,
			Price:  price,
			Reason: "MACD histogram crossed above zero",
		}, nil
	}
	if prev >= 0 && curr < 0 {
		return &domain.Signal{
			Action: domain.ActionSell,
			Price:  price,
			Reason: "MACD histogram crossed below zero",
		}, nil
	}
	return nil, nil
}
