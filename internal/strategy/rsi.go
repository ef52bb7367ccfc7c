package strategy

import (
	"context"
	"fmt"

	"voltybot/internal/domain"
	"voltybot/internal/indicators"
	"voltybot/internal/ports"
)

// RSIConfig holds parameters for the RSI threshold strategy.
type RSIConfig struct {
	Period     int     `json:"period"`     // RSI period, e.g. 14
	Overbought float64 `json:"overbought"` // e.g. 70
	Oversold   float64 `json:"oversold"`   // e.g. 30
}

// RSI signals only on the bar where the index crosses into oversold
// (BUY) or into overbought (SELL); a value that stays beyond the threshold
// fires nothing on subsequent bars.
type RSI struct {
	cfg    RSIConfig
	logger ports.Logger
}

// NewRSI creates a new RSI threshold strategy instance.
func NewRSI(cfg RSIConfig, logger ports.Logger) (*RSI, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: RSI period must be positive", ports.ErrInvalidConfiguration)
	}
	if cfg.Oversold <= 0 || cfg.Overbought >= 100 || cfg.Oversold >= cfg.Overbought {
		return nil, fmt.Errorf("%w: RSI thresholds must satisfy 0 < oversold < overbought < 100", ports.ErrInvalidConfiguration)
	}
	return &RSI{cfg: cfg, logger: logger}, nil
}

// Name returns the identifier of the strategy variant.
func (s *RSI) Name() string { return IDRSI }

// RequiredDataPoints returns the warm-up length: enough bars for the
// current and previous RSI values.
func (s *RSI) RequiredDataPoints() int {
	return s.cfg.Period + 2
}

// Evaluate compares the current RSI against the previous bar's value and
// fires only at the crossing bar.
func (s *RSI) Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error) {
	if len(candles) < s.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: RSI strategy needs %d candles, got %d", ports.ErrInsufficientData, s.RequiredDataPoints(), len(candles))
	}

	closes := domain.Closes(candles)
	curr, err := indicators.RSI(closes, s.cfg.Period)
	if err != nil {
		return nil, err
	}
	prev, err := indicators.RSI(closes[:len(closes)-1], s.cfg.Period)
	if err != nil {
		return nil, err
	}
	price := closes[len(closes)-1]

	if curr < s.cfg.Oversold && prev >= s.cfg.Oversold {
		return &domain.Signal{
			Action: domain.ActionBuy,
			Price:  price,
			Reason: fmt.Sprintf("RSI crossed into oversold (%.1f)", s.cfg.Oversold),
		}, nil
	}
	if curr > s.cfg.Overbought && prev <= s.cfg.Overbought {
		return &domain.Signal{
			Action: domain.ActionSell,
			Price:  price,
			Reason: fmt.Sprintf("RSI crossed into overbought (%.1f)", s.cfg.Overbought),
		}, nil
	}
	return nil, nil
}
