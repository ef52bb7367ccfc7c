package strategy

import (
	"context"
	"fmt"

	"voltybot/internal/domain"
	"voltybot/internal/indicators"
	"voltybot/internal/ports"
)

// VoltyConfig holds parameters for the Volatility-Expansion-Close strategy.
type VoltyConfig struct {
	Length        int     `json:"length"`        // true-range averaging window, e.g. 5
	ATRMultiplier float64 `json:"atrMultiplier"` // expansion threshold multiplier, e.g. 0.75
}

// Volty signals when the close moves further from the previous close than
// the expected range (ATR times multiplier). Unlike the crossover variants
// it re-fires on every bar the breakout condition holds.
type Volty struct {
	cfg    VoltyConfig
	logger ports.Logger
}

// NewVolty creates a new Volatility-Expansion-Close strategy instance.
func NewVolty(cfg VoltyConfig, logger ports.Logger) (*Volty, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("%w: volty length must be positive", ports.ErrInvalidConfiguration)
	}
	if cfg.ATRMultiplier <= 0 {
		return nil, fmt.Errorf("%w: ATR multiplier must be positive", ports.ErrInvalidConfiguration)
	}
	return &Volty{cfg: cfg, logger: logger}, nil
}

// Name returns the identifier of the strategy variant.
func (s *Volty) Name() string { return IDVoltyExpansion }

// RequiredDataPoints returns the warm-up length: the ATR window through the
// previous bar plus the current bar.
func (s *Volty) RequiredDataPoints() int {
	return s.cfg.Length + 2
}

// Evaluate measures the expected range as the ATR through the previous bar
// scaled by the multiplier, then signals BUY on a close above the previous
// close plus that range, SELL on a close below the previous close minus it.
func (s *Volty) Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error) {
	if len(candles) < s.RequiredDataPoints() {
		return nil, fmt.Errorf("%w: volty needs %d candles, got %d", ports.ErrInsufficientData, s.RequiredDataPoints(), len(candles))
	}

	atr, err := indicators.ATR(candles[:len(candles)-1], s.cfg.Length)
	if err != nil {
		return nil, err
	}
	atrs := atr * s.cfg.ATRMultiplier

	price := candles[len(candles)-1].Close
	prevClose := candles[len(candles)-2].Close

	if price > prevClose+atrs {
		return &domain.Signal{
			Action: domain.ActionBuy,
			Price:  price,
			Reason: "close broke above expected range",
		}, nil
	}
	if price < prevClose-atrs {
		return &domain.Signal{
			Action: domain.ActionSell,
			Price:  price,
			Reason: "close broke below expected range",
		}, nil
	}
	return nil, nil
}
