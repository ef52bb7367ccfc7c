// Package backtest replays a finite candle series through the strategy
// evaluator and position lifecycle manager without wall-clock timers,
// producing the same trade records as live operation would.
package backtest

import (
	"context"
	"errors"
	"fmt"

	"voltybot/internal/domain"
	"voltybot/internal/ports"
	"voltybot/internal/position"
	"voltybot/internal/strategy"
)

// Config holds configuration for a backtest run.
type Config struct {
	Symbol         string
	StrategyID     string
	StrategyParams strategy.Config
	InitialCapital float64
	PositionSize   float64 // absolute base-asset size per trade
	Settings       position.RiskSettings
}

// Result holds the trades and summary produced by a backtest.
type Result struct {
	Trades  []*domain.Trade
	Summary *domain.PerformanceMetrics
}

// Run replays the candles in order. Each bar first checks the open
// positions against the risk thresholds using the bar's close (no intrabar
// fills), then evaluates the strategy on the prefix ending at the bar:
// a BUY opens a position when a slot is free, a SELL closes the oldest.
// The run is deterministic: no wall clock or randomness influences it.
func Run(ctx context.Context, cfg Config, candles []*domain.Candle, logger ports.Logger) (*Result, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for backtest")
	}
	if cfg.PositionSize <= 0 {
		return nil, fmt.Errorf("%w: position size must be positive", ports.ErrInvalidConfiguration)
	}

	strat, err := strategy.New(cfg.StrategyID, cfg.StrategyParams, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build strategy: %w", err)
	}

	seq := 0
	mgr, err := position.NewManager(position.Config{
		Symbol:         cfg.Symbol,
		InitialCapital: cfg.InitialCapital,
		Settings:       cfg.Settings,
		Logger:         logger,
		MaxHistory:     -1, // metrics must cover every closed trade
		NewID: func() string {
			seq++
			return fmt.Sprintf("bt-%d", seq)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build position manager: %w", err)
	}

	warmup := strat.RequiredDataPoints()
	if len(candles) < warmup {
		return nil, fmt.Errorf("%w: backtest needs %d candles for warm-up, got %d", ports.ErrInsufficientData, warmup, len(candles))
	}

	for i := warmup; i < len(candles); i++ {
		bar := candles[i]

		// Risk thresholds first, on the bar's close. Drain every crossed
		// position so one bar can stop out the whole FIFO queue, matching
		// the live tick handling.
		for {
			cs := mgr.Update(ctx, bar.Close)
			if cs == nil {
				break
			}
			if _, err := mgr.CloseByID(ctx, cs.Position.ID, bar.Close, bar.OpenTime, cs.Reason); err != nil {
				return nil, fmt.Errorf("failed to close position %s: %w", cs.Position.ID, err)
			}
		}

		sig, err := strat.Evaluate(ctx, candles[:i+1])
		if err != nil {
			// Warm-up shortfalls cannot happen past the prefix check;
			// anything else is treated as no signal, like the live path.
			logger.Warn(ctx, "Strategy evaluation failed, skipping bar", map[string]interface{}{
				"bar":   i,
				"error": err.Error(),
			})
			continue
		}
		if sig == nil {
			continue
		}

		switch sig.Action {
		case domain.ActionBuy:
			_, err := mgr.Open(ctx, domain.Long, sig.Price, cfg.PositionSize, bar.OpenTime)
			if err != nil && !errors.Is(err, ports.ErrPositionAlreadyOpen) {
				return nil, fmt.Errorf("failed to open position: %w", err)
			}
		case domain.ActionSell:
			_, err := mgr.Close(ctx, sig.Price, bar.OpenTime, domain.ExitReasonSignal)
			if err != nil && !errors.Is(err, ports.ErrNoOpenPosition) {
				return nil, fmt.Errorf("failed to close position: %w", err)
			}
		}
	}

	history := mgr.History()
	trades := make([]*domain.Trade, len(history))
	for i, pos := range history {
		trades[i] = domain.TradeFromPosition(pos)
	}
	return &Result{
		Trades:  trades,
		Summary: mgr.Metrics(cfg.InitialCapital),
	}, nil
}
