package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"voltybot/config"
	"voltybot/internal/domain"
	"voltybot/internal/ports"
	"voltybot/internal/position"
	"voltybot/internal/scheduler"
	"voltybot/internal/statefile"
)

// stateSaveInterval is the cadence of the periodic state snapshot while the
// service is running. A final save still happens on shutdown.
const stateSaveInterval = 5 * time.Minute

// TradingService orchestrates the paper-trading loop: it feeds closed
// candles to the strategy and drives the position manager with the
// resulting signals. No real orders are placed; fills are simulated at
// the candle close and settled against an in-memory balance.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	feed      ports.MarketDataFeed
	posRepo   ports.PositionRepository
	tradeRepo ports.TradeRepository
	strategy  ports.Strategy
	manager   *position.Manager
	events    ports.PositionEvents // optional presentation sink

	// State fields
	mu          sync.Mutex // Protects access to state fields below
	candleCache []*domain.Candle
	balance     float64
}

// Deps bundles the dependencies of the trading service.
type Deps struct {
	Config    *config.Config
	Logger    ports.Logger
	Feed      ports.MarketDataFeed
	PosRepo   ports.PositionRepository
	TradeRepo ports.TradeRepository
	Strategy  ports.Strategy
	Manager   *position.Manager
	Events    ports.PositionEvents // optional
}

// NewTradingService creates a new application service instance.
func NewTradingService(d Deps) (*TradingService, error) {
	if d.Config == nil || d.Logger == nil || d.Feed == nil || d.PosRepo == nil || d.TradeRepo == nil || d.Strategy == nil || d.Manager == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	if d.Events != nil {
		d.Manager.RegisterListener(d.Events)
	}

	return &TradingService{
		cfg:         d.Config,
		logger:      d.Logger,
		feed:        d.Feed,
		posRepo:     d.PosRepo,
		tradeRepo:   d.TradeRepo,
		strategy:    d.Strategy,
		manager:     d.Manager,
		events:      d.Events,
		candleCache: make([]*domain.Candle, 0, d.Config.CandleCacheSize),
		balance:     d.Config.InitialCapital,
	}, nil
}

// Balance returns the current paper balance.
func (s *TradingService) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Start begins the paper-trading main loop and blocks until the context is
// canceled or the market data stream fails permanently.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting paper trading service...", map[string]interface{}{
		"symbol":   s.cfg.Symbol,
		"interval": s.cfg.Interval,
		"strategy": s.strategy.Name(),
		"balance":  s.balance,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// --- Initialization Steps ---
	// 1. Verify feed connectivity
	if err := s.feed.Ping(ctx); err != nil {
		s.logger.Error(ctx, err, "Market data feed is unreachable")
		return fmt.Errorf("feed ping failed: %w", err)
	}
	serverTime, err := s.feed.GetServerTime(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to read feed server time")
		return fmt.Errorf("failed to read server time: %w", err)
	}
	s.logger.Info(ctx, "Feed connectivity verified", map[string]interface{}{
		"serverTime": serverTime,
		"clockSkew":  time.Since(serverTime).String(),
	})

	// 2. Restore previously exported state, if configured
	if s.cfg.StateFilePath != "" {
		if err := s.loadStateFile(ctx, s.cfg.StateFilePath); err != nil {
			s.logger.Error(ctx, err, "Failed to restore state file")
			return fmt.Errorf("failed to restore state: %w", err)
		}
	}

	// 3. Load warm-up candles for the strategy
	requiredPoints := s.strategy.RequiredDataPoints()
	warmup := requiredPoints
	if warmup < s.cfg.CandleCacheSize {
		warmup = s.cfg.CandleCacheSize
	}
	s.logger.Info(ctx, "Loading warm-up candles", map[string]interface{}{"count": warmup, "requiredPoints": requiredPoints})
	initialCandles, err := s.feed.GetCandles(ctx, s.cfg.Symbol, s.cfg.Interval, warmup)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load warm-up candles")
		return fmt.Errorf("failed to load warm-up candles: %w", err)
	}
	if len(initialCandles) < requiredPoints {
		err := fmt.Errorf("%w: loaded %d candles, strategy requires %d", ports.ErrInsufficientData, len(initialCandles), requiredPoints)
		s.logger.Error(ctx, err, "Insufficient historical data")
		return err
	}
	s.candleCache = initialCandles
	s.logger.Info(ctx, "Warm-up candles loaded", map[string]interface{}{"count": len(s.candleCache)})

	// --- Start Candle Stream ---
	wsDoneCh, wsStopCh, err := s.feed.StreamCandles(ctx, s.cfg.Symbol, s.cfg.Interval, s.handleCandle, s.handleStreamError)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to start candle stream")
		return fmt.Errorf("failed to start candle stream: %w", err)
	}
	s.logger.Info(ctx, "Candle stream started", map[string]interface{}{"symbol": s.cfg.Symbol, "interval": s.cfg.Interval})

	// Snapshot state periodically so a crash loses at most one interval.
	if s.cfg.StateFilePath != "" {
		saver, err := scheduler.New(stateSaveInterval, scheduler.TaskFunc(func(ctx context.Context) error {
			return s.SaveStateFile(s.cfg.StateFilePath)
		}), s.logger)
		if err != nil {
			return fmt.Errorf("failed to build state saver: %w", err)
		}
		go func() {
			if err := saver.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(ctx, err, "State saver stopped")
			}
		}()
	}

	// --- Main Loop ---
	// The work happens in handleCandle; wait for shutdown or stream failure.
	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Context cancelled, initiating shutdown...")
		select {
		case wsStopCh <- struct{}{}:
		default:
		}
		select {
		case <-wsDoneCh:
			s.logger.Info(ctx, "Candle stream shut down gracefully")
		case <-time.After(5 * time.Second):
			s.logger.Warn(ctx, "Timeout waiting for candle stream to shut down")
		}
	case <-wsDoneCh:
		runErr = fmt.Errorf("candle stream stopped unexpectedly")
		s.logger.Error(ctx, runErr, "Candle stream stopped")
	}

	// Persist state on the way out regardless of how we got here.
	if s.cfg.StateFilePath != "" {
		if err := s.SaveStateFile(s.cfg.StateFilePath); err != nil {
			s.logger.Error(ctx, err, "Failed to save state file on shutdown")
		} else {
			s.logger.Info(ctx, "State saved", map[string]interface{}{"path": s.cfg.StateFilePath})
		}
	}

	s.logger.Info(ctx, "Paper trading service stopped.")
	return runErr
}

// handleCandle processes incoming candle data from the stream. This is the
// core loop triggered by new price data.
func (s *TradingService) handleCandle(candle *domain.Candle) {
	ctx := context.Background()

	s.logger.Debug(ctx, "Received candle event", map[string]interface{}{
		"symbol":    candle.Symbol,
		"closeTime": candle.CloseTime,
		"close":     candle.Close,
		"isFinal":   candle.IsFinal,
	})

	// Only final candles drive decisions; mid-bar updates still move the
	// risk thresholds so stops fire without waiting for the bar to close.
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkRiskExits(ctx, candle.Close, candle.CloseTime)

	if !candle.IsFinal {
		return
	}

	s.candleCache = append(s.candleCache, candle)
	if len(s.candleCache) > s.cfg.CandleCacheSize {
		s.candleCache = s.candleCache[len(s.candleCache)-s.cfg.CandleCacheSize:]
	}

	sig, err := s.strategy.Evaluate(ctx, s.candleCache)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientData) {
			s.logger.Debug(ctx, "Strategy warming up", map[string]interface{}{"cached": len(s.candleCache)})
		} else {
			s.logger.Warn(ctx, "Strategy evaluation failed, treating as no signal", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	if sig == nil {
		return
	}

	s.logger.Info(ctx, "Strategy signal", map[string]interface{}{
		"action":     sig.Action,
		"price":      sig.Price,
		"reason":     sig.Reason,
		"confidence": sig.Confidence,
	})
	if s.events != nil {
		s.events.OnSignal(sig)
	}

	switch sig.Action {
	case domain.ActionBuy:
		s.openFromSignal(ctx, candle)
	case domain.ActionSell:
		s.closeFromSignal(ctx, candle)
	}
}

// checkRiskExits drains any take-profit, stop-loss or trailing-stop hits at
// the given price. Assumes s.mu is held.
func (s *TradingService) checkRiskExits(ctx context.Context, price float64, ts time.Time) {
	for {
		closeSig := s.manager.Update(ctx, price)
		if closeSig == nil {
			return
		}
		pos := closeSig.Position
		if _, err := s.manager.CloseByID(ctx, pos.ID, price, ts, closeSig.Reason); err != nil {
			s.logger.Error(ctx, err, "Failed to close position on risk exit", map[string]interface{}{"positionID": pos.ID})
			return
		}
		s.settleClose(ctx, pos)
	}
}

// openFromSignal opens a simulated LONG position at the candle close.
// Assumes s.mu is held.
func (s *TradingService) openFromSignal(ctx context.Context, candle *domain.Candle) {
	size := s.manager.SizeFor(s.balance, candle.Close)
	if size <= 0 {
		s.logger.Warn(ctx, "Computed position size is zero, skipping entry", map[string]interface{}{"balance": s.balance, "price": candle.Close})
		return
	}
	cost := size * candle.Close
	if cost > s.balance {
		s.logger.Warn(ctx, "Insufficient paper balance for entry", map[string]interface{}{"balance": s.balance, "cost": cost})
		return
	}

	pos, err := s.manager.Open(ctx, domain.Long, candle.Close, size, candle.CloseTime)
	if err != nil {
		if errors.Is(err, ports.ErrPositionAlreadyOpen) {
			s.logger.Debug(ctx, "All position slots in use, ignoring entry signal")
			return
		}
		s.logger.Error(ctx, err, "Failed to open position")
		return
	}

	s.balance -= cost
	if err := s.posRepo.Create(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "Failed to persist opened position", map[string]interface{}{"positionID": pos.ID})
	}
	s.logger.Info(ctx, "Position opened", map[string]interface{}{
		"positionID": pos.ID,
		"entryPrice": pos.EntryPrice,
		"size":       pos.Size,
		"takeProfit": pos.TakeProfitPrice,
		"stopLoss":   pos.StopLossPrice,
		"balance":    s.balance,
	})
}

// closeFromSignal closes the oldest open position at the candle close.
// Assumes s.mu is held.
func (s *TradingService) closeFromSignal(ctx context.Context, candle *domain.Candle) {
	pos := s.manager.CurrentPosition()
	if pos == nil {
		s.logger.Debug(ctx, "Sell signal with no open position, ignoring")
		return
	}
	if _, err := s.manager.Close(ctx, candle.Close, candle.CloseTime, domain.ExitReasonSignal); err != nil {
		if errors.Is(err, ports.ErrNoOpenPosition) {
			return
		}
		s.logger.Error(ctx, err, "Failed to close position on signal", map[string]interface{}{"positionID": pos.ID})
		return
	}
	s.settleClose(ctx, pos)
}

// settleClose credits the paper balance and persists the closed position
// and its trade record. Assumes s.mu is held and pos is already closed.
func (s *TradingService) settleClose(ctx context.Context, pos *domain.Position) {
	s.balance += pos.EntryPrice*pos.Size + pos.RealizedPnL

	if err := s.posRepo.Update(ctx, pos); err != nil {
		s.logger.Error(ctx, err, "Failed to persist closed position", map[string]interface{}{"positionID": pos.ID})
	}
	trade := domain.TradeFromPosition(pos)
	if _, err := s.tradeRepo.CreateTrade(ctx, trade); err != nil {
		s.logger.Error(ctx, err, "Failed to persist trade record", map[string]interface{}{"positionID": pos.ID})
	}

	s.logger.Info(ctx, "Position closed", map[string]interface{}{
		"positionID": pos.ID,
		"exitPrice":  pos.ExitPrice,
		"reason":     pos.ExitReason,
		"pnl":        pos.RealizedPnL,
		"pnlPct":     pos.RealizedPnLPct,
		"balance":    s.balance,
	})
}

// handleStreamError handles errors reported by the candle stream. The
// adapter owns reconnection; this is informational only.
func (s *TradingService) handleStreamError(err error) {
	s.logger.Error(context.Background(), err, "Candle stream error reported")
}

// --- State export/import ---

// ExportState serializes the current settings and paper-trading state.
func (s *TradingService) ExportState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.manager.History()
	trades := make([]*domain.Trade, 0, len(history))
	for _, pos := range history {
		trades = append(trades, domain.TradeFromPosition(pos))
	}

	risk := s.manager.Settings()
	doc := &statefile.Document{
		Settings: &statefile.Settings{
			Symbol:          s.cfg.Symbol,
			Timeframe:       s.cfg.Interval,
			StrategyID:      s.cfg.StrategyID,
			StrategyParams:  s.cfg.StrategyParams,
			PositionSizePct: risk.PositionSizePct,
			MaxPositions:    risk.MaxPositions,
			UseTakeProfit:   risk.UseTakeProfit,
			TakeProfitPct:   risk.TakeProfitPct,
			UseStopLoss:     risk.UseStopLoss,
			StopLossPct:     risk.StopLossPct,
			UseTrailingStop: risk.UseTrailingStop,
			TrailingStopPct: risk.TrailingStopPct,
		},
		PaperTrading: true,
		PaperState: &statefile.PaperState{
			Balance:   s.balance,
			Positions: s.manager.OpenPositions(),
			Trades:    trades,
		},
	}
	return statefile.Export(doc)
}

// SaveStateFile writes the exported state to path.
func (s *TradingService) SaveStateFile(path string) error {
	data, err := s.ExportState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreState applies an imported document: risk settings, paper balance,
// open positions and the closed-trade history. The strategy selection in the
// document is applied at startup by the composition root, not here.
func (s *TradingService) RestoreState(ctx context.Context, doc *statefile.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.manager.SetSettings(ctx, doc.Settings.RiskSettings()); err != nil {
		return fmt.Errorf("imported settings are invalid: %w", err)
	}
	if doc.PaperState != nil {
		if err := s.manager.Restore(doc.PaperState.Positions); err != nil {
			return err
		}
		history := make([]*domain.Position, 0, len(doc.PaperState.Trades))
		for _, trade := range doc.PaperState.Trades {
			history = append(history, domain.PositionFromTrade(trade))
		}
		if err := s.manager.RestoreHistory(history); err != nil {
			return err
		}
		s.balance = doc.PaperState.Balance
	}
	return nil
}

func (s *TradingService) loadStateFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info(ctx, "No state file found, starting fresh", map[string]interface{}{"path": path})
			return nil
		}
		return err
	}
	doc, err := statefile.Import(data)
	if err != nil {
		return err
	}
	if err := s.RestoreState(ctx, doc); err != nil {
		return err
	}
	s.logger.Info(ctx, "State restored", map[string]interface{}{"path": path, "balance": s.balance, "openPositions": len(s.manager.OpenPositions())})
	return nil
}
