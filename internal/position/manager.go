// Package position owns the simulated position lifecycle: opening against a
// signal, ratcheting risk levels on price updates, closing exactly once, and
// rolling closed positions into a performance ledger.
package position

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voltybot/internal/domain"
	"voltybot/internal/ports"
)

// defaultMaxHistory bounds the in-memory closed-position ledger for live
// operation. Backtests disable the cap so metrics cover every trade.
const defaultMaxHistory = 100

// RiskSettings holds the take-profit/stop-loss/trailing-stop toggles and
// sizing parameters. Percentages are expressed 0-100 (2 means 2%).
type RiskSettings struct {
	UseTakeProfit   bool
	TakeProfitPct   float64
	UseStopLoss     bool
	StopLossPct     float64
	UseTrailingStop bool
	TrailingStopPct float64

	PositionSizePct float64 // share of balance committed per position
	MaxPositions    int     // <=1 selects single-slot mode, >1 a FIFO queue
}

// Validate rejects non-positive percentages for enabled rules.
func (s RiskSettings) Validate() error {
	var errs []string
	if s.UseTakeProfit && s.TakeProfitPct <= 0 {
		errs = append(errs, "take profit percentage must be positive")
	}
	if s.UseStopLoss && s.StopLossPct <= 0 {
		errs = append(errs, "stop loss percentage must be positive")
	}
	if s.UseTrailingStop && s.TrailingStopPct <= 0 {
		errs = append(errs, "trailing stop percentage must be positive")
	}
	if s.PositionSizePct < 0 || s.PositionSizePct > 100 {
		errs = append(errs, "position size percentage must be between 0 and 100")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrInvalidConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

// CloseSignal reports that a price update crossed a risk threshold.
type CloseSignal struct {
	Position *domain.Position
	Reason   domain.ExitReason
}

// Config holds configuration for the Manager.
type Config struct {
	Symbol         string
	InitialCapital float64
	Settings       RiskSettings
	Logger         ports.Logger

	// NewID overrides position id generation. Defaults to random UUIDs;
	// the backtester injects a sequential generator so repeated runs
	// produce identical trade records.
	NewID func() string

	// MaxHistory bounds the closed-position ledger. Zero selects the
	// default; a negative value keeps every closed position.
	MaxHistory int
}

// Manager owns the open position slot (or FIFO queue) and the closed-trade
// history. It performs no I/O and is driven by discrete external events;
// callers serialize access.
type Manager struct {
	cfg        Config
	settings   RiskSettings
	maxHistory int                // <=0 keeps every closed position
	open       []*domain.Position // entry order, oldest first
	history    []*domain.Position // close order, append-only
	listeners  []ports.PositionEvents
	logger     ports.Logger
}

// NewManager creates a new position lifecycle manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for position manager")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", ports.ErrInvalidConfiguration)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = defaultMaxHistory
	}
	return &Manager{
		cfg:        cfg,
		settings:   cfg.Settings,
		maxHistory: maxHistory,
		logger:     cfg.Logger,
	}, nil
}

// Settings returns the current risk settings.
func (m *Manager) Settings() RiskSettings { return m.settings }

// SetSettings replaces the risk settings and re-derives the take-profit and
// stop-loss levels of any open positions.
func (m *Manager) SetSettings(ctx context.Context, settings RiskSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	m.settings = settings
	for _, pos := range m.open {
		m.applyRiskLevels(pos)
		m.notifyUpdated(pos)
	}
	return nil
}

// RegisterListener adds a presentation-layer consumer of position events.
func (m *Manager) RegisterListener(l ports.PositionEvents) {
	m.listeners = append(m.listeners, l)
}

// CurrentPosition returns the oldest open position, or nil.
func (m *Manager) CurrentPosition() *domain.Position {
	if len(m.open) == 0 {
		return nil
	}
	return m.open[0]
}

// OpenPositions returns the open positions in entry order.
func (m *Manager) OpenPositions() []*domain.Position {
	out := make([]*domain.Position, len(m.open))
	copy(out, m.open)
	return out
}

// History returns the closed positions in close order.
func (m *Manager) History() []*domain.Position {
	out := make([]*domain.Position, len(m.history))
	copy(out, m.history)
	return out
}

// Restore replaces the open positions with previously exported state, in
// entry order. Risk levels are kept as exported, not re-derived.
func (m *Manager) Restore(positions []*domain.Position) error {
	open := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p == nil || !p.IsOpen() {
			return fmt.Errorf("%w: restored positions must be open", ports.ErrInvalidConfiguration)
		}
		open = append(open, p)
	}
	m.open = open
	return nil
}

// RestoreHistory replaces the closed-position ledger with previously
// exported trades, in close order. The retention cap still applies.
func (m *Manager) RestoreHistory(positions []*domain.Position) error {
	history := make([]*domain.Position, 0, len(positions))
	for _, p := range positions {
		if p == nil || p.IsOpen() {
			return fmt.Errorf("%w: restored history entries must be closed", ports.ErrInvalidConfiguration)
		}
		history = append(history, p)
	}
	m.history = m.trimHistory(history)
	return nil
}

func (m *Manager) trimHistory(history []*domain.Position) []*domain.Position {
	if m.maxHistory > 0 && len(history) > m.maxHistory {
		return history[len(history)-m.maxHistory:]
	}
	return history
}

// SizeFor computes the base-asset position size for a balance at a price
// from the configured size percentage.
func (m *Manager) SizeFor(balance, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return balance * m.settings.PositionSizePct / 100 / price
}

// Open creates a new position. In single-slot mode it fails with
// ErrPositionAlreadyOpen while a position is open; in FIFO mode it fails
// once the queue holds MaxPositions entries. State is unchanged on failure.
func (m *Manager) Open(ctx context.Context, side domain.Side, entryPrice, size float64, ts time.Time) (*domain.Position, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive, got %v", ports.ErrInvalidConfiguration, entryPrice)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %v", ports.ErrInvalidConfiguration, size)
	}
	maxOpen := m.settings.MaxPositions
	if maxOpen < 1 {
		maxOpen = 1
	}
	if len(m.open) >= maxOpen {
		return nil, fmt.Errorf("%w: %d of %d slots in use", ports.ErrPositionAlreadyOpen, len(m.open), maxOpen)
	}

	pos := &domain.Position{
		ID:         m.cfg.NewID(),
		Symbol:     m.cfg.Symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Size:       size,
		EntryTime:  ts,
		Status:     domain.StatusOpen,
	}
	if side == domain.Long {
		pos.HighestPrice = entryPrice
	} else {
		pos.LowestPrice = entryPrice
	}
	m.applyRiskLevels(pos)

	m.open = append(m.open, pos)
	m.logger.Info(ctx, "Position opened", map[string]interface{}{
		"id":    pos.ID,
		"side":  pos.Side,
		"entry": pos.EntryPrice,
		"size":  pos.Size,
	})
	for _, l := range m.listeners {
		l.OnPositionOpened(pos)
	}
	return pos, nil
}

// Update refreshes unrealized P&L and trailing stops for every open
// position against the current price and returns the first crossed risk
// threshold, oldest position first. Take-profit is checked before stop-loss
// before trailing stop. Returns nil when nothing triggered.
func (m *Manager) Update(ctx context.Context, currentPrice float64) *CloseSignal {
	var triggered *CloseSignal
	for _, pos := range m.open {
		m.ratchetTrailingStop(pos, currentPrice)

		pos.UnrealizedPnL = pos.GrossPnL(currentPrice)
		pos.UnrealizedPnLPct = pos.UnrealizedPnL / (pos.EntryPrice * pos.Size) * 100

		if triggered == nil {
			if reason, ok := crossedThreshold(pos, currentPrice); ok {
				triggered = &CloseSignal{Position: pos, Reason: reason}
			}
		}
		m.notifyUpdated(pos)
	}
	return triggered
}

// Close finalizes the oldest open position (FIFO) at the exit price and
// appends it to history. It fails with ErrNoOpenPosition when nothing is
// open; history is unchanged on failure.
func (m *Manager) Close(ctx context.Context, exitPrice float64, ts time.Time, reason domain.ExitReason) (float64, error) {
	if len(m.open) == 0 {
		return 0, fmt.Errorf("%w: close requested at price %v", ports.ErrNoOpenPosition, exitPrice)
	}
	return m.closeAt(ctx, 0, exitPrice, ts, reason)
}

// CloseByID finalizes a specific open position, used when a risk threshold
// triggers on a position that is not the oldest.
func (m *Manager) CloseByID(ctx context.Context, id string, exitPrice float64, ts time.Time, reason domain.ExitReason) (float64, error) {
	for i, pos := range m.open {
		if pos.ID == id {
			return m.closeAt(ctx, i, exitPrice, ts, reason)
		}
	}
	return 0, fmt.Errorf("%w: position %s", ports.ErrNoOpenPosition, id)
}

// Reset closes every open position at the given price with reason RESET.
func (m *Manager) Reset(ctx context.Context, price float64, ts time.Time) {
	for len(m.open) > 0 {
		// closeAt pops index 0, so this terminates.
		if _, err := m.closeAt(ctx, 0, price, ts, domain.ExitReasonReset); err != nil {
			m.logger.Error(ctx, err, "Failed to close position during reset")
			return
		}
	}
}

// Metrics derives the performance rollup from the closed-position history.
func (m *Manager) Metrics(initialCapital float64) *domain.PerformanceMetrics {
	return ComputeMetrics(m.history, initialCapital)
}

func (m *Manager) closeAt(ctx context.Context, idx int, exitPrice float64, ts time.Time, reason domain.ExitReason) (float64, error) {
	pos := m.open[idx]
	if exitPrice <= 0 {
		return 0, fmt.Errorf("%w: exit price must be positive, got %v", ports.ErrInvalidConfiguration, exitPrice)
	}

	pos.ExitPrice = exitPrice
	pos.ExitTime = ts
	pos.ExitReason = reason
	pos.Status = domain.StatusClosed
	pos.RealizedPnL = pos.GrossPnL(exitPrice)
	pos.RealizedPnLPct = pos.RealizedPnL / (pos.EntryPrice * pos.Size) * 100
	pos.UnrealizedPnL = 0
	pos.UnrealizedPnLPct = 0

	m.open = append(m.open[:idx], m.open[idx+1:]...)
	m.history = append(m.history, pos)
	m.history = m.trimHistory(m.history)

	m.logger.Info(ctx, "Position closed", map[string]interface{}{
		"id":     pos.ID,
		"side":   pos.Side,
		"exit":   pos.ExitPrice,
		"reason": pos.ExitReason,
		"pnl":    pos.RealizedPnL,
	})
	for _, l := range m.listeners {
		l.OnPositionClosed(pos)
	}
	if len(m.listeners) > 0 {
		metrics := m.Metrics(m.cfg.InitialCapital)
		for _, l := range m.listeners {
			l.OnMetricsUpdated(metrics)
		}
	}
	return pos.RealizedPnL, nil
}

// applyRiskLevels derives the take-profit and stop-loss prices from the
// current settings. Disabled rules clear their level.
func (m *Manager) applyRiskLevels(pos *domain.Position) {
	long := pos.Side == domain.Long

	if m.settings.UseTakeProfit {
		if long {
			pos.TakeProfitPrice = pos.EntryPrice * (1 + m.settings.TakeProfitPct/100)
		} else {
			pos.TakeProfitPrice = pos.EntryPrice * (1 - m.settings.TakeProfitPct/100)
		}
	} else {
		pos.TakeProfitPrice = 0
	}

	if m.settings.UseStopLoss {
		if long {
			pos.StopLossPrice = pos.EntryPrice * (1 - m.settings.StopLossPct/100)
		} else {
			pos.StopLossPrice = pos.EntryPrice * (1 + m.settings.StopLossPct/100)
		}
	} else {
		pos.StopLossPrice = 0
	}
}

// ratchetTrailingStop moves the trailing stop only in the favorable
// direction: non-decreasing for LONG, non-increasing for SHORT.
func (m *Manager) ratchetTrailingStop(pos *domain.Position, currentPrice float64) {
	if !m.settings.UseTrailingStop {
		return
	}
	if pos.Side == domain.Long {
		if currentPrice > pos.HighestPrice {
			pos.HighestPrice = currentPrice
			pos.TrailingStopPrice = currentPrice * (1 - m.settings.TrailingStopPct/100)
		}
	} else {
		if currentPrice < pos.LowestPrice {
			pos.LowestPrice = currentPrice
			pos.TrailingStopPrice = currentPrice * (1 + m.settings.TrailingStopPct/100)
		}
	}
}

// crossedThreshold checks the risk levels in priority order: take-profit,
// then stop-loss, then trailing stop. The first match wins.
func crossedThreshold(pos *domain.Position, price float64) (domain.ExitReason, bool) {
	long := pos.Side == domain.Long

	if pos.TakeProfitPrice != 0 {
		if (long && price >= pos.TakeProfitPrice) || (!long && price <= pos.TakeProfitPrice) {
			return domain.ExitReasonTakeProfit, true
		}
	}
	if pos.StopLossPrice != 0 {
		if (long && price <= pos.StopLossPrice) || (!long && price >= pos.StopLossPrice) {
			return domain.ExitReasonStopLoss, true
		}
	}
	if pos.TrailingStopPrice != 0 {
		if (long && price <= pos.TrailingStopPrice) || (!long && price >= pos.TrailingStopPrice) {
			return domain.ExitReasonTrailingStop, true
		}
	}
	return "", false
}

func (m *Manager) notifyUpdated(pos *domain.Position) {
	for _, l := range m.listeners {
		l.OnPositionUpdated(pos)
	}
}
