package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltybot/config"
	"voltybot/internal/domain"
	"voltybot/internal/position"
	"voltybot/internal/statefile"
	"voltybot/internal/strategy"
)

// Mock implementations

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockStrategy struct {
	signal *domain.Signal
	err    error
}

func (m *mockStrategy) Name() string            { return "mock" }
func (m *mockStrategy) RequiredDataPoints() int { return 1 }
func (m *mockStrategy) Evaluate(ctx context.Context, candles []*domain.Candle) (*domain.Signal, error) {
	return m.signal, m.err
}

type mockFeed struct {
	candles []*domain.Candle
	price   float64
}

func (m *mockFeed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	return m.candles, nil
}
func (m *mockFeed) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, nil
}
func (m *mockFeed) StreamCandles(ctx context.Context, symbol, interval string, handler func(candle *domain.Candle), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}), nil
}
func (m *mockFeed) GetServerTime(ctx context.Context) (time.Time, error) { return time.Now(), nil }
func (m *mockFeed) Ping(ctx context.Context) error                       { return nil }

type mockPosRepo struct {
	created []*domain.Position
	updated []*domain.Position
}

func (m *mockPosRepo) Create(ctx context.Context, pos *domain.Position) error {
	m.created = append(m.created, pos)
	return nil
}
func (m *mockPosRepo) Update(ctx context.Context, pos *domain.Position) error {
	m.updated = append(m.updated, pos)
	return nil
}
func (m *mockPosRepo) FindOpenBySymbol(ctx context.Context, symbol string) ([]*domain.Position, error) {
	return nil, nil
}
func (m *mockPosRepo) FindAll(ctx context.Context) ([]*domain.Position, error) { return nil, nil }

type mockTradeRepo struct {
	trades []*domain.Trade
}

func (m *mockTradeRepo) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.trades = append(m.trades, trade)
	return int64(len(m.trades)), nil
}
func (m *mockTradeRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	return m.trades, nil
}
func (m *mockTradeRepo) GetTotalPnL(ctx context.Context) (float64, error) { return 0, nil }

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Symbol:          "ETHUSDT",
		Interval:        "1m",
		StrategyID:      strategy.IDVoltyExpansion,
		InitialCapital:  10000,
		CandleCacheSize: 100,
		Risk: position.RiskSettings{
			UseStopLoss:     true,
			StopLossPct:     2,
			UseTakeProfit:   true,
			TakeProfitPct:   5,
			PositionSizePct: 10,
			MaxPositions:    1,
		},
	}
}

func testManager(t *testing.T, cfg *config.Config) *position.Manager {
	t.Helper()
	seq := 0
	mgr, err := position.NewManager(position.Config{
		Symbol:         cfg.Symbol,
		InitialCapital: cfg.InitialCapital,
		Settings:       cfg.Risk,
		Logger:         &mockLogger{},
		NewID: func() string {
			seq++
			return fmt.Sprintf("test-%d", seq)
		},
	})
	require.NoError(t, err)
	return mgr
}

func testService(t *testing.T, cfg *config.Config, strat *mockStrategy) (*TradingService, *mockPosRepo, *mockTradeRepo) {
	t.Helper()
	posRepo := &mockPosRepo{}
	tradeRepo := &mockTradeRepo{}
	svc, err := NewTradingService(Deps{
		Config:    cfg,
		Logger:    &mockLogger{},
		Feed:      &mockFeed{},
		PosRepo:   posRepo,
		TradeRepo: tradeRepo,
		Strategy:  strat,
		Manager:   testManager(t, cfg),
	})
	require.NoError(t, err)
	return svc, posRepo, tradeRepo
}

func candleAt(close float64, ts time.Time) *domain.Candle {
	return &domain.Candle{
		OpenTime:  ts.Add(-time.Minute),
		CloseTime: ts,
		Symbol:    "ETHUSDT",
		Interval:  "1m",
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    100,
		IsFinal:   true,
	}
}

// --- Tests ---

func TestNewTradingService_MissingDeps(t *testing.T) {
	_, err := NewTradingService(Deps{})
	assert.Error(t, err)
}

func TestHandleCandle_BuySignalOpensPosition(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, posRepo, _ := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))

	pos := svc.manager.CurrentPosition()
	require.NotNil(t, pos)
	assert.Equal(t, domain.Long, pos.Side)
	assert.Equal(t, 2000.0, pos.EntryPrice)
	// 10% of 10000 at price 2000 = 0.5 units
	assert.InDelta(t, 0.5, pos.Size, 1e-9)
	assert.InDelta(t, 9000.0, svc.Balance(), 1e-9)
	require.Len(t, posRepo.created, 1)
}

func TestHandleCandle_SecondBuyIgnoredWhenSlotFull(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, posRepo, _ := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))
	svc.handleCandle(candleAt(2010, now.Add(time.Minute)))

	assert.Len(t, svc.manager.OpenPositions(), 1)
	assert.Len(t, posRepo.created, 1)
}

func TestHandleCandle_SellSignalClosesAndSettles(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, posRepo, tradeRepo := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))

	strat.signal = &domain.Signal{Action: domain.ActionSell, Price: 2040}
	svc.handleCandle(candleAt(2040, now.Add(time.Minute)))

	assert.Nil(t, svc.manager.CurrentPosition())
	require.Len(t, tradeRepo.trades, 1)
	trade := tradeRepo.trades[0]
	assert.Equal(t, domain.ExitReasonSignal, trade.ExitReason)
	// 0.5 units, +40 per unit = +20
	assert.InDelta(t, 20.0, trade.PnL, 1e-9)
	assert.InDelta(t, 10020.0, svc.Balance(), 1e-9)
	require.Len(t, posRepo.updated, 1)
	assert.Equal(t, domain.StatusClosed, posRepo.updated[0].Status)
}

func TestHandleCandle_StopLossFiresBeforeSignal(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, _, tradeRepo := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))

	// Price drops through the 2% stop (1960).
	strat.signal = nil
	svc.handleCandle(candleAt(1950, now.Add(time.Minute)))

	assert.Nil(t, svc.manager.CurrentPosition())
	require.Len(t, tradeRepo.trades, 1)
	assert.Equal(t, domain.ExitReasonStopLoss, tradeRepo.trades[0].ExitReason)
	// Exit fills at the observed price, not the threshold.
	assert.InDelta(t, -25.0, tradeRepo.trades[0].PnL, 1e-9)
}

func TestHandleCandle_NonFinalCandleStillMovesStops(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, _, tradeRepo := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))
	cacheBefore := len(svc.candleCache)

	strat.signal = nil
	midBar := candleAt(1950, now.Add(30*time.Second))
	midBar.IsFinal = false
	svc.handleCandle(midBar)

	// Stop fired on the mid-bar price but the cache did not grow.
	assert.Nil(t, svc.manager.CurrentPosition())
	require.Len(t, tradeRepo.trades, 1)
	assert.Equal(t, cacheBefore, len(svc.candleCache))
}

func TestHandleCandle_EvaluationErrorIsNoSignal(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{err: fmt.Errorf("boom")}
	svc, posRepo, _ := testService(t, cfg, strat)

	svc.handleCandle(candleAt(2000, time.Now()))

	assert.Nil(t, svc.manager.CurrentPosition())
	assert.Empty(t, posRepo.created)
}

func TestStateRoundTrip(t *testing.T) {
	cfg := testConfig()
	strat := &mockStrategy{signal: &domain.Signal{Action: domain.ActionBuy, Price: 2000}}
	svc, _, _ := testService(t, cfg, strat)

	now := time.Now()
	svc.handleCandle(candleAt(2000, now))

	// Close the first position on a sell signal, then open a second one so
	// the export carries both a closed trade and an open position.
	strat.signal = &domain.Signal{Action: domain.ActionSell, Price: 2040}
	svc.handleCandle(candleAt(2040, now.Add(time.Minute)))
	strat.signal = &domain.Signal{Action: domain.ActionBuy, Price: 2000}
	svc.handleCandle(candleAt(2000, now.Add(2*time.Minute)))

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, svc.SaveStateFile(path))

	// A fresh service imports the file and resumes with the same state.
	strat2 := &mockStrategy{}
	svc2, _, _ := testService(t, cfg, strat2)
	require.NoError(t, svc2.loadStateFile(context.Background(), path))

	assert.InDelta(t, svc.Balance(), svc2.Balance(), 1e-9)
	require.Len(t, svc2.manager.OpenPositions(), 1)
	restored := svc2.manager.OpenPositions()[0]
	original := svc.manager.OpenPositions()[0]
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.EntryPrice, restored.EntryPrice)
	assert.Equal(t, original.StopLossPrice, restored.StopLossPrice)

	// The closed-trade history survives the round trip too.
	history := svc2.manager.History()
	require.Len(t, history, 1)
	assert.Equal(t, "test-1", history[0].ID)
	assert.InDelta(t, 20.0, history[0].RealizedPnL, 1e-9)
	assert.Equal(t, 1, svc2.manager.Metrics(cfg.InitialCapital).TotalTrades)

	// Re-exporting yields the same trade records, not an empty ledger.
	data, err := svc2.ExportState()
	require.NoError(t, err)
	doc, err := statefile.Import(data)
	require.NoError(t, err)
	require.NotNil(t, doc.PaperState)
	require.Len(t, doc.PaperState.Trades, 1)
	assert.Equal(t, "test-1", doc.PaperState.Trades[0].PositionID)
	assert.InDelta(t, 20.0, doc.PaperState.Trades[0].PnL, 1e-9)
}

func TestRestoreState_RejectsInvalidSettings(t *testing.T) {
	cfg := testConfig()
	svc, _, _ := testService(t, cfg, &mockStrategy{})

	doc := &statefile.Document{
		Settings: &statefile.Settings{
			Symbol:       "ETHUSDT",
			UseStopLoss:  true,
			StopLossPct:  -5,
			MaxPositions: 1,
		},
	}
	err := svc.RestoreState(context.Background(), doc)
	assert.Error(t, err)
}
