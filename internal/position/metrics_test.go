package position

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltybot/internal/domain"
)

func closedPosition(id string, pnl float64) *domain.Position {
	entry := 100.0
	return &domain.Position{
		ID:             id,
		Symbol:         "ETHUSDT",
		Side:           domain.Long,
		EntryPrice:     entry,
		ExitPrice:      entry + pnl,
		Size:           1,
		EntryTime:      time.Now().Add(-time.Hour),
		ExitTime:       time.Now(),
		Status:         domain.StatusClosed,
		ExitReason:     domain.ExitReasonSignal,
		RealizedPnL:    pnl,
		RealizedPnLPct: pnl / entry * 100,
	}
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(nil, 10000)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Equal(t, 0.0, m.MaxDrawdownPct)
	assert.False(t, math.IsNaN(m.AverageTrade))
}

func TestComputeMetrics_Mixed(t *testing.T) {
	history := []*domain.Position{
		closedPosition("a", 100),
		closedPosition("b", -50),
		closedPosition("c", 30),
		closedPosition("d", 0), // break-even counts as a loss
	}

	m := ComputeMetrics(history, 10000)
	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
	assert.InDelta(t, 130.0, m.TotalProfit, 1e-9)
	assert.InDelta(t, 50.0, m.TotalLoss, 1e-9)
	assert.InDelta(t, 80.0, m.NetProfit, 1e-9)
	assert.InDelta(t, 2.6, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 0.8, m.ReturnPct, 1e-9)
	assert.InDelta(t, 20.0, m.AverageTrade, 1e-9)
	assert.InDelta(t, 65.0, m.AverageWin, 1e-9)
	assert.InDelta(t, 25.0, m.AverageLoss, 1e-9)
}

func TestComputeMetrics_ProfitFactorEdges(t *testing.T) {
	allWins := []*domain.Position{closedPosition("a", 10), closedPosition("b", 20)}
	m := ComputeMetrics(allWins, 10000)
	assert.True(t, math.IsInf(m.ProfitFactor, 1), "no losses with profit yields +Inf")

	allFlat := []*domain.Position{closedPosition("a", 0)}
	m = ComputeMetrics(allFlat, 10000)
	assert.Equal(t, 0.0, m.ProfitFactor)
}

func TestComputeMetrics_MaxDrawdown(t *testing.T) {
	// Equity: 10000 -> 10100 (peak) -> 9900 -> 10200 (peak) -> 9690.
	// Worst decline: (10200-9690)/10200 = 5%.
	history := []*domain.Position{
		closedPosition("a", 100),
		closedPosition("b", -200),
		closedPosition("c", 300),
		closedPosition("d", -510),
	}

	m := ComputeMetrics(history, 10000)
	assert.InDelta(t, 5.0, m.MaxDrawdownPct, 1e-9)
}

func TestComputeMetrics_ZeroCapital(t *testing.T) {
	history := []*domain.Position{closedPosition("a", 100)}
	m := ComputeMetrics(history, 0)
	assert.Equal(t, 0.0, m.ReturnPct)
	assert.Equal(t, 0.0, m.MaxDrawdownPct)
}

func TestHistoryCSV(t *testing.T) {
	history := []*domain.Position{
		closedPosition("a", 100),
		closedPosition("b", -50),
	}

	out := HistoryCSV(history)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,side,entry_price"))
	assert.True(t, strings.HasPrefix(lines[1], "a,LONG,100.00,200.00"))
	assert.Contains(t, lines[2], "-50.00")
}
