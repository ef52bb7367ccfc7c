package position

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"
	"time"

	"voltybot/internal/domain"
)

// ComputeMetrics derives the performance rollup from closed positions in
// close order. An empty history yields an all-zero struct, never NaN.
func ComputeMetrics(history []*domain.Position, initialCapital float64) *domain.PerformanceMetrics {
	m := &domain.PerformanceMetrics{}
	if len(history) == 0 {
		return m
	}

	for _, pos := range history {
		m.TotalTrades++
		if pos.RealizedPnL > 0 {
			m.WinningTrades++
			m.TotalProfit += pos.RealizedPnL
		} else {
			m.LosingTrades++
			m.TotalLoss -= pos.RealizedPnL
		}
	}
	m.NetProfit = m.TotalProfit - m.TotalLoss
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100

	switch {
	case m.TotalLoss > 0:
		m.ProfitFactor = m.TotalProfit / m.TotalLoss
	case m.TotalProfit > 0:
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = 0
	}

	if initialCapital > 0 {
		m.ReturnPct = m.NetProfit / initialCapital * 100
	}
	m.MaxDrawdownPct = maxDrawdown(history, initialCapital)

	m.AverageTrade = m.NetProfit / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AverageWin = m.TotalProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = m.TotalLoss / float64(m.LosingTrades)
	}
	return m
}

// maxDrawdown replays the equity curve in close order and tracks the worst
// peak-to-trough percentage decline.
func maxDrawdown(history []*domain.Position, initialCapital float64) float64 {
	if initialCapital <= 0 {
		return 0
	}
	balance := initialCapital
	peak := initialCapital
	worst := 0.0
	for _, pos := range history {
		balance += pos.RealizedPnL
		if balance > peak {
			peak = balance
		} else if dd := (peak - balance) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// HistoryCSV renders the closed-position history as CSV, one row per trade.
func HistoryCSV(history []*domain.Position) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"id", "side", "entry_price", "exit_price", "size", "entry_time", "exit_time", "pnl", "pnl_pct", "exit_reason"})
	for _, pos := range history {
		w.Write([]string{
			pos.ID,
			string(pos.Side),
			strconv.FormatFloat(pos.EntryPrice, 'f', 2, 64),
			strconv.FormatFloat(pos.ExitPrice, 'f', 2, 64),
			strconv.FormatFloat(pos.Size, 'f', 6, 64),
			pos.EntryTime.Format(time.RFC3339),
			pos.ExitTime.Format(time.RFC3339),
			strconv.FormatFloat(pos.RealizedPnL, 'f', 2, 64),
			strconv.FormatFloat(pos.RealizedPnLPct, 'f', 2, 64),
			string(pos.ExitReason),
		})
	}
	w.Flush()
	return sb.String()
}
