package domain

// PerformanceMetrics holds the rollup derived from a sequence of closed
// positions. All percentage fields are expressed 0-100. ProfitFactor is
// +Inf only when there are winning trades and no losing ones; every other
// degenerate case yields zeros, never NaN.
type PerformanceMetrics struct {
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64 // winning / total * 100
	TotalProfit    float64 // gross profit across winning trades
	TotalLoss      float64 // gross loss across losing trades (positive number)
	NetProfit      float64 // TotalProfit - TotalLoss
	ProfitFactor   float64 // TotalProfit / TotalLoss
	ReturnPct      float64 // NetProfit / initial capital * 100
	MaxDrawdownPct float64 // worst peak-to-trough equity decline
	AverageTrade   float64
	AverageWin     float64
	AverageLoss    float64
}
