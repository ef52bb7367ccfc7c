package ports

import "voltybot/internal/domain"

// PositionEvents is implemented by presentation-layer consumers interested
// in position lifecycle changes. Callbacks run synchronously on the thread
// that mutated the manager; implementations must not call back into it.
type PositionEvents interface {
	OnPositionOpened(pos *domain.Position)
	OnPositionUpdated(pos *domain.Position)
	OnPositionClosed(pos *domain.Position)
	OnSignal(sig *domain.Signal)
	OnMetricsUpdated(m *domain.PerformanceMetrics)
}
