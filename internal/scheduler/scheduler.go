// Package scheduler runs a task on a fixed cadence with an explicit stop
// token, replacing ad-hoc timer loops.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"voltybot/internal/ports"
)

// Task is the unit of work the scheduler fires.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute runs the function.
func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// Scheduler fires a task once immediately and then on every interval tick
// until the context is canceled or Stop is called. Task errors are logged
// and do not stop the cadence.
type Scheduler struct {
	interval time.Duration
	task     Task
	logger   ports.Logger
	stopCh   chan struct{}
}

// New creates a scheduler for the given task and cadence.
func New(interval time.Duration, task Task, logger ports.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: scheduler interval must be positive", ports.ErrInvalidConfiguration)
	}
	if task == nil || logger == nil {
		return nil, fmt.Errorf("task and logger are required for scheduler")
	}
	return &Scheduler{
		interval: interval,
		task:     task,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start blocks, running the task until the context is done or Stop is
// called. It returns the context error on cancellation, nil on Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.task.Execute(ctx); err != nil {
		s.logger.Error(ctx, err, "Scheduled task failed")
	}
}

// Stop ends the cadence. It must be called at most once.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}
