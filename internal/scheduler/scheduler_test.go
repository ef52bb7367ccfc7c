package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltybot/internal/ports"
)

type mockLogger struct {
	errorCount int32
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	atomic.AddInt32(&m.errorCount, 1)
}

func TestNew_Validation(t *testing.T) {
	task := TaskFunc(func(ctx context.Context) error { return nil })

	_, err := New(0, task, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrInvalidConfiguration)

	_, err = New(time.Second, nil, &mockLogger{})
	assert.Error(t, err)

	_, err = New(time.Second, task, nil)
	assert.Error(t, err)
}

func TestStart_RunsImmediatelyAndOnTicks(t *testing.T) {
	var runs int32
	task := TaskFunc(func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	s, err := New(10*time.Millisecond, task, &mockLogger{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 3
	}, time.Second, 5*time.Millisecond, "expected the immediate run plus ticks")

	s.Stop()
	require.NoError(t, <-done)
}

func TestStart_TaskErrorDoesNotStopCadence(t *testing.T) {
	var runs int32
	task := TaskFunc(func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return fmt.Errorf("disk full")
	})

	logger := &mockLogger{}
	s, err := New(10*time.Millisecond, task, logger)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&logger.errorCount), int32(2))
}

func TestStart_ContextCancellation(t *testing.T) {
	task := TaskFunc(func(ctx context.Context) error { return nil })
	s, err := New(time.Hour, task, &mockLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
