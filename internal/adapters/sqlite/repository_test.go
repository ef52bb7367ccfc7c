package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voltybot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "voltybot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func openPosition(id, symbol string, entryPrice float64, entryTime time.Time) *domain.Position {
	return &domain.Position{
		ID:              id,
		Symbol:          symbol,
		Side:            domain.Long,
		EntryPrice:      entryPrice,
		Size:            1.0,
		EntryTime:       entryTime,
		Status:          domain.StatusOpen,
		TakeProfitPrice: entryPrice * 1.05,
		StopLossPrice:   entryPrice * 0.98,
		HighestPrice:    entryPrice,
	}
}

func TestRepository_CreateAndFindPosition(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pos := openPosition("pos-1", "ETHUSDT", 2000.0, time.Now())

	require.NoError(t, repo.Create(ctx, pos))

	found, err := repo.FindOpenBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, found, 1)

	got := found[0]
	assert.Equal(t, pos.ID, got.ID)
	assert.Equal(t, pos.Symbol, got.Symbol)
	assert.Equal(t, pos.Side, got.Side)
	assert.Equal(t, pos.EntryPrice, got.EntryPrice)
	assert.Equal(t, pos.Size, got.Size)
	assert.Equal(t, pos.TakeProfitPrice, got.TakeProfitPrice)
	assert.Equal(t, pos.StopLossPrice, got.StopLossPrice)
	assert.Equal(t, domain.StatusOpen, got.Status)
	assert.True(t, got.ExitTime.IsZero())
}

func TestRepository_FindOpenBySymbol_Ordering(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	// Insert newest first to prove ordering comes from entry_time, not insert order.
	require.NoError(t, repo.Create(ctx, openPosition("pos-b", "ETHUSDT", 2010.0, base.Add(10*time.Minute))))
	require.NoError(t, repo.Create(ctx, openPosition("pos-a", "ETHUSDT", 2000.0, base)))
	require.NoError(t, repo.Create(ctx, openPosition("pos-c", "BTCUSDT", 40000.0, base)))

	found, err := repo.FindOpenBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "pos-a", found[0].ID)
	assert.Equal(t, "pos-b", found[1].ID)

	none, err := repo.FindOpenBySymbol(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_UpdatePosition(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Repository) error
		pos     *domain.Position
		update  func(*domain.Position)
		wantErr bool
	}{
		{
			name: "close position",
			setup: func(r *Repository) error {
				return r.Create(context.Background(), openPosition("pos-1", "ETHUSDT", 2000.0, time.Now()))
			},
			pos: openPosition("pos-1", "ETHUSDT", 2000.0, time.Now()),
			update: func(p *domain.Position) {
				p.Status = domain.StatusClosed
				p.ExitPrice = 2100.0
				p.ExitTime = time.Now()
				p.RealizedPnL = 100.0
				p.RealizedPnLPct = 5.0
				p.ExitReason = domain.ExitReasonTakeProfit
			},
			wantErr: false,
		},
		{
			name: "update non-existent position",
			pos:  openPosition("pos-404", "ETHUSDT", 2000.0, time.Now()),
			update: func(p *domain.Position) {
				p.Status = domain.StatusClosed
				p.ExitPrice = 2100.0
				p.ExitTime = time.Now()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, cleanup := setupTestDB(t)
			defer cleanup()

			ctx := context.Background()

			if tt.setup != nil {
				require.NoError(t, tt.setup(repo))
			}

			tt.update(tt.pos)

			err := repo.Update(ctx, tt.pos)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			all, err := repo.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)

			found := all[0]
			assert.Equal(t, tt.pos.Status, found.Status)
			assert.Equal(t, tt.pos.ExitPrice, found.ExitPrice)
			assert.Equal(t, tt.pos.RealizedPnL, found.RealizedPnL)
			assert.Equal(t, tt.pos.ExitReason, found.ExitReason)
		})
	}
}

func TestRepository_Trades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()

	trades := []*domain.Trade{
		{
			PositionID: "pos-1",
			Symbol:     "ETHUSDT",
			Side:       domain.Long,
			EntryPrice: 2000.0,
			ExitPrice:  2100.0,
			Size:       1.0,
			PnL:        100.0,
			PnLPct:     5.0,
			EntryTime:  now.Add(-2 * time.Hour),
			ExitTime:   now.Add(-time.Hour),
			ExitReason: domain.ExitReasonTakeProfit,
		},
		{
			PositionID: "pos-2",
			Symbol:     "ETHUSDT",
			Side:       domain.Short,
			EntryPrice: 2100.0,
			ExitPrice:  2150.0,
			Size:       1.0,
			PnL:        -50.0,
			PnLPct:     -2.38,
			EntryTime:  now.Add(-time.Hour),
			ExitTime:   now,
			ExitReason: domain.ExitReasonStopLoss,
		},
	}

	for _, tr := range trades {
		id, err := repo.CreateTrade(ctx, tr)
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
	}

	found, err := repo.FindBySymbol(ctx, "ETHUSDT", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	// Most recent entry first.
	assert.Equal(t, "pos-2", found[0].PositionID)
	assert.Equal(t, domain.Short, found[0].Side)
	assert.Equal(t, domain.ExitReasonStopLoss, found[0].ExitReason)

	total, err := repo.GetTotalPnL(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, total, 1e-9)
}

func TestRepository_GetTotalPnL_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	total, err := repo.GetTotalPnL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}
