package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/storage"
)

func createTestRun(runID string) *storage.ComparisonRun {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &storage.ComparisonRun{
		RunID:     runID,
		Symbol:    "NIFTY50",
		Frequency: domain.FrequencyWeekly,
		Start:     start,
		End:       start.AddDate(1, 0, 0),
		Rows:      52,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func createTestResults() []domain.SimulationResult {
	return []domain.SimulationResult{
		{
			StrategyID:     "strat-aggressive",
			StrategyName:   "Aggressive PE",
			Kind:           domain.KindContribution,
			TotalInvested:  520000,
			CurrentValue:   598000,
			UnitsHeld:      5200,
			AvgBuyPrice:    100,
			AbsoluteReturn: 78000,
			ReturnPct:      15,
			XIRR:           0.142,
			XIRRValid:      true,
		},
		{
			StrategyID:      "strat-bullet",
			StrategyName:    "Moderate Bullet",
			Kind:            domain.KindDeployment,
			TotalInvested:   600000,
			CurrentValue:    660000,
			ParkedRemaining: 412000,
			NumDeployments:  3,
			Warnings:        1,
			XIRR:            0.095,
			XIRRValid:       true,
		},
		{
			StrategyID:    "strat-broken",
			StrategyName:  "Broken",
			Kind:          domain.KindContribution,
			Failed:        true,
			FailureReason: "tier thresholds must be strictly descending",
		},
	}
}

func TestResultStore_RunRoundtrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(pool)

	run := createTestRun("run-roundtrip")
	require.NoError(t, store.InsertRun(ctx, run))

	retrieved, err := store.GetRun(ctx, "run-roundtrip")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, run.Symbol, retrieved.Symbol)
	assert.Equal(t, run.Frequency, retrieved.Frequency)
	assert.True(t, run.Start.Equal(retrieved.Start))
	assert.True(t, run.End.Equal(retrieved.End))
	assert.Equal(t, run.Rows, retrieved.Rows)
}

func TestResultStore_DuplicateRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(pool)

	require.NoError(t, store.InsertRun(ctx, createTestRun("run-dup")))
	err := store.InsertRun(ctx, createTestRun("run-dup"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestResultStore_InsertRunValidation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(pool)

	assert.ErrorIs(t, store.InsertRun(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertRun(ctx, &storage.ComparisonRun{}), storage.ErrInvalidInput)
}

func TestResultStore_GetRunNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResultStore_ResultsRoundtrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(pool)

	require.NoError(t, store.InsertRun(ctx, createTestRun("run-results")))

	inserted := createTestResults()
	require.NoError(t, store.InsertResults(ctx, "run-results", inserted))

	retrieved, err := store.GetResults(ctx, "run-results")
	require.NoError(t, err)
	require.Len(t, retrieved, 3)

	// Batch order preserved via the position column
	assert.Equal(t, "strat-aggressive", retrieved[0].StrategyID)
	assert.Equal(t, "strat-bullet", retrieved[1].StrategyID)
	assert.Equal(t, "strat-broken", retrieved[2].StrategyID)

	first := retrieved[0]
	assert.Equal(t, domain.KindContribution, first.Kind)
	assert.InDelta(t, 520000, first.TotalInvested, 0.001)
	assert.InDelta(t, 598000, first.CurrentValue, 0.001)
	assert.InDelta(t, 0.142, first.XIRR, 1e-9)
	assert.True(t, first.XIRRValid)

	bullet := retrieved[1]
	assert.Equal(t, domain.KindDeployment, bullet.Kind)
	assert.InDelta(t, 412000, bullet.ParkedRemaining, 0.001)
	assert.Equal(t, 3, bullet.NumDeployments)
	assert.Equal(t, 1, bullet.Warnings)

	broken := retrieved[2]
	assert.True(t, broken.Failed)
	assert.Equal(t, "tier thresholds must be strictly descending", broken.FailureReason)
	assert.False(t, broken.XIRRValid)
	assert.Zero(t, broken.XIRR)
}

func TestResultStore_ResultsWriteOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewResultStore(pool)

	require.NoError(t, store.InsertRun(ctx, createTestRun("run-once")))
	require.NoError(t, store.InsertResults(ctx, "run-once", createTestResults()))

	err := store.InsertResults(ctx, "run-once", createTestResults())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// First batch untouched
	retrieved, err := store.GetResults(ctx, "run-once")
	require.NoError(t, err)
	assert.Len(t, retrieved, 3)
}

func TestResultStore_GetResultsNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	_, err := store.GetResults(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
