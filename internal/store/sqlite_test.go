package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "user-centroid", "/data/ds", "/data/folds")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.FinishRun(ctx, run.ID, RunStatusComplete))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	assert.Equal(t, "user-centroid", runs[0].Method)
}

func TestFinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.FinishRun(context.Background(), "no-such-run", RunStatusFailed))
}

func TestListRunsFiltered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "user-centroid", "ds", "folds")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "spatial-label-prop", "ds", "folds")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, a.ID, RunStatusFailed))

	byMethod, err := s.ListRuns(ctx, RunFilter{Method: "spatial-label-prop"})
	require.NoError(t, err)
	require.Len(t, byMethod, 1)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordAndReadFoldResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "user-centroid", "ds", "folds")
	require.NoError(t, err)

	for i, fold := range []string{"fold_0", "fold_1"} {
		require.NoError(t, s.RecordFold(ctx, &FoldResult{
			RunID:       run.ID,
			FoldName:    fold,
			Tested:      10 + i,
			Unscoreable: i,
			MeanKm:      12.5,
			MedianKm:    3.25,
		}))
	}

	results, err := s.FoldResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "fold_0", results[0].FoldName)
	assert.Equal(t, 10, results[0].Tested)
	assert.Equal(t, 12.5, results[0].MeanKm)
	assert.False(t, results[0].CompletedAt.IsZero())
}
