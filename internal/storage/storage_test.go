package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))
	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)
	assert.Len(t, migrations, ExpectedSchemaVersion)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	ranAt := time.Date(2024, time.May, 3, 9, 30, 0, 0, time.UTC)
	run := &model.RunSummary{
		ID:             "run-1",
		RanAt:          ranAt,
		TotalEntities:  42,
		TotalRevenue:   1234.5,
		AvgCLV:         88.8,
		MedianCLV:      70.1,
		AvgRecency:     33,
		Clusters:       4,
		SegmentMethod:  "kmeans",
		ChurnAUC:       model.Metric(0.71),
		AvgChurnProb:   model.Metric(0.2),
		RFMCorr:        model.Metric(0.9),
		Degraded:       true,
		ScorerFailures: 1,
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, ranAt.Equal(got.RanAt))
	assert.Equal(t, 42, got.TotalEntities)
	assert.Equal(t, "kmeans", got.SegmentMethod)
	assert.True(t, got.Degraded)
	assert.Equal(t, 1, got.ScorerFailures)
	require.NotNil(t, got.ChurnAUC)
	assert.InDelta(t, 0.71, *got.ChurnAUC, 1e-12)
	assert.Nil(t, got.MLCLVR2, "scorer that did not run stays NULL")
	assert.Nil(t, got.ActivityCorr)
}

func TestListRuns_NewestFirst(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(ctx, &model.RunSummary{ID: id, RanAt: base.AddDate(0, 0, i)}))
	}

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	two, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSaveRun_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     *model.RunSummary
		wantErr error
	}{
		{name: "nil run", run: nil, wantErr: ErrNilSummary},
		{name: "missing id", run: &model.RunSummary{}, wantErr: ErrEmptyString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.SaveRun(ctx, tt.run), tt.wantErr)
		})
	}

	require.NoError(t, store.SaveRun(ctx, &model.RunSummary{ID: "dup", RanAt: time.Now()}))
	assert.Error(t, store.SaveRun(ctx, &model.RunSummary{ID: "dup", RanAt: time.Now()}))
}

func TestGetRun_NotFound(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
