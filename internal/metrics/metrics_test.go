package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.SetSummary(&model.RunSummary{
		TotalEntities: 12,
		AvgCLV:        40.5,
		MedianCLV:     30,
		Clusters:      4,
		Degraded:      true,
		RanAt:         time.Unix(1700000000, 0),
	})
	r.ObserveStage("ltv", 1500*time.Millisecond)
	r.ScorerFailed("uplift")
	r.ScorerFailed("uplift")
	r.Dropped("amount_outliers", 7)

	assert.Equal(t, 12.0, testutil.ToFloat64(r.Entities))
	assert.Equal(t, 40.5, testutil.ToFloat64(r.MeanCLV))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Degraded))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.StageDuration.WithLabelValues("ltv")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.ScorerFailures.WithLabelValues("uplift")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.RowsDropped.WithLabelValues("amount_outliers")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.SetSummary(&model.RunSummary{TotalEntities: 3, RanAt: time.Now()})

	path := filepath.Join(t.TempDir(), "clvflow.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "clvflow_entities 3")
	assert.Contains(t, string(data), "# HELP clvflow_clv_mean")

	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
