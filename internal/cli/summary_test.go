package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/scorers"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		format func(string) string
		name   string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: SuccessIcon},
		{name: "error", format: FormatError, icon: ErrorIcon},
		{name: "warning", format: FormatWarning, icon: WarningIcon},
		{name: "info", format: FormatInfo, icon: InfoIcon},
		{name: "title", format: FormatTitle, icon: ChartIcon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("hello")
			assert.Contains(t, out, tt.icon)
			assert.Contains(t, out, "hello")
		})
	}
}

func TestRenderSummary(t *testing.T) {
	auc := 0.8126
	res := &pipeline.Result{
		Summary: model.RunSummary{
			ID:            "run-1",
			TotalEntities: 1200,
			TotalRevenue:  1234567.891,
			AvgCLV:        42.5,
			Clusters:      4,
			SegmentMethod: "kmeans",
			ChurnAUC:      &auc,
			Degraded:      true,
		},
		Uplift:         &scorers.UpliftResult{TopSum: 3.5, RandomSum: 1.25},
		ScorerFailures: []pipeline.ScorerFailure{{Scorer: "ml_clv", Err: errors.New("too few rows")}},
	}

	out := RenderSummary(res)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1,234,567.89")
	assert.Contains(t, out, "4 (kmeans)")
	assert.Contains(t, out, "0.813")
	assert.Contains(t, out, "3.500 vs 1.250")
	assert.Contains(t, out, "did not converge")
	assert.Contains(t, out, "Scorer ml_clv skipped: too few rows")
	assert.NotContains(t, out, "ML CLV R²", "missing metrics are omitted")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, RenderHistory(nil), "No runs recorded yet")

	out := RenderHistory([]model.RunSummary{
		{ID: "run-bbb", RanAt: time.Now(), TotalEntities: 3, AvgCLV: 10, Clusters: 2, Degraded: true, ScorerFailures: 2},
		{ID: "run-aaa", RanAt: time.Now().Add(-time.Hour), TotalEntities: 5},
	})
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "degraded, 2 scorer failures")
	assert.Less(t, strings.Index(out, "run-bbb"), strings.Index(out, "run-aaa"))
}

func TestRenderElbow(t *testing.T) {
	out := RenderElbow(2, []float64{100, 50, 25})
	assert.Contains(t, out, "k=2")
	assert.Contains(t, out, "k=4")
	assert.Contains(t, out, strings.Repeat("█", 40))
	assert.Contains(t, out, "25.00")
}

func TestStageProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewStageProgress(&buf)
	for i, s := range pipeline.Stages {
		p.Stage(s, i, len(pipeline.Stages))
	}
	p.Finish()
	assert.NotEmpty(t, buf.String())
}
