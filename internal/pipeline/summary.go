package pipeline

import (
	"math"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/rfm"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

// Summarize builds the history entry of a finished run.
func Summarize(res *Result, ranAt time.Time) model.RunSummary {
	table := res.Table
	clv := table.Column(func(e model.ScoredEntity) float64 { return e.CLV })
	freq := table.Column(func(e model.ScoredEntity) float64 { return e.Frequency })
	monetary := table.Column(func(e model.ScoredEntity) float64 { return e.MonetaryValue })

	var revenue float64
	for i := range freq {
		revenue += freq[i] * monetary[i]
	}

	s := model.RunSummary{
		ID:             res.RunID,
		RanAt:          ranAt.UTC(),
		TotalEntities:  table.Len(),
		TotalRevenue:   revenue,
		AvgCLV:         zeroIfNaN(stats.Mean(clv)),
		MedianCLV:      zeroIfNaN(stats.Median(clv)),
		AvgRecency:     zeroIfNaN(stats.Mean(table.Column(func(e model.ScoredEntity) float64 { return e.Recency }))),
		Clusters:       res.Segments.Clusters,
		SegmentMethod:  string(res.Segments.Method),
		RFMCorr:        model.Metric(stats.Correlation(freq, monetary)),
		Degraded:       res.Degraded(),
		ScorerFailures: len(res.ScorerFailures),
	}

	activity := rfm.ActivityStats(res.Rows)
	counts := make([]float64, len(activity))
	means := make([]float64, len(activity))
	for i, a := range activity {
		counts[i] = float64(a.Count)
		means[i] = a.MeanAmount
	}
	s.ActivityCorr = model.Metric(stats.Correlation(counts, means))

	if res.MLCLV != nil {
		s.MLCLVR2 = model.Metric(res.MLCLV.R2)
		s.MLCLVMAE = model.Metric(res.MLCLV.MAE)
	}
	if res.Churn != nil {
		s.ChurnAUC = model.Metric(res.Churn.AUC)
		s.AvgChurnProb = model.Metric(res.Churn.MeanProbability)
	}
	return s
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
