package model

import (
	"math"
	"time"
)

// RunSummary is the history entry of one pipeline run. Optional metrics are
// nil when their scorer did not run or produced no finite value.
// RFMCorr correlates frequency with monetary_value over RFM records;
// ActivityCorr does the same with raw daily row counts and mean amounts.
type RunSummary struct {
	ID             string    `json:"id" db:"id"`
	RanAt          time.Time `json:"run_timestamp" db:"run_timestamp"`
	TotalEntities  int       `json:"total_customers" db:"total_customers"`
	TotalRevenue   float64   `json:"total_revenue" db:"total_revenue"`
	AvgCLV         float64   `json:"avg_clv" db:"avg_clv"`
	MedianCLV      float64   `json:"median_clv" db:"median_clv"`
	AvgRecency     float64   `json:"avg_recency" db:"avg_recency"`
	Clusters       int       `json:"n_clusters" db:"n_clusters"`
	SegmentMethod  string    `json:"segment_method" db:"segment_method"`
	MLCLVR2        *float64  `json:"ml_clv_r2,omitempty" db:"ml_clv_r2"`
	MLCLVMAE       *float64  `json:"ml_clv_mae,omitempty" db:"ml_clv_mae"`
	ChurnAUC       *float64  `json:"churn_auc,omitempty" db:"churn_auc"`
	AvgChurnProb   *float64  `json:"avg_churn_prob,omitempty" db:"avg_churn_prob"`
	RFMCorr        *float64  `json:"rfm_correlation,omitempty" db:"rfm_correlation"`
	ActivityCorr   *float64  `json:"activity_correlation,omitempty" db:"activity_correlation"`
	Degraded       bool      `json:"degraded" db:"degraded"`
	ScorerFailures int       `json:"scorer_failures" db:"scorer_failures"`
}

// Metric returns a pointer to v, or nil when v is not finite.
func Metric(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
