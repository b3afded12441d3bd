// Package metrics records run metrics in a private Prometheus registry and
// writes them for the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// Recorder holds the collectors of one run.
type Recorder struct {
	registry *prometheus.Registry

	Entities       prometheus.Gauge
	MeanCLV        prometheus.Gauge
	MedianCLV      prometheus.Gauge
	Clusters       prometheus.Gauge
	Degraded       prometheus.Gauge
	LastRun        prometheus.Gauge
	StageDuration  *prometheus.GaugeVec
	ScorerFailures *prometheus.CounterVec
	RowsDropped    *prometheus.GaugeVec
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Entities: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_entities",
			Help: "Number of scored entities in the last run",
		}),
		MeanCLV: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_clv_mean",
			Help: "Mean CLV across entities in the last run",
		}),
		MedianCLV: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_clv_median",
			Help: "Median CLV across entities in the last run",
		}),
		Clusters: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_clusters",
			Help: "Number of segments in the last run",
		}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_run_degraded",
			Help: "1 if the last run fell back on unconverged or zero parameters",
		}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "clvflow_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		StageDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clvflow_stage_duration_seconds",
			Help: "Wall time of each pipeline stage",
		}, []string{"stage"}),
		ScorerFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clvflow_scorer_failures_total",
			Help: "Auxiliary scorers that failed",
		}, []string{"scorer"}),
		RowsDropped: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clvflow_rows_dropped",
			Help: "Input rows removed during cleaning",
		}, []string{"reason"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// ScorerFailed counts one failure of scorer.
func (r *Recorder) ScorerFailed(scorer string) {
	r.ScorerFailures.WithLabelValues(scorer).Inc()
}

// Dropped records rows removed for reason.
func (r *Recorder) Dropped(reason string, n int) {
	r.RowsDropped.WithLabelValues(reason).Set(float64(n))
}

// SetSummary copies the headline figures of a run.
func (r *Recorder) SetSummary(s *model.RunSummary) {
	r.Entities.Set(float64(s.TotalEntities))
	r.MeanCLV.Set(s.AvgCLV)
	r.MedianCLV.Set(s.MedianCLV)
	r.Clusters.Set(float64(s.Clusters))
	if s.Degraded {
		r.Degraded.Set(1)
	} else {
		r.Degraded.Set(0)
	}
	r.LastRun.Set(float64(s.RanAt.Unix()))
}

// WriteTextfile writes the registry in text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
