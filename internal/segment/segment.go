// Package segment clusters entities on standardized recency, frequency and
// monetary value, either with a fixed k or by BIC-selected Gaussian mixtures.
package segment

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/stats"
)

// Method names how clusters were chosen.
type Method string

// Segmentation methods.
const (
	MethodKMeans Method = "kmeans"
	MethodGMM    Method = "gmm"
)

// Options configures the segmentation stage.
type Options struct {
	AutoGMM       bool
	NClusters     int
	MaxComponents int
	NInit         int
	Seed          uint64
}

// Report describes the clustering that was applied.
type Report struct {
	Method   Method    `json:"method"`
	K        int       `json:"k"`
	Inertia  float64   `json:"inertia,omitempty"`
	BIC      []float64 `json:"bic,omitempty"`
	Capped   bool      `json:"capped,omitempty"`
	Clusters int       `json:"clusters"`
}

// Features returns the (recency, frequency, monetary_value) matrix.
func Features(table *model.ScoredTable) [][]float64 {
	X := make([][]float64, table.Len())
	for i, e := range table.Entities {
		X[i] = []float64{e.Recency, e.Frequency, e.MonetaryValue}
	}
	return X
}

// Segment labels every entity of table with a cluster.
func Segment(table *model.ScoredTable, opts Options, logger *slog.Logger) (Report, error) {
	var rep Report
	if err := table.Require("segment", model.CapRFM); err != nil {
		return rep, err
	}
	if table.Len() == 0 {
		return rep, common.ErrNoEntities
	}
	if logger == nil {
		logger = common.Discard()
	}

	X, _ := Standardize(Features(table))

	var labels []int
	if opts.AutoGMM {
		sel, err := SelectGMM(X, DefaultGMMOptions(opts.MaxComponents, opts.Seed))
		if err != nil {
			return rep, fmt.Errorf("gaussian mixture selection: %w", err)
		}
		rep.Method = MethodGMM
		rep.K = sel.K()
		rep.BIC = sel.BIC
		labels = sel.Labels
	} else {
		k := opts.NClusters
		if k > len(X) {
			logger.Warn("Fewer entities than clusters, capping k", "n_clusters", k, "entities", len(X))
			k = len(X)
			rep.Capped = true
		}
		ko := DefaultKMeansOptions(k, opts.Seed)
		if opts.NInit > 0 {
			ko.NInit = opts.NInit
		}
		c, err := KMeans(X, ko)
		if err != nil {
			return rep, fmt.Errorf("k-means: %w", err)
		}
		rep.Method = MethodKMeans
		rep.K = k
		rep.Inertia = c.Inertia
		labels = c.Labels
	}

	for i := range table.Entities {
		table.Entities[i].Cluster = labels[i]
	}
	table.Add(model.CapCluster)
	rep.Clusters = stats.Distinct(labels)

	logger.Info("Segmentation complete", "method", rep.Method, "k", rep.K, "clusters", rep.Clusters)
	return rep, nil
}

// Elbow computes the inertia curve for k in [kMin, kMax] on the standardized
// features. kMax is capped at the number of entities.
func Elbow(table *model.ScoredTable, kMin, kMax int, seed uint64) ([]float64, error) {
	if table.Len() == 0 {
		return nil, common.ErrNoEntities
	}
	kMax = min(kMax, table.Len())
	X, _ := Standardize(Features(table))
	return ElbowCurve(X, kMin, kMax, DefaultKMeansOptions(kMin, seed))
}

// Profile is the per-cluster average of the RFM features.
type Profile struct {
	Cluster        int     `json:"cluster"`
	Count          int     `json:"count"`
	Recency        float64 `json:"recency"`
	Frequency      float64 `json:"frequency"`
	MonetaryValue  float64 `json:"monetary_value"`
	ProfitAdjusted float64 `json:"profit_adjusted"`
	CLV            float64 `json:"clv"`
}

// Profiles summarizes each cluster, ordered by cluster label.
func Profiles(table *model.ScoredTable) ([]Profile, error) {
	if err := table.Require("segment profile", model.CapCluster); err != nil {
		return nil, err
	}

	byCluster := make(map[int]*Profile)
	for _, e := range table.Entities {
		p, ok := byCluster[e.Cluster]
		if !ok {
			p = &Profile{Cluster: e.Cluster}
			byCluster[e.Cluster] = p
		}
		p.Count++
		p.Recency += e.Recency
		p.Frequency += e.Frequency
		p.MonetaryValue += e.MonetaryValue
		p.ProfitAdjusted += e.ProfitAdjusted
		p.CLV += e.CLV
	}

	out := make([]Profile, 0, len(byCluster))
	for _, p := range byCluster {
		n := float64(p.Count)
		p.Recency /= n
		p.Frequency /= n
		p.MonetaryValue /= n
		p.ProfitAdjusted /= n
		p.CLV /= n
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cluster < out[j].Cluster })
	return out, nil
}
