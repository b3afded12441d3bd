package scorers

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ensemble"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// ChurnOptions configures churn labelling and the classifier.
type ChurnOptions struct {
	HorizonDays int
	Boost       ensemble.BoostOptions
	TestSize    float64
	Seed        uint64
}

// DefaultChurnOptions returns a 90 day horizon and 300 boosting rounds.
func DefaultChurnOptions(seed uint64) ChurnOptions {
	return ChurnOptions{
		HorizonDays: 90,
		Boost:       ensemble.BoostOptions{Rounds: 300, LearningRate: 0.05, MaxDepth: 3},
		TestSize:    0.2,
		Seed:        seed,
	}
}

// ChurnResult reports the classifier's validation quality.
type ChurnResult struct {
	Features []string `json:"features"`
	Churned  int      `json:"churned"`
	// AUC is NaN when the validation split holds a single class.
	AUC             float64 `json:"auc"`
	MeanProbability float64 `json:"mean_probability"`
	TrainRows       int     `json:"train_rows"`
	TestRows        int     `json:"test_rows"`
}

// LabelChurn marks an entity 1 when its last transaction falls more than
// horizonDays before the latest date in rows.
func LabelChurn(rows []model.AggregatedTransaction, horizonDays int) map[string]int {
	last := make(map[string]time.Time)
	var end time.Time
	for _, r := range rows {
		if r.Date.After(last[r.EntityID]) {
			last[r.EntityID] = r.Date
		}
		if r.Date.After(end) {
			end = r.Date
		}
	}
	cutoff := end.AddDate(0, 0, -horizonDays)

	labels := make(map[string]int, len(last))
	for id, d := range last {
		if d.Before(cutoff) {
			labels[id] = 1
		} else {
			labels[id] = 0
		}
	}
	return labels
}

// Churn trains a boosted classifier on churn labels and writes a churn
// probability for every entity. Entities without a label count as active.
func Churn(table *model.ScoredTable, labels map[string]int, opts ChurnOptions) (*ChurnResult, error) {
	if err := table.Require("churn", model.CapRFM); err != nil {
		return nil, err
	}
	features := Available(table, BehaviorFeatures)
	X := Matrix(table, features)

	y := make([]float64, table.Len())
	res := &ChurnResult{Features: Names(features)}
	for i, e := range table.Entities {
		if labels[e.EntityID] == 1 {
			y[i] = 1
			res.Churned++
		}
	}
	if res.Churned == 0 || res.Churned == len(y) {
		return nil, fmt.Errorf("%w: churn labels have a single class", common.ErrDegenerateInput)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	train, test, err := stratifiedSplit(y, opts.TestSize, rng)
	if err != nil {
		return nil, err
	}
	res.TrainRows, res.TestRows = len(train), len(test)

	Xtr, ytr := subset(X, y, train)
	clf, err := ensemble.FitClassifier(Xtr, ytr, opts.Boost)
	if err != nil {
		return nil, fmt.Errorf("churn classifier: %w", err)
	}

	Xte, yte := subset(X, y, test)
	scores := make([]float64, len(Xte))
	for i, x := range Xte {
		scores[i] = clf.Probability(x)
	}
	res.AUC = AUC(scores, yte)

	var sum float64
	for i, x := range X {
		p := clf.Probability(x)
		table.Entities[i].ChurnProbability = p
		sum += p
	}
	res.MeanProbability = sum / float64(len(X))
	table.Add(model.CapChurn)
	return res, nil
}

// AUC is the area under the ROC curve of scores against 0/1 labels.
// It is NaN unless both classes are present.
func AUC(scores, labels []float64) float64 {
	n := len(scores)
	var pos int
	for _, l := range labels {
		if l == 1 {
			pos++
		}
	}
	if pos == 0 || pos == n {
		return math.NaN()
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	y := make([]float64, n)
	classes := make([]bool, n)
	for i, j := range idx {
		y[i] = scores[j]
		classes[i] = labels[j] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
