// Package scorers holds the auxiliary models that read a scored table and
// add churn risk, a supervised CLV estimate, uplift, next-best-offer and a
// short-term value forecast.
package scorers

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// Feature is a named numeric column of the scored table.
type Feature struct {
	Name     string
	Requires model.Capability
	Get      func(model.ScoredEntity) float64
}

var (
	featRecency   = Feature{"recency", model.CapRFM, func(e model.ScoredEntity) float64 { return e.Recency }}
	featFrequency = Feature{"frequency", model.CapRFM, func(e model.ScoredEntity) float64 { return e.Frequency }}
	featT         = Feature{"T", model.CapRFM, func(e model.ScoredEntity) float64 { return e.T }}
	featMonetary  = Feature{"monetary_value", model.CapRFM, func(e model.ScoredEntity) float64 { return e.MonetaryValue }}
	featProfit    = Feature{"profit_adjusted", model.CapRFM, func(e model.ScoredEntity) float64 { return e.ProfitAdjusted }}
	featPredicted = Feature{"predicted_purchases", model.CapPrediction, func(e model.ScoredEntity) float64 { return e.PredictedPurchases }}
	featAlive     = Feature{"prob_alive", model.CapPrediction, func(e model.ScoredEntity) float64 { return e.ProbAlive }}
	featExpected  = Feature{"expected_avg_value", model.CapPrediction, func(e model.ScoredEntity) float64 { return e.ExpectedAvgValue }}
	featCLV       = Feature{"CLV", model.CapPrediction, func(e model.ScoredEntity) float64 { return e.CLV }}
	featCluster   = Feature{"cluster", model.CapCluster, func(e model.ScoredEntity) float64 { return float64(e.Cluster) }}
)

// BehaviorFeatures feed the churn and supervised CLV models.
var BehaviorFeatures = []Feature{featRecency, featFrequency, featMonetary, featAlive, featCluster, featProfit}

// UpliftFeatures are the summary and value columns used by the uplift model.
var UpliftFeatures = []Feature{featFrequency, featRecency, featT, featMonetary, featProfit, featPredicted, featAlive, featExpected, featCLV}

// Available keeps the features whose columns the table carries.
func Available(table *model.ScoredTable, features []Feature) []Feature {
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		if table.Capabilities.Has(f.Requires) {
			out = append(out, f)
		}
	}
	return out
}

// Matrix builds the feature matrix for every entity.
func Matrix(table *model.ScoredTable, features []Feature) [][]float64 {
	X := make([][]float64, table.Len())
	for i, e := range table.Entities {
		row := make([]float64, len(features))
		for j, f := range features {
			row[j] = f.Get(e)
		}
		X[i] = row
	}
	return X
}

// Names lists feature names.
func Names(features []Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.Name
	}
	return out
}

func subset(X [][]float64, y []float64, rows []int) ([][]float64, []float64) {
	xs := make([][]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = X[r]
		ys[i] = y[r]
	}
	return xs, ys
}

// randomSplit shuffles row indices and holds out ceil(testSize*n) of them.
func randomSplit(n int, testSize float64, rng *rand.Rand) (train, test []int, err error) {
	nTest := ceilCount(testSize, n)
	if n < 2 || nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split for validation", common.ErrDegenerateInput, n)
	}
	perm := rng.Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

// stratifiedSplit holds out about testSize of each class and always leaves
// at least one row of every class in the training split.
func stratifiedSplit(y []float64, testSize float64, rng *rand.Rand) (train, test []int, err error) {
	byClass := map[float64][]int{}
	var classes []float64
	for i, v := range y {
		if _, ok := byClass[v]; !ok {
			classes = append(classes, v)
		}
		byClass[v] = append(byClass[v], i)
	}
	if len(classes) < 2 {
		return nil, nil, fmt.Errorf("%w: stratified split needs two classes", common.ErrDegenerateInput)
	}
	sort.Float64s(classes)

	for _, c := range classes {
		rows := byClass[c]
		nTest := roundCount(testSize, len(rows))
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}
		perm := rng.Perm(len(rows))
		for i, p := range perm {
			if i < nTest {
				test = append(test, rows[p])
			} else {
				train = append(train, rows[p])
			}
		}
	}
	if len(test) == 0 {
		return nil, nil, fmt.Errorf("%w: too few rows for a validation split", common.ErrDegenerateInput)
	}
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}

func ceilCount(frac float64, n int) int {
	c := int(frac * float64(n))
	if float64(c) < frac*float64(n) {
		c++
	}
	return c
}

func roundCount(frac float64, n int) int {
	return int(frac*float64(n) + 0.5)
}
