package scorers

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ensemble"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// MLCLVOptions configures the supervised CLV regressor.
type MLCLVOptions struct {
	Boost    ensemble.BoostOptions
	TestSize float64
	Seed     uint64
}

// DefaultMLCLVOptions returns 400 boosting rounds and a 20% holdout.
func DefaultMLCLVOptions(seed uint64) MLCLVOptions {
	return MLCLVOptions{
		Boost:    ensemble.BoostOptions{Rounds: 400, LearningRate: 0.05, MaxDepth: 3},
		TestSize: 0.2,
		Seed:     seed,
	}
}

// MLCLVResult holds holdout metrics of the regressor.
type MLCLVResult struct {
	Features  []string `json:"features"`
	R2        float64  `json:"r2"`
	MAE       float64  `json:"mae"`
	TrainRows int      `json:"train_rows"`
	TestRows  int      `json:"test_rows"`
}

// MLCLV learns the probabilistic CLV from behavioural features and writes
// its estimate for every entity. Rows with non-finite values are left out
// of training but still receive a prediction.
func MLCLV(table *model.ScoredTable, opts MLCLVOptions) (*MLCLVResult, error) {
	if err := table.Require("ml clv", model.CapPrediction); err != nil {
		return nil, err
	}
	features := Available(table, BehaviorFeatures)
	X := Matrix(table, features)
	y := table.Column(func(e model.ScoredEntity) float64 { return e.CLV })

	var usable []int
	for i := range X {
		if finiteRow(X[i]) && finite(y[i]) {
			usable = append(usable, i)
		}
	}
	Xf, yf := subset(X, y, usable)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	train, test, err := randomSplit(len(Xf), opts.TestSize, rng)
	if err != nil {
		return nil, err
	}

	Xtr, ytr := subset(Xf, yf, train)
	reg, err := ensemble.FitRegressor(Xtr, ytr, opts.Boost)
	if err != nil {
		return nil, fmt.Errorf("clv regressor: %w", err)
	}

	Xte, yte := subset(Xf, yf, test)
	pred := make([]float64, len(Xte))
	var absErr float64
	for i, x := range Xte {
		pred[i] = reg.Predict(x)
		absErr += math.Abs(pred[i] - yte[i])
	}

	res := &MLCLVResult{
		Features:  Names(features),
		R2:        stat.RSquaredFrom(pred, yte, nil),
		MAE:       absErr / float64(len(Xte)),
		TrainRows: len(train),
		TestRows:  len(test),
	}

	for i, x := range X {
		table.Entities[i].CLVML = reg.Predict(x)
	}
	table.Add(model.CapCLVML)
	return res, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteRow(row []float64) bool {
	for _, v := range row {
		if !finite(v) {
			return false
		}
	}
	return true
}
