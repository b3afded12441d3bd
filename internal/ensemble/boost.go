package ensemble

import (
	"fmt"
	"math"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// BoostOptions configures gradient boosting.
type BoostOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
}

// Regressor is a squared-loss gradient boosted ensemble.
type Regressor struct {
	init  float64
	rate  float64
	trees []*Tree
}

// FitRegressor boosts depth-limited trees on residuals from the mean.
func FitRegressor(X [][]float64, y []float64, opts BoostOptions) (*Regressor, error) {
	if err := validate(X, y); err != nil {
		return nil, err
	}
	opts = boostDefaults(opts)

	var init float64
	for _, v := range y {
		init += v
	}
	init /= float64(len(y))

	m := &Regressor{init: init, rate: opts.LearningRate}
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = init
	}
	resid := make([]float64, len(y))
	treeOpts := TreeOptions{MaxDepth: opts.MaxDepth, MinSamplesLeaf: opts.MinLeaf}

	for round := 0; round < opts.Rounds; round++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		tree, err := FitTree(X, resid, nil, treeOpts, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		m.trees = append(m.trees, tree)
		for i, x := range X {
			pred[i] += opts.LearningRate * tree.Predict(x)
		}
	}
	return m, nil
}

// Predict returns the boosted estimate for x.
func (m *Regressor) Predict(x []float64) float64 {
	v := m.init
	for _, t := range m.trees {
		v += m.rate * t.Predict(x)
	}
	return v
}

// Classifier is a log-loss gradient boosted binary classifier.
type Classifier struct {
	init  float64
	rate  float64
	trees []*Tree
}

// FitClassifier boosts trees on log-loss gradients with Newton leaf values.
// Labels must be 0 or 1 and both classes must be present.
func FitClassifier(X [][]float64, y []float64, opts BoostOptions) (*Classifier, error) {
	if err := validate(X, y); err != nil {
		return nil, err
	}
	pos, err := countPositive(y)
	if err != nil {
		return nil, err
	}
	opts = boostDefaults(opts)

	prior := pos / float64(len(y))
	m := &Classifier{init: math.Log(prior / (1 - prior)), rate: opts.LearningRate}

	raw := make([]float64, len(y))
	for i := range raw {
		raw[i] = m.init
	}
	prob := make([]float64, len(y))
	resid := make([]float64, len(y))
	treeOpts := TreeOptions{MaxDepth: opts.MaxDepth, MinSamplesLeaf: opts.MinLeaf}

	newton := func(rows []int) float64 {
		var num, den float64
		for _, r := range rows {
			num += resid[r]
			den += prob[r] * (1 - prob[r])
		}
		if den < 1e-150 {
			return 0
		}
		return num / den
	}

	for round := 0; round < opts.Rounds; round++ {
		for i := range y {
			prob[i] = sigmoid(raw[i])
			resid[i] = y[i] - prob[i]
		}
		tree, err := FitTree(X, resid, nil, treeOpts, newton, nil)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		m.trees = append(m.trees, tree)
		for i, x := range X {
			raw[i] += opts.LearningRate * tree.Predict(x)
		}
	}
	return m, nil
}

// Probability returns P(y = 1 | x).
func (m *Classifier) Probability(x []float64) float64 {
	v := m.init
	for _, t := range m.trees {
		v += m.rate * t.Predict(x)
	}
	return sigmoid(v)
}

func boostDefaults(o BoostOptions) BoostOptions {
	if o.Rounds <= 0 {
		o.Rounds = 100
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.1
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = 1
	}
	return o
}

// countPositive checks that y is binary with both classes and returns the number of ones.
func countPositive(y []float64) (float64, error) {
	var pos float64
	for i, v := range y {
		switch v {
		case 1:
			pos++
		case 0:
		default:
			return 0, fmt.Errorf("%w: label %d is %g, want 0 or 1", common.ErrDegenerateInput, i, v)
		}
	}
	if pos == 0 || int(pos) == len(y) {
		return 0, fmt.Errorf("%w: only one class present", common.ErrDegenerateInput)
	}
	return pos, nil
}
