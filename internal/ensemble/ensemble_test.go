package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// separable returns n points in two features where y = 1 iff x0 > 5.
func separable(n int, seed uint64) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(seed, 99))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{rng.Float64() * 10, rng.Float64() * 10}
		if X[i][0] > 5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestFitTree_StepFunction(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{0, 0, 0, 10, 10, 10}

	tree, err := FitTree(X, y, nil, TreeOptions{MaxDepth: 1}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Leaves())
	assert.Equal(t, 0.0, tree.Predict([]float64{2.5}))
	assert.Equal(t, 10.0, tree.Predict([]float64{3.6}))
	assert.Equal(t, 0.0, tree.Predict([]float64{3.5}), "threshold sits midway")
}

func TestFitTree_MinLeaf(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{0, 0, 0, 100}

	tree, err := FitTree(X, y, nil, TreeOptions{MinSamplesLeaf: 2}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Leaves())
	assert.Equal(t, 50.0, tree.Predict([]float64{4}))
}

func TestFitTree_ConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	tree, err := FitTree(X, []float64{7, 7, 7}, nil, TreeOptions{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Leaves())
	assert.Equal(t, 7.0, tree.Predict([]float64{100}))
}

func TestFitTree_Errors(t *testing.T) {
	_, err := FitTree(nil, nil, nil, TreeOptions{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrDegenerateInput)

	_, err = FitTree([][]float64{{1}}, []float64{1, 2}, nil, TreeOptions{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrDegenerateInput)
}

func TestRegressor_FitsLinearTrend(t *testing.T) {
	X := make([][]float64, 50)
	y := make([]float64, 50)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = 3*float64(i) + 2
	}

	m, err := FitRegressor(X, y, BoostOptions{Rounds: 400, LearningRate: 0.05, MaxDepth: 3})
	require.NoError(t, err)

	var sse float64
	for i, x := range X {
		d := m.Predict(x) - y[i]
		sse += d * d
	}
	assert.Less(t, math.Sqrt(sse/50), 2.0)
}

func TestClassifier_SeparableData(t *testing.T) {
	X, y := separable(200, 1)

	m, err := FitClassifier(X, y, BoostOptions{Rounds: 300, LearningRate: 0.05, MaxDepth: 3})
	require.NoError(t, err)

	var correct int
	for i, x := range X {
		p := m.Probability(x)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if (p > 0.5) == (y[i] == 1) {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 195)

	assert.Greater(t, m.Probability([]float64{9, 5}), 0.9)
	assert.Less(t, m.Probability([]float64{1, 5}), 0.1)
}

func TestClassifier_RejectsSingleClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	_, err := FitClassifier(X, []float64{1, 1, 1}, BoostOptions{})
	assert.ErrorIs(t, err, common.ErrDegenerateInput)

	_, err = FitClassifier(X, []float64{0, 1, 2}, BoostOptions{})
	assert.ErrorIs(t, err, common.ErrDegenerateInput)
}

func TestForest_SeparableData(t *testing.T) {
	X, y := separable(150, 2)

	f, err := FitForest(X, y, ForestOptions{Trees: 100, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 100, f.Size())

	assert.Greater(t, f.Probability([]float64{9, 3}), 0.8)
	assert.Less(t, f.Probability([]float64{1, 3}), 0.2)
}

func TestForest_Deterministic(t *testing.T) {
	X, y := separable(80, 3)

	a, err := FitForest(X, y, ForestOptions{Trees: 20, Seed: 42})
	require.NoError(t, err)
	b, err := FitForest(X, y, ForestOptions{Trees: 20, Seed: 42})
	require.NoError(t, err)

	for _, x := range X {
		assert.Equal(t, a.Probability(x), b.Probability(x))
	}
}
