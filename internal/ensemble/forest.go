package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// ForestOptions configures a random forest.
type ForestOptions struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	// MaxFeatures per split; zero means the square root of the feature count.
	MaxFeatures int
	Seed        uint64
}

// Forest is a bagged ensemble of classification trees.
type Forest struct {
	trees []*Tree
}

// FitForest grows opts.Trees trees on bootstrap samples. Leaves hold the
// share of class 1, and the forest averages them. Both classes must be present.
func FitForest(X [][]float64, y []float64, opts ForestOptions) (*Forest, error) {
	if err := validate(X, y); err != nil {
		return nil, err
	}
	if _, err := countPositive(y); err != nil {
		return nil, err
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	d := len(X[0])
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = max(1, int(math.Sqrt(float64(d))))
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xda3e39cb94b95bdb))
	treeOpts := TreeOptions{MaxDepth: opts.MaxDepth, MinSamplesLeaf: opts.MinLeaf, MaxFeatures: opts.MaxFeatures}

	n := len(X)
	f := &Forest{trees: make([]*Tree, 0, opts.Trees)}
	rows := make([]int, n)
	for t := 0; t < opts.Trees; t++ {
		for i := range rows {
			rows[i] = rng.IntN(n)
		}
		tree, err := FitTree(X, y, rows, treeOpts, nil, rng)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
		f.trees = append(f.trees, tree)
	}
	return f, nil
}

// Probability returns the mean class-1 share over all trees.
func (f *Forest) Probability(x []float64) float64 {
	var s float64
	for _, t := range f.trees {
		s += t.Predict(x)
	}
	return s / float64(len(f.trees))
}

// Size returns the number of trees.
func (f *Forest) Size() int { return len(f.trees) }
