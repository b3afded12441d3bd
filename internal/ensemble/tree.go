// Package ensemble provides the tree learners behind the auxiliary scorers:
// a CART regression tree, gradient boosting for regression and binary
// classification, and a random forest classifier.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// TreeOptions bounds tree growth. A zero MaxDepth grows until leaves are
// pure or too small to split; a zero MaxFeatures considers every feature.
type TreeOptions struct {
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int
}

type node struct {
	feature     int
	threshold   float64
	left, right int
	value       float64
	leaf        bool
}

// Tree is a fitted binary regression tree.
type Tree struct {
	nodes []node
}

// LeafFunc computes a leaf value from the training rows that reach it.
type LeafFunc func(rows []int) float64

type grower struct {
	X        [][]float64
	y        []float64
	opts     TreeOptions
	rng      *rand.Rand
	leaf     LeafFunc
	features []int
	tree     *Tree
}

// FitTree grows a tree on the given rows (all rows when rows is nil),
// splitting on squared-error reduction. For 0/1 targets this is the Gini
// criterion. leaf defaults to the mean target; rng is only needed when
// MaxFeatures restricts the candidate features.
func FitTree(X [][]float64, y []float64, rows []int, opts TreeOptions, leaf LeafFunc, rng *rand.Rand) (*Tree, error) {
	if err := validate(X, y); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = make([]int, len(X))
		for i := range rows {
			rows[i] = i
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to grow a tree on", common.ErrDegenerateInput)
	}
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	d := len(X[0])
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > d {
		opts.MaxFeatures = d
	}
	if opts.MaxFeatures < d && rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}

	g := &grower{X: X, y: y, opts: opts, rng: rng, leaf: leaf, tree: &Tree{}}
	if g.leaf == nil {
		g.leaf = g.mean
	}
	g.features = make([]int, d)
	for i := range g.features {
		g.features[i] = i
	}

	own := make([]int, len(rows))
	copy(own, rows)
	g.grow(own, 0)
	return g.tree, nil
}

func validate(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: empty training set", common.ErrDegenerateInput)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows but %d targets", common.ErrDegenerateInput, len(X), len(y))
	}
	if len(X[0]) == 0 {
		return fmt.Errorf("%w: no features", common.ErrDegenerateInput)
	}
	return nil
}

func (g *grower) mean(rows []int) float64 {
	var s float64
	for _, r := range rows {
		s += g.y[r]
	}
	return s / float64(len(rows))
}

func (g *grower) grow(rows []int, depth int) int {
	id := len(g.tree.nodes)
	g.tree.nodes = append(g.tree.nodes, node{})

	canSplit := len(rows) >= 2*g.opts.MinSamplesLeaf &&
		(g.opts.MaxDepth == 0 || depth < g.opts.MaxDepth) &&
		!g.pure(rows)

	if canSplit {
		if feature, threshold, ok := g.bestSplit(rows); ok {
			var left, right []int
			for _, r := range rows {
				if g.X[r][feature] <= threshold {
					left = append(left, r)
				} else {
					right = append(right, r)
				}
			}
			l := g.grow(left, depth+1)
			r := g.grow(right, depth+1)
			g.tree.nodes[id] = node{feature: feature, threshold: threshold, left: l, right: r}
			return id
		}
	}

	g.tree.nodes[id] = node{leaf: true, value: g.leaf(rows)}
	return id
}

func (g *grower) pure(rows []int) bool {
	first := g.y[rows[0]]
	for _, r := range rows[1:] {
		if g.y[r] != first {
			return false
		}
	}
	return true
}

func (g *grower) candidates() []int {
	if g.opts.MaxFeatures >= len(g.features) {
		return g.features
	}
	perm := g.rng.Perm(len(g.features))
	return perm[:g.opts.MaxFeatures]
}

// bestSplit scans sorted feature values with running sums and returns the
// split with the largest squared-error reduction.
func (g *grower) bestSplit(rows []int) (feature int, threshold float64, ok bool) {
	n := len(rows)
	var total, totalSq float64
	for _, r := range rows {
		total += g.y[r]
		totalSq += g.y[r] * g.y[r]
	}
	parent := totalSq - total*total/float64(n)

	bestGain := 1e-12
	sorted := make([]int, n)
	minLeaf := g.opts.MinSamplesLeaf

	for _, f := range g.candidates() {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return g.X[sorted[i]][f] < g.X[sorted[j]][f] })

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			v := g.y[sorted[i]]
			leftSum += v
			leftSq += v * v

			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := g.X[sorted[i]][f], g.X[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if gain := parent - sse; gain > bestGain {
				bestGain = gain
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// Predict returns the leaf value reached by x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		nd := t.nodes[i]
		if nd.leaf {
			return nd.value
		}
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
}

// Leaves counts terminal nodes.
func (t *Tree) Leaves() int {
	var n int
	for _, nd := range t.nodes {
		if nd.leaf {
			n++
		}
	}
	return n
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
