package segment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// KMeansOptions configures fixed-k clustering.
type KMeansOptions struct {
	K       int
	NInit   int
	MaxIter int
	// Tol is relative to the mean feature variance.
	Tol  float64
	Seed uint64
}

// DefaultKMeansOptions returns the usual restarts and limits for k clusters.
func DefaultKMeansOptions(k int, seed uint64) KMeansOptions {
	return KMeansOptions{K: k, NInit: 10, MaxIter: 300, Tol: 1e-4, Seed: seed}
}

// Clustering is a hard assignment of points to centroids.
type Clustering struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func validatePoints(X [][]float64, k int) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no points to cluster", common.ErrDegenerateInput)
	}
	if k < 1 || k > len(X) {
		return fmt.Errorf("%w: cannot form %d clusters from %d points", common.ErrDegenerateInput, k, len(X))
	}
	return nil
}

// KMeans partitions X into opts.K clusters with k-means++ seeding and
// Lloyd iterations, keeping the best of opts.NInit restarts. The result
// depends only on X and opts.
func KMeans(X [][]float64, opts KMeansOptions) (*Clustering, error) {
	if err := validatePoints(X, opts.K); err != nil {
		return nil, err
	}
	if opts.NInit < 1 {
		opts.NInit = 1
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = 300
	}
	tol := scaledTol(X, opts.Tol)
	rng := newRand(opts.Seed)

	var best *Clustering
	for run := 0; run < opts.NInit; run++ {
		c := lloyd(X, seedPlusPlus(X, opts.K, rng), opts.MaxIter, tol)
		if best == nil || c.Inertia < best.Inertia {
			best = c
		}
	}
	return best, nil
}

// scaledTol converts a relative tolerance to a squared centroid shift.
func scaledTol(X [][]float64, tol float64) float64 {
	d := len(X[0])
	col := make([]float64, len(X))
	var sum float64
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return tol * sum / float64(d)
}

func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(X[rng.IntN(n)]))

	dist := make([]float64, n)
	for i := range X {
		dist[i] = sqDist(X[i], centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.IntN(n)
		}
		c := clone(X[next])
		centroids = append(centroids, c)
		for i := range X {
			dist[i] = math.Min(dist[i], sqDist(X[i], c))
		}
	}
	return centroids
}

// lloyd refines centroids until the total squared shift drops to tol.
// Inertia never increases across iterations.
func lloyd(X [][]float64, centroids [][]float64, maxIter int, tol float64) *Clustering {
	k := len(centroids)
	d := len(X[0])
	labels := make([]int, len(X))

	for iter := 0; iter < maxIter; iter++ {
		assign(X, centroids, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, row := range X {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}

		var shift float64
		for c := 0; c < k; c++ {
			var next []float64
			if counts[c] == 0 {
				next = clone(X[farthest(X, centroids, labels)])
			} else {
				next = sums[c]
				floats.Scale(1/float64(counts[c]), next)
			}
			shift += sqDist(next, centroids[c])
			centroids[c] = next
			if counts[c] == 0 {
				assign(X, centroids, labels)
			}
		}
		if shift <= tol {
			break
		}
	}

	inertia := assign(X, centroids, labels)
	return &Clustering{Labels: labels, Centroids: centroids, Inertia: inertia}
}

// assign labels every point with its nearest centroid and returns the inertia.
func assign(X [][]float64, centroids [][]float64, labels []int) float64 {
	var inertia float64
	for i, row := range X {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if dd := sqDist(row, ctr); dd < bestD {
				best, bestD = c, dd
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

// farthest returns the point with the largest distance to its assigned centroid.
func farthest(X [][]float64, centroids [][]float64, labels []int) int {
	idx, far := 0, -1.0
	for i, row := range X {
		if dd := sqDist(row, centroids[labels[i]]); dd > far {
			idx, far = i, dd
		}
	}
	return idx
}

// farthestFromAll returns the point with the largest distance to its nearest centroid.
func farthestFromAll(X [][]float64, centroids [][]float64) int {
	labels := make([]int, len(X))
	assign(X, centroids, labels)
	return farthest(X, centroids, labels)
}

// ElbowCurve returns the inertia for every k in [kMin, kMax]. Each k
// also tries the previous solution plus its worst-served point as a
// starting layout, so the curve never increases.
func ElbowCurve(X [][]float64, kMin, kMax int, opts KMeansOptions) ([]float64, error) {
	if kMin < 1 || kMax < kMin {
		return nil, fmt.Errorf("%w: invalid elbow range [%d, %d]", common.ErrInvalidConfig, kMin, kMax)
	}
	if err := validatePoints(X, kMax); err != nil {
		return nil, err
	}

	curve := make([]float64, 0, kMax-kMin+1)
	var prev *Clustering
	for k := kMin; k <= kMax; k++ {
		o := opts
		o.K = k
		c, err := KMeans(X, o)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			start := make([][]float64, 0, k)
			for _, ctr := range prev.Centroids {
				start = append(start, clone(ctr))
			}
			start = append(start, clone(X[farthestFromAll(X, prev.Centroids)]))
			warm := lloyd(X, start, max(o.MaxIter, 1), scaledTol(X, o.Tol))
			if warm.Inertia < c.Inertia {
				c = warm
			}
		}
		curve = append(curve, c.Inertia)
		prev = c
	}
	return curve, nil
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
