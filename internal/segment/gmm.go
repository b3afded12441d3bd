package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// GMMOptions configures Gaussian mixture fitting and selection.
type GMMOptions struct {
	MaxComponents int
	MaxIter       int
	Tol           float64
	RegCovar      float64
	Seed          uint64
}

// DefaultGMMOptions returns the usual EM limits.
func DefaultGMMOptions(maxComponents int, seed uint64) GMMOptions {
	return GMMOptions{MaxComponents: maxComponents, MaxIter: 100, Tol: 1e-3, RegCovar: 1e-6, Seed: seed}
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// Mixture is a fitted full-covariance Gaussian mixture.
type Mixture struct {
	Weights     []float64
	Means       [][]float64
	Covariances []*mat.SymDense
	// LogLikelihood is the total log-likelihood of the training data.
	LogLikelihood float64
	Converged     bool
	Iterations    int

	components []*distmv.Normal
}

// K returns the number of components.
func (m *Mixture) K() int { return len(m.Weights) }

// NumParams counts free parameters: means, covariances and k-1 weights.
func (m *Mixture) NumParams(d int) int {
	k := m.K()
	return k*d + k*d*(d+1)/2 + k - 1
}

// BIC is -2 logL + p ln n.
func (m *Mixture) BIC(n, d int) float64 {
	return -2*m.LogLikelihood + float64(m.NumParams(d))*math.Log(float64(n))
}

// Predict returns the most probable component for every point.
func (m *Mixture) Predict(X [][]float64) []int {
	labels := make([]int, len(X))
	lw := make([]float64, m.K())
	for i, x := range X {
		m.weightedLogProb(x, lw)
		labels[i] = floats.MaxIdx(lw)
	}
	return labels
}

func (m *Mixture) weightedLogProb(x []float64, out []float64) {
	for c, comp := range m.components {
		out[c] = math.Log(m.Weights[c]) + comp.LogProb(x)
	}
}

// FitGMM runs EM for k components, initialised from a k-means partition.
func FitGMM(X [][]float64, k int, opts GMMOptions) (*Mixture, error) {
	if err := validatePoints(X, k); err != nil {
		return nil, err
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = 100
	}
	if opts.RegCovar <= 0 {
		opts.RegCovar = 1e-6
	}

	n := len(X)
	km, err := KMeans(X, KMeansOptions{K: k, NInit: 1, MaxIter: 300, Tol: 1e-4, Seed: opts.Seed})
	if err != nil {
		return nil, err
	}
	resp := make([][]float64, n)
	for i, l := range km.Labels {
		resp[i] = make([]float64, k)
		resp[i][l] = 1
	}

	m := &Mixture{}
	if err := m.maximize(X, resp, opts.RegCovar); err != nil {
		return nil, err
	}

	lower := math.Inf(-1)
	lw := make([]float64, k)
	for iter := 1; iter <= opts.MaxIter; iter++ {
		prev := lower

		// E-step
		var total float64
		for i, x := range X {
			m.weightedLogProb(x, lw)
			norm := floats.LogSumExp(lw)
			total += norm
			for c := range lw {
				resp[i][c] = math.Exp(lw[c] - norm)
			}
		}
		lower = total / float64(n)
		m.LogLikelihood = total
		m.Iterations = iter

		// M-step
		if err := m.maximize(X, resp, opts.RegCovar); err != nil {
			return nil, err
		}

		if math.Abs(lower-prev) < opts.Tol {
			m.Converged = true
			break
		}
	}

	m.LogLikelihood = m.score(X)
	return m, nil
}

func (m *Mixture) score(X [][]float64) float64 {
	lw := make([]float64, m.K())
	var total float64
	for _, x := range X {
		m.weightedLogProb(x, lw)
		total += floats.LogSumExp(lw)
	}
	return total
}

// maximize re-estimates weights, means and covariances from responsibilities.
func (m *Mixture) maximize(X [][]float64, resp [][]float64, reg float64) error {
	n := len(X)
	d := len(X[0])
	k := len(resp[0])

	m.Weights = make([]float64, k)
	m.Means = make([][]float64, k)
	m.Covariances = make([]*mat.SymDense, k)
	m.components = make([]*distmv.Normal, k)

	for c := 0; c < k; c++ {
		var nk float64
		mean := make([]float64, d)
		for i, x := range X {
			nk += resp[i][c]
			floats.AddScaled(mean, resp[i][c], x)
		}
		nk += 10 * epsilon
		floats.Scale(1/nk, mean)

		cov := mat.NewSymDense(d, nil)
		diff := make([]float64, d)
		for i, x := range X {
			r := resp[i][c]
			if r == 0 {
				continue
			}
			floats.SubTo(diff, x, mean)
			cov.SymRankOne(cov, r/nk, mat.NewVecDense(d, diff))
		}
		for j := 0; j < d; j++ {
			cov.SetSym(j, j, cov.At(j, j)+reg)
		}

		normal, ok := distmv.NewNormal(mean, cov, nil)
		if !ok {
			return fmt.Errorf("%w: component %d covariance is not positive definite", common.ErrFitConvergence, c)
		}
		m.Weights[c] = nk / float64(n)
		m.Means[c] = mean
		m.Covariances[c] = cov
		m.components[c] = normal
	}

	floats.Scale(1/floats.Sum(m.Weights), m.Weights)
	return nil
}

// Selection is the outcome of choosing a mixture size by BIC.
type Selection struct {
	Mixture *Mixture
	Labels  []int
	// BIC holds the criterion for k = 1..len(BIC).
	BIC []float64
}

// K returns the chosen number of components.
func (s *Selection) K() int { return s.Mixture.K() }

// SelectGMM fits mixtures with 1..min(MaxComponents, n) components and keeps
// the one with the lowest BIC. Ties go to fewer components.
func SelectGMM(X [][]float64, opts GMMOptions) (*Selection, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: no points to cluster", common.ErrDegenerateInput)
	}
	if opts.MaxComponents < 1 {
		return nil, fmt.Errorf("%w: max components must be at least 1", common.ErrInvalidConfig)
	}
	n, d := len(X), len(X[0])
	kMax := min(opts.MaxComponents, n)

	sel := &Selection{BIC: make([]float64, 0, kMax)}
	bestBIC := math.Inf(1)
	for k := 1; k <= kMax; k++ {
		m, err := FitGMM(X, k, opts)
		if err != nil {
			if k == 1 {
				return nil, fmt.Errorf("fit %d components: %w", k, err)
			}
			sel.BIC = append(sel.BIC, math.Inf(1))
			continue
		}
		bic := m.BIC(n, d)
		sel.BIC = append(sel.BIC, bic)
		if bic < bestBIC {
			bestBIC = bic
			sel.Mixture = m
		}
	}
	if sel.Mixture == nil {
		return nil, fmt.Errorf("%w: no mixture with finite BIC", common.ErrFitConvergence)
	}
	sel.Labels = sel.Mixture.Predict(X)
	return sel, nil
}
