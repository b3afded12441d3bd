// Package bgnbd implements the beta-geometric / negative binomial purchase
// model: Poisson purchasing while alive, a geometric dropout chance after
// each purchase, Gamma(r, alpha) purchase rates and Beta(a, b) dropout
// probabilities across the population.
package bgnbd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/optim"
)

// Params are the population parameters.
type Params struct {
	R     float64 `json:"r"`
	Alpha float64 `json:"alpha"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
}

func (p Params) vector() []float64 {
	return []float64{p.R, p.Alpha, p.A, p.B}
}

// Model is a fitted or fixed-parameter BG/NBD model.
type Model struct {
	params Params
}

// NewModel returns a model with fixed parameters.
func NewModel(p Params) *Model {
	return &Model{params: p}
}

// Params returns the model parameters.
func (m *Model) Params() Params {
	return m.params
}

const initialLogParam = 0.1

// Fit estimates the parameters by maximum likelihood with an L2 penalty on
// the parameters. Time is rescaled to a maximum of 10 during the search.
//
// When the optimizer does not converge a *optim.ConvergenceError is returned.
// If its Usable flag is set the returned model carries the best parameters
// seen; otherwise the model is nil.
func Fit(frequency, recency, T []float64, penalizer float64, s optim.Settings) (*Model, error) {
	n := len(frequency)
	if n == 0 || len(recency) != n || len(T) != n {
		return nil, fmt.Errorf("%w: bgnbd needs equal, non-empty inputs (got %d/%d/%d)",
			common.ErrDegenerateInput, len(frequency), len(recency), len(T))
	}

	maxT := 0.0
	for _, v := range T {
		maxT = math.Max(maxT, v)
	}
	scale := 1.0
	if maxT > 0 {
		scale = 10 / maxT
	}

	tx := make([]float64, n)
	tt := make([]float64, n)
	for i := range frequency {
		tx[i] = recency[i] * scale
		tt[i] = T[i] * scale
	}

	objective := func(logParams []float64) float64 {
		p := Params{
			R:     math.Exp(logParams[0]),
			Alpha: math.Exp(logParams[1]),
			A:     math.Exp(logParams[2]),
			B:     math.Exp(logParams[3]),
		}
		var sum float64
		for i := range frequency {
			sum += logLikelihood(p, frequency[i], tx[i], tt[i])
		}
		var penalty float64
		for _, v := range p.vector() {
			penalty += v * v
		}
		return -sum/float64(n) + penalizer*penalty
	}

	x0 := []float64{initialLogParam, initialLogParam, initialLogParam, initialLogParam}
	best, err := optim.Minimize("bgnbd", objective, x0, s)

	var ce *optim.ConvergenceError
	if err != nil && !(errors.As(err, &ce) && ce.Usable) {
		return nil, err
	}

	params := Params{
		R:     math.Exp(best[0]),
		Alpha: math.Exp(best[1]) / scale,
		A:     math.Exp(best[2]),
		B:     math.Exp(best[3]),
	}
	return NewModel(params), err
}

// logLikelihood is one individual's log-likelihood in log space.
func logLikelihood(p Params, x, tx, T float64) float64 {
	lg := func(v float64) float64 {
		l, _ := math.Lgamma(v)
		return l
	}

	a1 := lg(p.R+x) - lg(p.R) + p.R*math.Log(p.Alpha)
	a2 := lg(p.A+p.B) + lg(p.B+x) - lg(p.B) - lg(p.A+p.B+x)
	a3 := -(p.R + x) * math.Log(p.Alpha+T)
	if x <= 0 {
		return a1 + a2 + a3
	}
	a4 := math.Log(p.A) - math.Log(p.B+math.Max(x, 1)-1) - (p.R+x)*math.Log(tx+p.Alpha)
	return a1 + a2 + logAddExp(a3, a4)
}

func logAddExp(a, b float64) float64 {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if math.IsInf(hi, -1) {
		return hi
	}
	return hi + math.Log1p(math.Exp(lo-hi))
}

// ExpectedPurchases is the expected number of purchases in the next t time
// units for an individual with history (x, tx, T).
func (m *Model) ExpectedPurchases(t, x, tx, T float64) float64 {
	p := m.params
	a := p.R + x
	b := p.B + x
	c := p.A + p.B + x - 1
	z := t / (p.Alpha + T + t)

	lnHyp := math.Log(mathext.Hypergeo(a, b, c, z))
	if math.IsNaN(lnHyp) || math.IsInf(lnHyp, 0) {
		// Euler transformation
		lnHyp = math.Log(mathext.Hypergeo(c-a, c-b, c, z)) + (c-a-b)*math.Log(1-z)
	}

	first := (p.A + p.B + x - 1) / (p.A - 1)
	second := 1 - math.Exp(lnHyp+(p.R+x)*math.Log((p.Alpha+T)/(p.Alpha+t+T)))
	numerator := first * second

	denominator := 1.0
	if x > 0 {
		denominator += (p.A / (p.B + x - 1)) * math.Pow((p.Alpha+T)/(p.Alpha+tx), p.R+x)
	}
	return numerator / denominator
}

// ProbabilityAlive is the probability that an individual with history
// (x, tx, T) has not dropped out. It is 1 for anyone without repeat purchases.
func (m *Model) ProbabilityAlive(x, tx, T float64) float64 {
	if x == 0 {
		return 1
	}
	p := m.params
	logDiv := (p.R+x)*math.Log((p.Alpha+T)/(p.Alpha+tx)) + math.Log(p.A/(p.B+math.Max(x, 1)-1))
	return 1 / (1 + math.Exp(logDiv))
}
