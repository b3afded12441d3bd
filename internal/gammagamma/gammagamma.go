// Package gammagamma implements the Gamma-Gamma spend model: an
// individual's transaction values are Gamma(p, nu) distributed and nu is
// Gamma(q, v) across the population.
package gammagamma

import (
	"errors"
	"fmt"
	"math"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/optim"
)

// Params are the population parameters.
type Params struct {
	P float64 `json:"p"`
	Q float64 `json:"q"`
	V float64 `json:"v"`
}

// Model is a fitted or fixed-parameter Gamma-Gamma model.
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

// Fit estimates (p, q, v) from repeat frequency and mean repeat value.
// Every entry must have frequency > 0 and monetary > 0.
// Convergence failures are reported as in bgnbd.Fit.
func Fit(frequency, monetary []float64, penalizer float64, s optim.Settings) (*Model, error) {
	n := len(frequency)
	if n == 0 || len(monetary) != n {
		return nil, fmt.Errorf("%w: gamma-gamma needs equal, non-empty inputs (got %d/%d)",
			common.ErrDegenerateInput, len(frequency), len(monetary))
	}
	for i := range frequency {
		if !(frequency[i] > 0) || !(monetary[i] > 0) {
			return nil, fmt.Errorf("%w: gamma-gamma input %d has frequency %g, monetary %g",
				common.ErrDegenerateInput, i, frequency[i], monetary[i])
		}
	}

	objective := func(logParams []float64) float64 {
		p := Params{
			P: math.Exp(logParams[0]),
			Q: math.Exp(logParams[1]),
			V: math.Exp(logParams[2]),
		}
		var sum float64
		for i := range frequency {
			sum += logLikelihood(p, frequency[i], monetary[i])
		}
		penalty := p.P*p.P + p.Q*p.Q + p.V*p.V
		return -sum/float64(n) + penalizer*penalty
	}

	x0 := []float64{initialLogParam, initialLogParam, initialLogParam}
	best, err := optim.Minimize("gamma-gamma", objective, x0, s)

	var ce *optim.ConvergenceError
	if err != nil && !(errors.As(err, &ce) && ce.Usable) {
		return nil, err
	}
	return NewModel(Params{P: math.Exp(best[0]), Q: math.Exp(best[1]), V: math.Exp(best[2])}), err
}

func logLikelihood(p Params, x, m float64) float64 {
	lg := func(v float64) float64 {
		l, _ := math.Lgamma(v)
		return l
	}
	px := p.P * x
	return lg(px+p.Q) - lg(px) - lg(p.Q) +
		p.Q*math.Log(p.V) +
		(px-1)*math.Log(m) +
		px*math.Log(x) -
		(px+p.Q)*math.Log(x*m+p.V)
}

// ConditionalExpectedValue is the expected mean transaction value of an
// individual with x repeat transactions averaging m. It shrinks m toward
// the population mean v*p/(q-1).
func (m *Model) ConditionalExpectedValue(x, mean float64) float64 {
	p := m.params
	w := p.P * x / (p.P*x + p.Q - 1)
	population := p.V * p.P / (p.Q - 1)
	return (1-w)*population + w*mean
}

// PopulationMean is the mean transaction value across the population.
func (m *Model) PopulationMean() float64 {
	return m.params.V * m.params.P / (m.params.Q - 1)
}
