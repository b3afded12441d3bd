// Package optim wraps the gonum Nelder-Mead minimizer used by the
// probabilistic models and classifies its outcome.
package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
)

// DefaultMaxIterations bounds the number of simplex iterations.
const DefaultMaxIterations = 5000

// Settings tunes a minimization.
type Settings struct {
	MaxIterations int
	// Tolerance is the absolute and relative function change below which the
	// search is considered converged.
	Tolerance float64
}

// DefaultSettings returns the settings used when a caller passes none.
func DefaultSettings() Settings {
	return Settings{MaxIterations: DefaultMaxIterations, Tolerance: 1e-10}
}

// ConvergenceError reports a fit whose optimizer did not converge.
// X holds the best point seen; Usable tells whether it is finite and can
// still be used for prediction.
type ConvergenceError struct {
	Model  string
	Status optimize.Status
	Cause  error
	X      []float64
	Value  float64
	Usable bool
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("%s fit did not converge (status %s, objective %g)", e.Model, e.Status, e.Value)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConvergenceError) Unwrap() error {
	return common.ErrFitConvergence
}

var converged = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.MethodConverge:      true,
	optimize.GradientThreshold:   true,
	optimize.FunctionThreshold:   true,
	optimize.StepConvergence:     true,
}

// Minimize runs Nelder-Mead on f from x0. Non-finite objective values are
// treated as +Inf so the simplex walks away from them. On failure the
// returned *ConvergenceError still carries the best point.
func Minimize(model string, f func([]float64) float64, x0 []float64, s Settings) ([]float64, error) {
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = 1e-10
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := f(x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: s.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Tolerance,
			Relative:   s.Tolerance,
			Iterations: 200,
		},
	}

	init := make([]float64, len(x0))
	copy(init, x0)

	res, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if res == nil {
		return nil, &ConvergenceError{Model: model, Status: optimize.Failure, Cause: err, Value: math.NaN()}
	}

	x := make([]float64, len(res.X))
	copy(x, res.X)
	finite := isFinite(res.F) && allFinite(x)

	if err != nil || !converged[res.Status] || !finite {
		return x, &ConvergenceError{
			Model:  model,
			Status: res.Status,
			Cause:  err,
			X:      x,
			Value:  res.F,
			Usable: finite,
		}
	}
	return x, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
