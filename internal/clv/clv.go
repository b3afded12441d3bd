// Package clv turns fitted purchase and spend models into discounted
// lifetime values and runs the whole value stage over an RFM table.
package clv

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/bgnbd"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/gammagamma"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/optim"
)

// DaysPerMonth converts monthly horizons to the daily time unit of the RFM table.
const DaysPerMonth = 30

// ValueBasis selects the per-transaction value fed to the spend model when computing CLV.
type ValueBasis string

const (
	// BasisProfit uses total profit when the source carried a profit column.
	BasisProfit ValueBasis = "profit"
	// BasisMonetary always uses the mean repeat transaction value.
	BasisMonetary ValueBasis = "monetary"
)

// PurchaseModel predicts cumulative purchases over a horizon of t days.
type PurchaseModel interface {
	ExpectedPurchases(t, x, tx, T float64) float64
}

// SpendModel predicts the expected average transaction value.
type SpendModel interface {
	ConditionalExpectedValue(x, m float64) float64
}

// Synthesize returns the discounted value of an individual over horizonMonths.
// Each month contributes value * (E[X(30m)] - E[X(30(m-1))]) / (1+d)^m.
// Negative monthly increments count as zero. A month whose expectation is
// not finite contributes nothing and the next finite month is measured
// against the last finite expectation.
func Synthesize(alive PurchaseModel, spend SpendModel, x, tx, T, valueOrProfit float64, horizonMonths int, monthlyDiscount float64) float64 {
	value := spend.ConditionalExpectedValue(x, valueOrProfit)
	if !isFinite(value) {
		return 0
	}

	var total, prev float64
	for m := 1; m <= horizonMonths; m++ {
		expected := alive.ExpectedPurchases(float64(m*DaysPerMonth), x, tx, T)
		if !isFinite(expected) {
			continue
		}
		increment := expected - prev
		prev = expected
		if !(increment > 0) {
			continue
		}
		total += value * increment / math.Pow(1+monthlyDiscount, float64(m))
	}
	return finiteOrZero(total)
}

// Options controls the value stage.
type Options struct {
	PenalizerBG     float64
	PenalizerGG     float64
	HorizonMonths   int
	MonthlyDiscount float64
	// PredictionDays is the horizon of the predicted purchase column.
	PredictionDays float64
	ValueBasis     ValueBasis
	Optimizer      optim.Settings
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		PenalizerBG:     0.001,
		PenalizerGG:     0.0,
		HorizonMonths:   12,
		MonthlyDiscount: 0.01,
		PredictionDays:  30,
		ValueBasis:      BasisProfit,
		Optimizer:       optim.DefaultSettings(),
	}
}

// Report describes how the value stage went.
type Report struct {
	BG         bgnbd.Params      `json:"bgnbd"`
	GG         gammagamma.Params `json:"gamma_gamma"`
	BGFitted   bool              `json:"bgnbd_fitted"`
	GGFitted   bool              `json:"gamma_gamma_fitted"`
	ValidCount int               `json:"valid_count"`
	Basis      ValueBasis        `json:"value_basis"`
	Degraded   bool              `json:"degraded"`
	Issues     []string          `json:"issues,omitempty"`
}

func (r *Report) degrade(issue string) {
	r.Degraded = true
	r.Issues = append(r.Issues, issue)
}

// Estimate fits both models and fills the prediction columns of table.
// Fit failures never abort: usable best-effort parameters are kept, anything
// else leaves the affected columns at zero, and the report is marked degraded.
func Estimate(table *model.ScoredTable, opts Options, logger *slog.Logger) (Report, error) {
	var rep Report
	if err := table.Require("clv", model.CapRFM); err != nil {
		return rep, err
	}
	if table.Len() == 0 {
		return rep, common.ErrNoEntities
	}
	if logger == nil {
		logger = common.Discard()
	}

	x := table.Column(func(e model.ScoredEntity) float64 { return e.Frequency })
	tx := table.Column(func(e model.ScoredEntity) float64 { return e.Recency })
	T := table.Column(func(e model.ScoredEntity) float64 { return e.T })

	// Step 1: purchase model
	bg, err := bgnbd.Fit(x, tx, T, opts.PenalizerBG, opts.Optimizer)
	if err != nil {
		if !errors.Is(err, common.ErrFitConvergence) && !errors.Is(err, common.ErrDegenerateInput) {
			return rep, fmt.Errorf("purchase model: %w", err)
		}
		logger.Warn("Purchase model fit degraded", "error", err, "usable", bg != nil)
		rep.degrade("bgnbd: " + err.Error())
	}
	if bg != nil {
		rep.BG = bg.Params()
		rep.BGFitted = true
	}

	// Step 2: spend model on the valid mask only
	var validFreq, validMon []float64
	for _, e := range table.Entities {
		if e.InValidMask() {
			validFreq = append(validFreq, e.Frequency)
			validMon = append(validMon, e.MonetaryValue)
		}
	}
	rep.ValidCount = len(validFreq)

	var gg *gammagamma.Model
	if len(validFreq) == 0 {
		rep.degrade("gamma-gamma: no entity with repeat purchases and positive value")
	} else {
		gg, err = gammagamma.Fit(validFreq, validMon, opts.PenalizerGG, opts.Optimizer)
		if err != nil {
			if !errors.Is(err, common.ErrFitConvergence) && !errors.Is(err, common.ErrDegenerateInput) {
				return rep, fmt.Errorf("spend model: %w", err)
			}
			logger.Warn("Spend model fit degraded", "error", err, "usable", gg != nil)
			rep.degrade("gamma-gamma: " + err.Error())
		}
	}
	if gg != nil {
		rep.GG = gg.Params()
		rep.GGFitted = true
	}

	rep.Basis = BasisMonetary
	if opts.ValueBasis == BasisProfit && table.Capabilities.Has(model.CapProfit) {
		rep.Basis = BasisProfit
	}

	// Step 3: fill columns
	for i := range table.Entities {
		e := &table.Entities[i]
		if bg != nil {
			e.PredictedPurchases = finiteOrZero(bg.ExpectedPurchases(opts.PredictionDays, e.Frequency, e.Recency, e.T))
			e.ProbAlive = finiteOrZero(bg.ProbabilityAlive(e.Frequency, e.Recency, e.T))
		}
		if gg == nil || !e.InValidMask() {
			continue
		}
		e.ExpectedAvgValue = finiteOrZero(gg.ConditionalExpectedValue(e.Frequency, e.MonetaryValue))
		if bg == nil {
			continue
		}
		basis := e.MonetaryValue
		if rep.Basis == BasisProfit {
			basis = e.ProfitAdjusted
		}
		e.CLV = Synthesize(bg, gg, e.Frequency, e.Recency, e.T, basis, opts.HorizonMonths, opts.MonthlyDiscount)
	}
	table.Add(model.CapPrediction)

	logger.Info("Value stage complete",
		"entities", table.Len(),
		"valid", rep.ValidCount,
		"basis", rep.Basis,
		"degraded", rep.Degraded)
	return rep, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
