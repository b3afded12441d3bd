// Package pipeline runs one scoring pass: load, aggregate, summarize, value,
// segment, then the auxiliary scorers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/aggregate"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/clv"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/metrics"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/rfm"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/scorers"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/segment"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/service"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageLoad      Stage = "load"
	StageAggregate Stage = "aggregate"
	StageRFM       Stage = "rfm"
	StageLTV       Stage = "ltv"
	StageSegment   Stage = "segment"
	StageScorers   Stage = "scorers"
)

// Stages lists every stage of a full run.
var Stages = []Stage{StageLoad, StageAggregate, StageRFM, StageLTV, StageSegment, StageScorers}

// Scorer names.
const (
	ScorerChurn    = "churn"
	ScorerMLCLV    = "ml_clv"
	ScorerNBO      = "nbo"
	ScorerUplift   = "uplift"
	ScorerForecast = "forecast"
)

// ProgressFunc is told when a stage starts; index is 0-based out of total.
type ProgressFunc func(stage Stage, index, total int)

// Toggles enables the auxiliary scorers.
type Toggles struct {
	MLCLV    bool
	Churn    bool
	NBO      bool
	Uplift   bool
	Forecast bool
}

// Options configures a run.
type Options struct {
	Aggregate       aggregate.Options
	LTV             clv.Options
	Segment         segment.Options
	Scorers         Toggles
	Churn           scorers.ChurnOptions
	MLCLV           scorers.MLCLVOptions
	Uplift          scorers.UpliftOptions
	Forecast        scorers.ForecastOptions
	PremiumQuantile float64
}

// DefaultOptions returns the defaults with every scorer enabled.
func DefaultOptions(seed uint64) Options {
	return Options{
		LTV:             clv.DefaultOptions(),
		Segment:         segment.Options{NClusters: 4, MaxComponents: 7, Seed: seed},
		Scorers:         Toggles{MLCLV: true, Churn: true, NBO: true, Uplift: true, Forecast: true},
		Churn:           scorers.DefaultChurnOptions(seed),
		MLCLV:           scorers.DefaultMLCLVOptions(seed),
		Uplift:          scorers.DefaultUpliftOptions(seed),
		Forecast:        scorers.DefaultForecastOptions(),
		PremiumQuantile: 0.8,
	}
}

// Deps are the collaborators of a run. Every field is optional.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Progress ProgressFunc
	Now      func() time.Time
}

// ScorerFailure records an auxiliary scorer that did not complete.
type ScorerFailure struct {
	Scorer string `json:"scorer"`
	Err    error  `json:"-"`
}

func (f ScorerFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Scorer, f.Err)
}

// Prepared holds everything up to the RFM table.
type Prepared struct {
	Rows   []model.AggregatedTransaction
	Schema model.SourceSchema
	Stats  aggregate.Stats
	Table  *model.ScoredTable
}

// Result is the output of one run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Prepared
	LTV            clv.Report
	Segments       segment.Report
	Profiles       []segment.Profile
	Churn          *scorers.ChurnResult
	MLCLV          *scorers.MLCLVResult
	Uplift         *scorers.UpliftResult
	Offers         []scorers.Offer
	Forecast       []scorers.ForecastPoint
	ScorerFailures []ScorerFailure
	Summary        model.RunSummary
}

// Degraded reports whether the value stage fell back on unconverged or zero parameters.
func (r *Result) Degraded() bool {
	return r.LTV.Degraded
}

// Pipeline runs the stages with fixed options.
type Pipeline struct {
	opts Options
	deps Deps
}

// New creates a pipeline.
func New(opts Options, deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = common.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{opts: opts, deps: deps}
}

func (p *Pipeline) progress(stage Stage) {
	if p.deps.Progress == nil {
		return
	}
	for i, s := range Stages {
		if s == stage {
			p.deps.Progress(stage, i, len(Stages))
			return
		}
	}
}

// timed runs fn as stage, reporting progress and duration.
func (p *Pipeline) timed(ctx context.Context, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.progress(stage)
	start := time.Now()
	err := fn()
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(string(stage), time.Since(start))
	}
	p.deps.Logger.Debug("Stage finished", "stage", stage, "duration", time.Since(start), "error", err)
	return err
}

// Prepare loads the source and builds the RFM table.
func (p *Pipeline) Prepare(ctx context.Context, src service.TransactionSource) (*Prepared, error) {
	var (
		raw    []model.RawTransaction
		schema model.SourceSchema
	)
	// Step 1: load
	err := p.timed(ctx, StageLoad, func() error {
		var err error
		raw, schema, err = src.Load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.deps.Logger.Info("Loaded transactions", "source", schema.Name, "rows", len(raw),
		"has_profit", schema.HasProfit, "has_ship_date", schema.HasShipDate)

	return p.prepareRows(ctx, raw, schema)
}

func (p *Pipeline) prepareRows(ctx context.Context, raw []model.RawTransaction, schema model.SourceSchema) (*Prepared, error) {
	prep := &Prepared{Schema: schema}

	// Step 2: clean and aggregate
	err := p.timed(ctx, StageAggregate, func() error {
		var err error
		prep.Rows, prep.Stats, err = aggregate.Aggregate(raw, schema, p.opts.Aggregate)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.recordDrops(prep.Stats)
	p.deps.Logger.Info("Aggregated transactions",
		"rows_in", prep.Stats.RowsIn,
		"rows_kept", prep.Stats.RowsKept,
		"groups", prep.Stats.Groups)

	// Step 3: RFM
	err = p.timed(ctx, StageRFM, func() error {
		records, err := rfm.Summarize(prep.Rows, rfm.ObservationEnd(prep.Rows))
		if err != nil {
			return err
		}
		prep.Table = model.NewScoredTable(records, schema.HasProfit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rfm summary: %w", err)
	}
	p.deps.Logger.Info("Summarized entities", "entities", prep.Table.Len())
	return prep, nil
}

func (p *Pipeline) recordDrops(st aggregate.Stats) {
	if p.deps.Metrics == nil {
		return
	}
	p.deps.Metrics.Dropped("missing_entity", st.MissingEntity)
	p.deps.Metrics.Dropped("non_positive", st.NonPositive)
	p.deps.Metrics.Dropped("amount_outliers", st.AmountOutlier)
	p.deps.Metrics.Dropped("quantity_outliers", st.QtyOutlier)
	p.deps.Metrics.Dropped("bad_date", st.BadDate)
}

// Run executes a full pass over src. Core failures abort with no result;
// scorer failures are collected in Result.ScorerFailures.
func (p *Pipeline) Run(ctx context.Context, src service.TransactionSource) (*Result, error) {
	started := p.deps.Now()
	prep, err := p.Prepare(ctx, src)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, started, prep)
}

// RunRows executes a full pass over rows already loaded.
func (p *Pipeline) RunRows(ctx context.Context, raw []model.RawTransaction, schema model.SourceSchema) (*Result, error) {
	started := p.deps.Now()
	prep, err := p.prepareRows(ctx, raw, schema)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, started, prep)
}

func (p *Pipeline) finish(ctx context.Context, started time.Time, prep *Prepared) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), StartedAt: started, Prepared: *prep}
	logger := p.deps.Logger.With("run_id", res.RunID)

	// Step 4: value models
	err := p.timed(ctx, StageLTV, func() error {
		var err error
		res.LTV, err = clv.Estimate(res.Table, p.opts.LTV, logger)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("value stage: %w", err)
	}

	// Step 5: segmentation
	err = p.timed(ctx, StageSegment, func() error {
		var err error
		if res.Segments, err = segment.Segment(res.Table, p.opts.Segment, logger); err != nil {
			return err
		}
		res.Profiles, err = segment.Profiles(res.Table)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}

	// Step 6: auxiliary scorers
	if err := p.timed(ctx, StageScorers, func() error {
		p.runScorers(res, logger)
		return nil
	}); err != nil {
		return nil, err
	}

	res.Summary = Summarize(res, p.deps.Now())
	if p.deps.Metrics != nil {
		p.deps.Metrics.SetSummary(&res.Summary)
	}
	logger.Info("Run complete",
		"entities", res.Summary.TotalEntities,
		"avg_clv", res.Summary.AvgCLV,
		"clusters", res.Summary.Clusters,
		"degraded", res.Summary.Degraded,
		"scorer_failures", len(res.ScorerFailures))
	return res, nil
}

func (p *Pipeline) runScorers(res *Result, logger *slog.Logger) {
	t := p.opts.Scorers
	table := res.Table

	if t.Churn {
		p.isolate(res, logger, ScorerChurn, func() error {
			opts := p.opts.Churn
			labels := scorers.LabelChurn(res.Rows, opts.HorizonDays)
			var err error
			res.Churn, err = scorers.Churn(table, labels, opts)
			return err
		})
	}
	if t.MLCLV {
		p.isolate(res, logger, ScorerMLCLV, func() error {
			var err error
			res.MLCLV, err = scorers.MLCLV(table, p.opts.MLCLV)
			return err
		})
	}
	if t.NBO {
		p.isolate(res, logger, ScorerNBO, func() error {
			var err error
			res.Offers, err = scorers.NextBestOffer(table, p.opts.PremiumQuantile)
			return err
		})
	}
	if t.Uplift {
		p.isolate(res, logger, ScorerUplift, func() error {
			var err error
			res.Uplift, err = scorers.Uplift(table, p.opts.Uplift)
			return err
		})
	}
	if t.Forecast {
		p.isolate(res, logger, ScorerForecast, func() error {
			var err error
			res.Forecast, err = scorers.Forecast(table, scorers.MonthStart(res.StartedAt), p.opts.Forecast)
			return err
		})
	}
}

// isolate runs one scorer, turning errors and panics into a recorded failure.
func (p *Pipeline) isolate(res *Result, logger *slog.Logger, name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		logger.Debug("Scorer complete", "scorer", name)
		return
	}

	level := slog.LevelWarn
	if !errors.Is(err, common.ErrDegenerateInput) && !errors.Is(err, common.ErrSchemaMismatch) {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "Scorer skipped", "scorer", name, "error", err)

	res.ScorerFailures = append(res.ScorerFailures, ScorerFailure{Scorer: name, Err: err})
	if p.deps.Metrics != nil {
		p.deps.Metrics.ScorerFailed(name)
	}
}
