package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/aggregate"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/bgnbd"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/gammagamma"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
)

// CSVWriter writes each table to <dir>/<name>.csv.
type CSVWriter struct {
	dir string
}

// NewCSVWriter returns a writer for dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteTables implements service.TableSink.
func (w *CSVWriter) WriteTables(ctx context.Context, tables []model.Table) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeTable(t); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) writeTable(t model.Table) (err error) {
	path := filepath.Join(w.dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RunReport is the JSON document describing one run.
type RunReport struct {
	Summary        model.RunSummary  `json:"summary"`
	Source         string            `json:"source"`
	Cleaning       aggregate.Stats   `json:"cleaning"`
	BGNBD          bgnbd.Params      `json:"bgnbd"`
	GammaGamma     gammagamma.Params `json:"gamma_gamma"`
	ValueBasis     string            `json:"value_basis"`
	Issues         []string          `json:"issues,omitempty"`
	SegmentBIC     []*float64        `json:"segment_bic,omitempty"`
	UpliftTopSum   *float64          `json:"uplift_top_sum,omitempty"`
	UpliftRandom   *float64          `json:"uplift_random_sum,omitempty"`
	ScorerFailures map[string]string `json:"scorer_failures,omitempty"`
}

// NewRunReport collects the JSON-safe parts of res. Non-finite numbers become null.
func NewRunReport(res *pipeline.Result) RunReport {
	r := RunReport{
		Summary:    res.Summary,
		Source:     res.Schema.Name,
		Cleaning:   res.Stats,
		BGNBD:      res.LTV.BG,
		GammaGamma: res.LTV.GG,
		ValueBasis: string(res.LTV.Basis),
		Issues:     res.LTV.Issues,
	}
	for _, b := range res.Segments.BIC {
		r.SegmentBIC = append(r.SegmentBIC, model.Metric(b))
	}
	if res.Uplift != nil {
		r.UpliftTopSum = model.Metric(res.Uplift.TopSum)
		r.UpliftRandom = model.Metric(res.Uplift.RandomSum)
	}
	if len(res.ScorerFailures) > 0 {
		r.ScorerFailures = make(map[string]string, len(res.ScorerFailures))
		for _, f := range res.ScorerFailures {
			r.ScorerFailures[f.Scorer] = f.Err.Error()
		}
	}
	return r
}

// ExportJSON writes data as indented JSON, creating parent directories.
func ExportJSON(filename string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// TimestampedFilename returns <baseDir>/<name>_<timestamp>.json.
func TimestampedFilename(baseDir, name string, t time.Time) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.json", name, t.Format("20060102_150405")))
}
