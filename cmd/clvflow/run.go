package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/cli"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/config"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ingest"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/metrics"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/report"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/service"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/sheets"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/storage"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score transactions and write the output tables",
		Long: `Load transactions, aggregate them per customer and day, fit the lifetime
value models, segment customers and run the enabled scorers.

Tables are written as CSV files under the output directory, a JSON run
report is written under <output>/runs, and the run is appended to the
history database.`,
		RunE: runRun,
	}

	flags := cmd.Flags()
	flags.String("input", "", "input file (.csv or .xlsx)")
	flags.String("kind", "", "input kind: csv, xlsx or sql (default: from the file extension)")
	flags.String("sheet", "", "worksheet name for xlsx input")
	flags.String("output", "", "directory for output tables")
	flags.Int("clusters", 0, "number of k-means clusters")
	flags.Bool("auto-gmm", false, "choose the number of segments with a BIC-selected Gaussian mixture")
	flags.Bool("sheets", false, "also export the tables to Google Sheets")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file")
	flags.Bool("no-history", false, "do not record the run in the history database")
	flags.Bool("no-progress", false, "hide the progress bar")
	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	noHistory, _ := cmd.Flags().GetBool("no-history")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	src, err := ingest.New(cfg.Input)
	if err != nil {
		return common.NewUserError("Invalid input configuration", err)
	}

	rec := metrics.NewRecorder()
	deps := pipeline.Deps{Logger: logger, Metrics: rec}
	var progress *cli.StageProgress
	if !noProgress {
		progress = cli.NewStageProgress(cmd.ErrOrStderr())
		deps.Progress = progress.Stage
	}

	res, err := pipeline.New(cfg.PipelineOptions(), deps).Run(ctx, src)
	if err != nil {
		return common.NewUserError("Pipeline run failed", err)
	}
	if progress != nil {
		progress.Finish()
	}

	tables := report.Tables(res, cfg.ReportOptions())
	if err := report.NewCSVWriter(cfg.Output.Dir).WriteTables(ctx, tables); err != nil {
		return fmt.Errorf("failed to write tables: %w", err)
	}
	reportPath := report.TimestampedFilename(filepath.Join(cfg.Output.Dir, "runs"), "run", res.StartedAt)
	if err := report.ExportJSON(reportPath, report.NewRunReport(res)); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	logger.Info("Wrote output tables", "dir", cfg.Output.Dir, "tables", len(tables), "report", reportPath)

	if cfg.Sheets.Enabled {
		if err := exportSheets(ctx, cfg, tables, logger); err != nil {
			common.LogError(logger, err, "Sheets export failed", common.Fields{"run_id": res.RunID})
		}
	}

	if !noHistory && cfg.History.Enabled {
		if err := recordRun(ctx, cfg.History.DBPath, &res.Summary); err != nil {
			common.LogError(logger, err, "Failed to record run history", common.Fields{"db": cfg.History.DBPath})
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			common.LogError(logger, err, "Failed to write metrics", common.Fields{"path": cfg.Metrics.Textfile})
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.RenderSummary(res))
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Results written to %s", cfg.Output.Dir)))
	return nil
}

func exportSheets(ctx context.Context, cfg *config.Config, tables []model.Table, logger *slog.Logger) error {
	sc, err := cfg.SheetsWriterConfig()
	if err != nil {
		return err
	}
	w, err := sheets.NewWriter(ctx, sc, logger)
	if err != nil {
		return err
	}
	if err := w.WriteTables(ctx, tables); err != nil {
		return err
	}
	logger.Info("Exported tables to Google Sheets", "spreadsheet_id", w.SpreadsheetID())
	return nil
}

func recordRun(ctx context.Context, dbPath string, summary *model.RunSummary) error {
	store, err := openStore(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.SaveRun(ctx, summary)
}

// openStore opens the history database and brings its schema up to date.
func openStore(ctx context.Context, dbPath string) (service.RunStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: history.db_path", common.ErrMissingConfig)
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return store, nil
}
