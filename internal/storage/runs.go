package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

const runColumns = `id, run_timestamp, total_customers, total_revenue, avg_clv, median_clv,
	avg_recency, n_clusters, segment_method, ml_clv_r2, ml_clv_mae, churn_auc,
	avg_churn_prob, rfm_correlation, activity_correlation, degraded, scorer_failures`

// SaveRun appends one run to the history.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return ErrNilSummary
	}
	if err := validateString(run.ID, "run.ID"); err != nil {
		return err
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pipeline_runs (`+runColumns+`)
		VALUES (:id, :run_timestamp, :total_customers, :total_revenue, :avg_clv, :median_clv,
			:avg_recency, :n_clusters, :segment_method, :ml_clv_r2, :ml_clv_mae, :churn_auc,
			:avg_churn_prob, :rfm_correlation, :activity_correlation, :degraded, :scorer_failures)`,
		run)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less returns all.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY run_timestamp DESC, created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var runs []model.RunSummary
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run by id.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var run model.RunSummary
	err := s.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}
