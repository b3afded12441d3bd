package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sqlx.Tx) error
	Description string
	Version     int
}

func execAll(tx *sqlx.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sqlx.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS pipeline_runs (
					id TEXT PRIMARY KEY,
					run_timestamp DATETIME NOT NULL,
					total_customers INTEGER NOT NULL,
					avg_clv REAL NOT NULL,
					median_clv REAL NOT NULL,
					n_clusters INTEGER NOT NULL,
					avg_recency REAL NOT NULL,
					ml_clv_r2 REAL,
					ml_clv_mae REAL,
					churn_auc REAL,
					avg_churn_prob REAL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_pipeline_runs_timestamp ON pipeline_runs(run_timestamp)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Track degraded runs and scorer failures",
		Up: func(tx *sqlx.Tx) error {
			return execAll(tx,
				`ALTER TABLE pipeline_runs ADD COLUMN degraded INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE pipeline_runs ADD COLUMN scorer_failures INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE pipeline_runs ADD COLUMN segment_method TEXT NOT NULL DEFAULT ''`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add revenue and correlation metrics",
		Up: func(tx *sqlx.Tx) error {
			return execAll(tx,
				`ALTER TABLE pipeline_runs ADD COLUMN total_revenue REAL NOT NULL DEFAULT 0`,
				`ALTER TABLE pipeline_runs ADD COLUMN rfm_correlation REAL`,
				`ALTER TABLE pipeline_runs ADD COLUMN activity_correlation REAL`,
			)
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTxx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reads PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "PRAGMA user_version"); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
