package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/cli"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run history database migrations",
		Long: `Initialize or update the run history schema to the latest version.

Runs are recorded automatically by "clvflow run"; this command is only
needed to inspect or prepare the database ahead of time.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := cfg.History.DBPath

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Database %s: schema version %d of %d", dbPath, current, storage.ExpectedSchemaVersion)))
		return nil
	}

	slog.Info("Running database migrations", "database", dbPath)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed"))
	return nil
}
