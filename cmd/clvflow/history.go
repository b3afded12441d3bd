package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/cli"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show (0 for all)")
	cmd.Flags().String("id", "", "print one run as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	id, _ := cmd.Flags().GetString("id")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openStore(ctx, cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if id != "" {
		run, err := store.GetRun(ctx, id)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode run: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, cli.RenderHistory(runs))
	return nil
}
