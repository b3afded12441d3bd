package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/cli"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ingest"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/segment"
)

func elbowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elbow",
		Short: "Print k-means inertia for a range of cluster counts",
		Long: `Load and summarize the input, then fit k-means on the standardized
(recency, frequency, monetary_value) features for every k in [k-min, k-max]
and print the inertia of each fit.`,
		RunE: runElbow,
	}
	cmd.Flags().Int("k-min", 1, "smallest number of clusters")
	cmd.Flags().Int("k-max", 0, "largest number of clusters (default ai.max_gmm_components, capped at the entity count)")
	return cmd
}

func runElbow(cmd *cobra.Command, _ []string) error {
	kMin, _ := cmd.Flags().GetInt("k-min")
	kMax, _ := cmd.Flags().GetInt("k-max")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if kMax == 0 {
		kMax = cfg.AI.MaxGMMComponents
	}
	if kMin < 1 || kMax < kMin {
		return common.NewUserError("Invalid k range", fmt.Errorf("%w: need 1 <= k-min <= k-max, got %d..%d", common.ErrInvalidConfig, kMin, kMax))
	}
	src, err := ingest.New(cfg.Input)
	if err != nil {
		return common.NewUserError("Invalid input configuration", err)
	}

	prep, err := pipeline.New(cfg.PipelineOptions(), pipeline.Deps{}).Prepare(cmd.Context(), src)
	if err != nil {
		return common.NewUserError("Could not prepare input", err)
	}

	inertia, err := segment.Elbow(prep.Table, kMin, kMax, cfg.Seed)
	if err != nil {
		return common.NewUserError("Elbow curve failed", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderElbow(kMin, inertia))
	return nil
}
