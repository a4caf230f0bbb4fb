package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/pipeline/intervals"
	"github.com/YuminosukeSato/conformboost/pipeline/training"
	"github.com/YuminosukeSato/conformboost/pipeline/tuning"
	"github.com/YuminosukeSato/conformboost/report"
)

func newTuneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tune",
		Short: "Search hyperparameters of MODEL for PROBLEM_TYPE",
		Long: `Concatenates TRAINING_DATA and VALIDATION_DATA and runs the randomized
search of the model family. The best parameters are printed and, unless
PERSIST_PARAMS=false, written to {MODELS_DIR}/params.pkl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.stage(cmd, config.StageTune, func(ctx context.Context, cfg *config.Config) error {
				env, err := tuning.Run(ctx, cfg)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, name := range env.Params.Keys() {
					fmt.Fprintf(out, "%s=%v\n", name, env.Params[name])
				}
				if cfg.PersistParams {
					fmt.Fprintf(out, "saved %s (%s)\n", cfg.ParamsPath(), humanize.Bytes(fileSize(cfg.ParamsPath())))
				}
				return nil
			})
		},
	}
}

func newTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Fit MODEL on TRAINING_DATA and store the model artifact",
		Long: `Fits the estimator of the model family for PROBLEM_TYPE on TRAINING_DATA,
applying {MODELS_DIR}/params.pkl when it was tuned for the same family, and
stores it as {MODELS_DIR}/{MODEL}.pkl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.stage(cmd, config.StageTrain, func(ctx context.Context, cfg *config.Config) error {
				if _, err := training.Train(ctx, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", cfg.ModelPath(), humanize.Bytes(fileSize(cfg.ModelPath())))
				return nil
			})
		},
	}
}

func newIntervalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "intervals",
		Short: "Compute prediction intervals for TEST_DATA",
		Long: `Loads {MODELS_DIR}/{MODEL}.pkl and writes 95% prediction intervals for
every row of TEST_DATA to {MODELS_DIR}/{PROBLEM_TYPE}_{MODEL}_{DATASET}_intervals.csv.

xgboost and lightgbm use inductive conformal prediction calibrated on
CALIBRATION_SET; catboost regression trains a pair of quantile models with
the parameters in {MODELS_DIR}/params.pkl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.stage(cmd, config.StageIntervals, func(ctx context.Context, cfg *config.Config) error {
				path, err := intervals.Run(ctx, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(fileSize(path)))
				return nil
			})
		},
	}
}

func newPlotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plot",
		Short: "Render the interval file as a PNG chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.stage(cmd, config.StagePlot, func(ctx context.Context, cfg *config.Config) error {
				path, err := report.Run(ctx, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", path, humanize.Bytes(fileSize(path)))
				return nil
			})
		},
	}
}
