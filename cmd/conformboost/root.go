package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	envFile string
	console bool
	cfg     *config.Config
	runID   string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "conformboost",
		Short: "Tune gradient-boosted models and build conformal prediction intervals",
		Long: `conformboost runs the stages of a fixed modelling pipeline for xgboost,
lightgbm and catboost style models.

Inputs are read from the environment (TRAINING_DATA, VALIDATION_DATA,
CALIBRATION_SET, TEST_DATA, MODEL, PROBLEM_TYPE, DATASET), optionally seeded
from a .env file.

Examples:
  conformboost tune        # randomized search, writes models/params.pkl
  conformboost train       # fits models/{MODEL}.pkl
  conformboost intervals   # writes models/{PROBLEM_TYPE}_{MODEL}_{DATASET}_intervals.csv
  conformboost plot        # renders the interval file as PNG`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "file of KEY=VALUE lines loaded into the environment (default: .env if present)")
	flags.String("models-dir", "", "directory of model artifacts and outputs (env MODELS_DIR, default models)")
	flags.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL, default info)")
	flags.String("seed", "", "random seed of the search and the models (env SEED, default 0)")
	flags.BoolVar(&a.console, "console", false, "human readable log output instead of JSON")

	_ = a.v.BindPFlag(config.Key(config.EnvModelsDir), flags.Lookup("models-dir"))
	_ = a.v.BindPFlag(config.Key(config.EnvLogLevel), flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.Key(config.EnvSeed), flags.Lookup("seed"))

	root.AddCommand(
		newTuneCmd(a),
		newTrainCmd(a),
		newIntervalsCmd(a),
		newPlotCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the env file, resolves the configuration and installs the
// logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return a.fail(cmd, err)
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return a.fail(cmd, err)
	}
	if err := log.SetupLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, a.console); err != nil {
		return a.fail(cmd, err)
	}
	a.cfg = cfg
	a.runID = uuid.New().String()
	log.SetRunID(a.runID)
	return nil
}

// fail logs err with its stack trace and returns it for a non-zero exit.
func (a *app) fail(cmd *cobra.Command, err error) error {
	log.GetLoggerWithName("cli").Error("Command failed", err, "command", cmd.Name())
	return err
}

// stage runs fn as the named pipeline stage.
func (a *app) stage(cmd *cobra.Command, stage config.Stage, fn func(ctx context.Context, cfg *config.Config) error) error {
	logger := log.GetLoggerWithName("cli").With(
		log.StageKey, string(stage),
		log.ModelFamilyKey, a.cfg.Model,
		log.ProblemTypeKey, a.cfg.ProblemType,
	)
	logger.Info("Stage started", log.RandomSeedKey, a.cfg.Seed)
	start := time.Now()
	if err := fn(cmd.Context(), a.cfg); err != nil {
		logger.Error("Stage failed", err)
		return err
	}
	logger.Info("Stage finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

func fileSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}
