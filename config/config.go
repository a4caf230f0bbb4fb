// Package config reads the pipeline configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Environment variable names.
const (
	EnvTrainingData   = "TRAINING_DATA"
	EnvValidationData = "VALIDATION_DATA"
	EnvCalibrationSet = "CALIBRATION_SET"
	EnvTestData       = "TEST_DATA"
	EnvModel          = "MODEL"
	EnvProblemType    = "PROBLEM_TYPE"
	EnvDataset        = "DATASET"
	EnvModelsDir      = "MODELS_DIR"
	EnvLogLevel       = "LOG_LEVEL"
	EnvSeed           = "SEED"
	EnvPersistParams  = "PERSIST_PARAMS"
)

// Defaults for the optional settings.
const (
	DefaultModelsDir     = "models"
	DefaultLogLevel      = "info"
	DefaultEnvFile       = ".env"
	DefaultPersistParams = true
)

// Stage names a pipeline entry point.
type Stage string

const (
	StageTune      Stage = "tune"
	StageTrain     Stage = "train"
	StageIntervals Stage = "intervals"
	StagePlot      Stage = "plot"
)

var required = map[Stage][]string{
	StageTune:      {EnvTrainingData, EnvValidationData, EnvModel, EnvProblemType},
	StageTrain:     {EnvTrainingData, EnvModel, EnvProblemType},
	StageIntervals: {EnvTrainingData, EnvValidationData, EnvCalibrationSet, EnvTestData, EnvModel, EnvProblemType, EnvDataset},
	StagePlot:      {EnvModel, EnvProblemType, EnvDataset},
}

// Config is the resolved configuration passed to the stage entry points.
type Config struct {
	TrainingData   string
	ValidationData string
	CalibrationSet string
	TestData       string
	Model          string
	ProblemType    string
	Dataset        string

	ModelsDir     string
	LogLevel      string
	Seed          uint64
	PersistParams bool
}

// LoadEnvFile loads variables from path without overriding ones already
// set. An empty path tries DefaultEnvFile and ignores its absence.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return errors.NewConfigError("env file", err.Error())
	}
	return nil
}

// NewViper returns a viper instance bound to the environment variables with
// the optional settings defaulted. Keys are the lower-cased variable names.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, name := range []string{
		EnvTrainingData, EnvValidationData, EnvCalibrationSet, EnvTestData,
		EnvModel, EnvProblemType, EnvDataset,
		EnvModelsDir, EnvLogLevel, EnvSeed, EnvPersistParams,
	} {
		_ = v.BindEnv(Key(name), name)
	}
	v.SetDefault(Key(EnvModelsDir), DefaultModelsDir)
	v.SetDefault(Key(EnvLogLevel), DefaultLogLevel)
	v.SetDefault(Key(EnvSeed), "0")
	v.SetDefault(Key(EnvPersistParams), strconv.FormatBool(DefaultPersistParams))
	return v
}

// Key returns the viper key of an environment variable.
func Key(env string) string {
	return strings.ToLower(env)
}

// Load resolves the configuration from the process environment.
func Load() (*Config, error) {
	return FromViper(NewViper())
}

// FromViper resolves a Config. Only the optional settings are validated
// here; Require checks the variables a stage needs.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		TrainingData:   strings.TrimSpace(v.GetString(Key(EnvTrainingData))),
		ValidationData: strings.TrimSpace(v.GetString(Key(EnvValidationData))),
		CalibrationSet: strings.TrimSpace(v.GetString(Key(EnvCalibrationSet))),
		TestData:       strings.TrimSpace(v.GetString(Key(EnvTestData))),
		Model:          strings.ToLower(strings.TrimSpace(v.GetString(Key(EnvModel)))),
		ProblemType:    strings.ToLower(strings.TrimSpace(v.GetString(Key(EnvProblemType)))),
		Dataset:        strings.TrimSpace(v.GetString(Key(EnvDataset))),
		ModelsDir:      strings.TrimSpace(v.GetString(Key(EnvModelsDir))),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString(Key(EnvLogLevel)))),
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = DefaultModelsDir
	}

	seed, err := strconv.ParseUint(strings.TrimSpace(v.GetString(Key(EnvSeed))), 10, 64)
	if err != nil {
		return nil, errors.NewConfigError(EnvSeed, "must be a non-negative integer")
	}
	cfg.Seed = seed

	persist, err := strconv.ParseBool(strings.TrimSpace(v.GetString(Key(EnvPersistParams))))
	if err != nil {
		return nil, errors.NewConfigError(EnvPersistParams, "must be a boolean")
	}
	cfg.PersistParams = persist

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.NewConfigError(EnvLogLevel, "must be one of debug, info, warn, error")
	}
	return cfg, nil
}

// Require returns a ConfigError naming the first variable stage needs that
// is unset.
func (c *Config) Require(stage Stage) error {
	names, ok := required[stage]
	if !ok {
		return errors.NewConfigError("stage", "unknown stage "+string(stage))
	}
	values := map[string]string{
		EnvTrainingData:   c.TrainingData,
		EnvValidationData: c.ValidationData,
		EnvCalibrationSet: c.CalibrationSet,
		EnvTestData:       c.TestData,
		EnvModel:          c.Model,
		EnvProblemType:    c.ProblemType,
		EnvDataset:        c.Dataset,
	}
	for _, name := range names {
		if values[name] == "" {
			return errors.NewConfigError(name, "required for "+string(stage)+" but not set")
		}
	}
	return nil
}

// ModelPath is {ModelsDir}/{MODEL}.pkl.
func (c *Config) ModelPath() string {
	return filepath.Join(c.ModelsDir, c.Model+".pkl")
}

// ParamsPath is {ModelsDir}/params.pkl.
func (c *Config) ParamsPath() string {
	return filepath.Join(c.ModelsDir, "params.pkl")
}

// IntervalsPath is {ModelsDir}/{PROBLEM_TYPE}_{MODEL}_{DATASET}_intervals.csv.
func (c *Config) IntervalsPath() string {
	return filepath.Join(c.ModelsDir, dataset.IntervalFileName(c.ProblemType, c.Model, c.Dataset))
}
