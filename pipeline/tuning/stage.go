package tuning

import (
	"context"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pipeline/artifact"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// Run is the tune stage: it concatenates the training and validation
// files, tunes, and persists the parameters when cfg.PersistParams is set.
func Run(ctx context.Context, cfg *config.Config) (*artifact.ParamsEnvelope, error) {
	if err := cfg.Require(config.StageTune); err != nil {
		return nil, err
	}
	tuner, err := New(cfg.Model, cfg.ProblemType)
	if err != nil {
		return nil, err
	}
	tuner.Seed = cfg.Seed

	train, err := dataset.ReadCSV(cfg.TrainingData)
	if err != nil {
		return nil, err
	}
	valid, err := dataset.ReadCSV(cfg.ValidationData)
	if err != nil {
		return nil, err
	}
	frame, err := train.Concat(valid)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params, err := tuner.Tune(ctx, frame)
	if err != nil {
		return nil, err
	}
	env := &artifact.ParamsEnvelope{
		Family:      tuner.Family,
		ProblemType: tuner.ProblemType,
		Params:      params,
	}
	if !cfg.PersistParams {
		log.GetLoggerWithName("tuning").Info("Parameter persistence disabled", log.HyperParamsKey, map[string]any(params))
		return env, nil
	}
	if err := artifact.SaveParams(cfg.ParamsPath(), env); err != nil {
		return nil, err
	}
	return env, nil
}
