// Package training fits a family estimator on the training file and stores
// it as the model artifact the intervals stage loads.
package training

import (
	"context"
	"os"
	"time"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pipeline/artifact"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

// Train fits the estimator of cfg.Model for cfg.ProblemType and saves it to
// cfg.ModelPath(). Parameters persisted by the tune stage for the same
// family are applied when present.
func Train(ctx context.Context, cfg *config.Config) (*artifact.Envelope, error) {
	if err := cfg.Require(config.StageTrain); err != nil {
		return nil, err
	}
	f, err := boosting.ParseFamily(cfg.Model)
	if err != nil {
		return nil, err
	}
	p, err := boosting.ParseProblemType(cfg.ProblemType)
	if err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("training").With(
		log.ModelFamilyKey, string(f),
		log.ProblemTypeKey, string(p),
	)

	est, err := boosting.New(f, p)
	if err != nil {
		return nil, err
	}
	params, err := tunedParams(cfg, f)
	if err != nil {
		return nil, err
	}
	if params != nil {
		if err := est.SetParams(params); err != nil {
			return nil, errors.Wrap(err, "apply tuned params")
		}
		logger.Info("Applied tuned params", log.PathKey, cfg.ParamsPath(), log.HyperParamsKey, map[string]any(params))
	}

	frame, err := dataset.ReadCSV(cfg.TrainingData)
	if err != nil {
		return nil, err
	}
	X, y, err := frame.XY()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := est.Fit(X, y); err != nil {
		return nil, err
	}
	score, err := est.Score(X, y)
	if err != nil {
		return nil, err
	}
	logger.Info("Model fitted",
		log.ModelNameKey, est.(interface{ Name() string }).Name(),
		log.SamplesKey, frame.Len(),
		log.FeaturesKey, len(frame.FeatureNames()),
		log.ScoreKey, score,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	env := &artifact.Envelope{Family: f, ProblemType: p, Estimator: est}
	if err := artifact.SaveModel(cfg.ModelPath(), env); err != nil {
		return nil, err
	}
	return env, nil
}

// tunedParams returns the persisted params of family f, nil when the file
// is absent or holds another family.
func tunedParams(cfg *config.Config, f boosting.Family) (boosting.Params, error) {
	path := cfg.ParamsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	env, err := artifact.LoadParams(path)
	if err != nil {
		return nil, err
	}
	if env.Family != f {
		log.GetLoggerWithName("training").Warn("Ignoring params tuned for another family",
			log.PathKey, path,
			log.ModelFamilyKey, string(env.Family),
		)
		return nil, nil
	}
	return env.Params, nil
}
