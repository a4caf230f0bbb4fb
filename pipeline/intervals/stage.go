package intervals

import (
	"context"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pipeline/artifact"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

// Run is the intervals stage. It returns the path of the interval file.
// Nothing is written unless every step succeeded.
func Run(ctx context.Context, cfg *config.Config) (string, error) {
	if err := cfg.Require(config.StageIntervals); err != nil {
		return "", err
	}
	f, err := boosting.ParseFamily(cfg.Model)
	if err != nil {
		return "", err
	}
	p, err := boosting.ParseProblemType(cfg.ProblemType)
	if err != nil {
		return "", err
	}
	strategy, err := StrategyFor(f, p)
	if err != nil {
		return "", err
	}

	train, err := dataset.ReadCSV(cfg.TrainingData)
	if err != nil {
		return "", err
	}
	// The validation file is not used by either strategy but must load.
	if _, err := dataset.ReadCSV(cfg.ValidationData); err != nil {
		return "", err
	}
	cal, err := dataset.ReadCSV(cfg.CalibrationSet)
	if err != nil {
		return "", err
	}
	test, err := dataset.ReadCSV(cfg.TestData)
	if err != nil {
		return "", err
	}

	in := Inputs{Family: f, ProblemType: p}
	features := train.FeatureNames()
	if in.XTrain, in.YTrain, err = train.XY(); err != nil {
		return "", err
	}
	if in.XTest, err = test.Features(features); err != nil {
		return "", err
	}

	env, err := artifact.LoadModel(cfg.ModelPath())
	if err != nil {
		return "", err
	}
	if err := env.Check(cfg.ModelPath(), f, p); err != nil {
		return "", err
	}

	switch strategy {
	case Nonconformal:
		in.Model = env.Estimator
		if in.XCal, err = cal.Features(features); err != nil {
			return "", err
		}
		if in.YCal, err = cal.Target(); err != nil {
			return "", err
		}
	case PairedQuantile:
		params, err := artifact.LoadParams(cfg.ParamsPath())
		if err != nil {
			return "", err
		}
		if params.Family != boosting.CatBoost {
			return "", errors.NewArtifactError(cfg.ParamsPath(),
				errors.Newf("params were tuned for %s, want %s", params.Family, boosting.CatBoost))
		}
		in.Params = params.Params
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	bounds, err := Build(ctx, in)
	if err != nil {
		return "", err
	}
	path := cfg.IntervalsPath()
	if err := dataset.WriteIntervals(path, bounds); err != nil {
		return "", err
	}

	width, err := metrics.MeanIntervalWidth(bounds)
	if err != nil {
		return "", err
	}
	log.GetLoggerWithName("intervals").Info("Intervals written",
		log.PathKey, path,
		log.SamplesKey, test.Len(),
		log.DatasetKey, cfg.Dataset,
		"mean_width", width,
	)
	return path, nil
}
