// Package intervals computes prediction intervals for a test set, either by
// inductive conformal prediction around a trained model or by a pair of
// quantile regressors.
package intervals

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/core/parallel"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
	"github.com/YuminosukeSato/conformboost/sklearn/conformal"
	"github.com/YuminosukeSato/conformboost/sklearn/neighbors"
)

// Quantile levels of the paired-quantile strategy.
const (
	LowerQuantile = 0.025
	UpperQuantile = 0.975
)

// Inputs holds everything Build needs. Model is used by the nonconformal
// strategy only; Params by the paired-quantile strategy only.
type Inputs struct {
	Family      boosting.Family
	ProblemType boosting.ProblemType

	Model  model.Estimator
	Params boosting.Params

	XTrain, YTrain *mat.Dense
	XCal, YCal     *mat.Dense
	XTest          *mat.Dense

	// Significance defaults to conformal.DefaultSignificance.
	Significance float64
	// Neighbors is the k of the KNN normalizer; defaults to neighbors.DefaultNeighbors.
	Neighbors int
}

// Build returns an (n_test, 2) matrix of lower and upper bounds.
func Build(ctx context.Context, in Inputs) (*mat.Dense, error) {
	strategy, err := StrategyFor(in.Family, in.ProblemType)
	if err != nil {
		return nil, err
	}
	if in.XTrain == nil || in.YTrain == nil || in.XTest == nil {
		return nil, errors.NewValueError("intervals.Build", "training and test data are required")
	}
	if in.Significance == 0 {
		in.Significance = conformal.DefaultSignificance
	}
	if in.Neighbors == 0 {
		in.Neighbors = neighbors.DefaultNeighbors
	}

	logger := log.GetLoggerWithName("intervals").With(
		log.ModelFamilyKey, string(in.Family),
		log.ProblemTypeKey, string(in.ProblemType),
		log.StrategyKey, strategy.String(),
	)
	logger.Info("Building intervals", log.SignificanceKey, in.Significance)

	switch strategy {
	case PairedQuantile:
		return pairedQuantile(ctx, in)
	case Nonconformal:
		if in.Model == nil {
			return nil, errors.NewValueError("intervals.Build", "model is required for nonconformal intervals")
		}
		if in.XCal == nil || in.YCal == nil {
			return nil, errors.NewValueError("intervals.Build", "calibration data is required for nonconformal intervals")
		}
		if in.ProblemType == boosting.Classification {
			return nonconformalClassification(ctx, in)
		}
		return nonconformalRegression(ctx, in)
	}
	return nil, errors.NewValueError("intervals.Build", fmt.Sprintf("no strategy %d", strategy))
}

func newNc(in Inputs) (conformal.NonconformityFunction, error) {
	return conformal.CreateNc(in.Model,
		conformal.WithNormalizer(neighbors.NewKNeighborsRegressor(in.Neighbors)))
}

func nonconformalRegression(ctx context.Context, in Inputs) (*mat.Dense, error) {
	nc, err := newNc(in)
	if err != nil {
		return nil, err
	}
	icp, err := conformal.NewIcpRegressor(nc)
	if err != nil {
		return nil, err
	}
	if err := icp.Fit(in.XTrain, in.YTrain); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := icp.Calibrate(in.XCal, in.YCal); err != nil {
		return nil, err
	}
	return icp.Predict(in.XTest, in.Significance)
}

// nonconformalClassification returns the prediction-region flags of the
// two classes: column 0 for the first class, column 1 for the second.
func nonconformalClassification(ctx context.Context, in Inputs) (*mat.Dense, error) {
	nc, err := newNc(in)
	if err != nil {
		return nil, err
	}
	icp, err := conformal.NewIcpClassifier(nc)
	if err != nil {
		return nil, err
	}
	if err := icp.Fit(in.XTrain, in.YTrain); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := icp.Calibrate(in.XCal, in.YCal); err != nil {
		return nil, err
	}
	if n := len(icp.Classes()); n != 2 {
		return nil, errors.NewUnsupportedCombinationError(stageName, string(in.Family), string(in.ProblemType),
			fmt.Sprintf("binary classification expected, model has %d classes", n))
	}
	return icp.Predict(in.XTest, in.Significance)
}

func pairedQuantile(ctx context.Context, in Inputs) (*mat.Dense, error) {
	alphas := []float64{LowerQuantile, UpperQuantile}
	preds := make([]mat.Matrix, len(alphas))
	err := parallel.ForEach(ctx, len(alphas), len(alphas), func(_ context.Context, i int) error {
		reg := boosting.NewRegressor(boosting.CatBoost)
		params := in.Params.Clone()
		if params == nil {
			params = boosting.Params{}
		}
		params["loss_function"] = boosting.CatBoostQuantileLoss(alphas[i])
		if err := reg.SetParams(params); err != nil {
			return err
		}
		if err := reg.Fit(in.XTrain, in.YTrain); err != nil {
			return err
		}
		p, err := reg.Predict(in.XTest)
		if err != nil {
			return err
		}
		preds[i] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, _ := in.XTest.Dims()
	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, preds[0].At(i, 0))
		out.Set(i, 1, preds[1].At(i, 0))
	}
	return out, nil
}
