package intervals

import (
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

// Strategy selects how intervals are computed.
type Strategy int

const (
	// Nonconformal wraps the loaded model in an inductive conformal predictor.
	Nonconformal Strategy = iota + 1
	// PairedQuantile trains two catboost quantile regressors at 2.5% and 97.5%.
	PairedQuantile
)

func (s Strategy) String() string {
	switch s {
	case Nonconformal:
		return "nonconformal"
	case PairedQuantile:
		return "paired_quantile"
	default:
		return "unknown"
	}
}

const stageName = "intervals"

// StrategyFor returns the strategy of (f, p). Pairs without one yield an
// UnsupportedCombinationError.
func StrategyFor(f boosting.Family, p boosting.ProblemType) (Strategy, error) {
	if _, err := boosting.ParseFamily(string(f)); err != nil {
		return 0, err
	}
	if _, err := boosting.ParseProblemType(string(p)); err != nil {
		return 0, err
	}
	switch {
	case p == boosting.Multiclass:
		return 0, errors.NewUnsupportedCombinationError(stageName, string(f), string(p),
			"intervals are defined for regression and binary classification only")
	case f == boosting.CatBoost && p == boosting.Classification:
		return 0, errors.NewUnsupportedCombinationError(stageName, string(f), string(p),
			"cannot compute intervals for CatBoostClassifier")
	case f == boosting.CatBoost:
		return PairedQuantile, nil
	default:
		return Nonconformal, nil
	}
}
