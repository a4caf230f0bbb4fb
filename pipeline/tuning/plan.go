package tuning

import (
	"math"

	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
	ms "github.com/YuminosukeSato/conformboost/sklearn/model_selection"
)

// plan is one row of the search table.
type plan struct {
	space      ms.ParamDistributions
	nIter      int
	folds      int
	holdout    float64
	scoring    string
	errorScore float64
	fixed      boosting.Params
	seedParam  string
	refit      bool
}

func (p plan) splitter(problem boosting.ProblemType, seed uint64) ms.Splitter {
	switch {
	case p.holdout > 0 && problem.IsClassification():
		return ms.NewStratifiedShuffleSplit(p.holdout, seed)
	case p.holdout > 0:
		return ms.NewShuffleSplit(p.holdout, seed)
	case problem.IsClassification():
		return ms.NewStratifiedKFold(p.folds, false, 0)
	default:
		return ms.NewKFold(p.folds, false, 0)
	}
}

var xgboostSpace = ms.ParamDistributions{
	"n_estimators":     ms.RandInt{Low: 150, High: 500},
	"learning_rate":    ms.Uniform{Loc: 0.01, Scale: 0.07},
	"subsample":        ms.Uniform{Loc: 0.3, Scale: 0.7},
	"max_depth":        ms.Ints(3, 4, 5, 6, 7, 8, 9),
	"colsample_bytree": ms.Uniform{Loc: 0.5, Scale: 0.45},
	"min_child_weight": ms.Ints(1, 2, 3),
}

var lightgbmSpace = ms.ParamDistributions{
	"learning_rate": ms.Uniform{Loc: 0.01, Scale: 0.2},
	"n_estimators":  ms.Ints(400, 500, 520, 540, 560, 580, 600, 700, 800, 1000),
}

var catboostSpace = ms.ParamDistributions{
	"learning_rate": ms.Uniform{Loc: 0.01, Scale: 0.2},
	"depth":         ms.Ints(4, 6, 10),
	"l2_leaf_reg":   ms.Ints(1, 3, 5, 7, 9),
}

var xgboostScoring = map[boosting.ProblemType]string{
	boosting.Regression:     "r2",
	boosting.Classification: "f1",
	boosting.Multiclass:     "f1_weighted",
}

var lightgbmObjective = map[boosting.ProblemType]string{
	boosting.Regression:     "regression",
	boosting.Classification: "binary",
	boosting.Multiclass:     "multiclass",
}

var catboostLoss = map[boosting.ProblemType]string{
	boosting.Regression:     "RMSE",
	boosting.Classification: "Logloss",
	boosting.Multiclass:     "MultiClass",
}

// planFor returns the search routine of (f, p). Callers pass parsed values.
func planFor(f boosting.Family, p boosting.ProblemType) plan {
	switch f {
	case boosting.XGBoost:
		return plan{
			space:      xgboostSpace,
			nIter:      25,
			folds:      5,
			scoring:    xgboostScoring[p],
			errorScore: 0,
			seedParam:  "random_state",
		}
	case boosting.LightGBM:
		return plan{
			space:      lightgbmSpace,
			nIter:      10,
			folds:      3,
			errorScore: math.NaN(),
			fixed:      boosting.Params{"num_leaves": 30, "objective": lightgbmObjective[p]},
			seedParam:  "random_state",
		}
	default:
		scoring := "neg_root_mean_squared_error"
		if p.IsClassification() {
			scoring = "neg_log_loss"
		}
		return plan{
			space:      catboostSpace,
			nIter:      10,
			holdout:    0.2,
			scoring:    scoring,
			errorScore: math.NaN(),
			fixed:      boosting.Params{"loss_function": catboostLoss[p]},
			seedParam:  "random_seed",
			refit:      true,
		}
	}
}
