package model_selection

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// ScorerFunc evaluates a fitted estimator on held-out data. Greater is
// better; losses are negated.
type ScorerFunc func(est model.Estimator, X, y mat.Matrix) (float64, error)

type columnMetric func(yTrue, yPred mat.Matrix) (float64, error)

func predictionScorer(metric columnMetric, sign float64) ScorerFunc {
	return func(est model.Estimator, X, y mat.Matrix) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		score, err := metric(y, pred)
		return sign * score, err
	}
}

func negLogLoss(est model.Estimator, X, y mat.Matrix) (float64, error) {
	clf, ok := est.(model.Classifier)
	if !ok {
		return 0, errors.NewValueError("neg_log_loss", "estimator does not predict probabilities")
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}
	classes := clf.Classes()
	if len(classes) == 2 && classes[0] == 0 && classes[1] == 1 {
		positive := mat.Col(nil, 1, proba)
		loss, err := metrics.BinaryLogLoss(y, mat.NewDense(len(positive), 1, positive))
		return -loss, err
	}
	loss, err := metrics.MultiLogLoss(y, proba, classes)
	return -loss, err
}

func estimatorScore(est model.Estimator, X, y mat.Matrix) (float64, error) {
	s, ok := est.(model.Scorer)
	if !ok {
		return 0, errors.NewValueError("score", "estimator has no Score method")
	}
	return s.Score(X, y)
}

var scorers = map[string]ScorerFunc{
	"r2":                          predictionScorer(metrics.R2Score, 1),
	"accuracy":                    predictionScorer(metrics.Accuracy, 1),
	"f1":                          predictionScorer(metrics.F1Score, 1),
	"f1_weighted":                 predictionScorer(metrics.F1Weighted, 1),
	"neg_mean_squared_error":      predictionScorer(metrics.MSE, -1),
	"neg_root_mean_squared_error": predictionScorer(metrics.RMSE, -1),
	"neg_mean_absolute_error":     predictionScorer(metrics.MAE, -1),
	"neg_log_loss":                negLogLoss,
}

// GetScorer returns the scorer registered under name. The empty name
// selects the estimator's own Score method (R² or accuracy).
func GetScorer(name string) (ScorerFunc, error) {
	if name == "" {
		return estimatorScore, nil
	}
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer", name)
	}
	return s, nil
}

// ScorerNames lists the registered scorer names.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
