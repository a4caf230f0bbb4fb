// Package model provides the estimator contracts shared by the boosting
// engine, the neighbors normalizer, the conformal wrappers and the search.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
// Regressors return R², classifiers return accuracy.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
// Unknown names are rejected with a ValidationError.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}

// Cloner creates an unfitted copy with the same hyperparameters.
type Cloner interface {
	Clone() Estimator
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns an (n_samples, n_classes) matrix of class
	// probabilities, columns ordered as Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique class labels seen during fitting, sorted.
	Classes() []float64
}

// Tunable is an estimator a parameter search can drive.
type Tunable interface {
	Estimator
	Scorer
	ParameterGetter
	ParameterSetter
	Cloner
}
