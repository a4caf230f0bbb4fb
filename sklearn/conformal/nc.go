package conformal

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// residualEpsilon keeps log(|err|) finite for perfect predictions.
const residualEpsilon = 1e-5

// NonconformityFunction measures how strange a labelled example is relative
// to an underlying model.
type NonconformityFunction interface {
	// Fit trains the underlying model and the normalizer.
	Fit(X, y mat.Matrix) error
	// Score returns one nonconformity score per row of X.
	Score(X mat.Matrix, y []float64) ([]float64, error)
}

// Normalizer predicts the difficulty of each example. It is trained on the
// log absolute residuals of the underlying model and scores exp(model(x)).
type Normalizer struct {
	Model model.Estimator
}

// Fit trains the normalizer model on log(|residual| + 1e-5).
func (n *Normalizer) Fit(X mat.Matrix, residuals []float64) error {
	target := mat.NewDense(len(residuals), 1, nil)
	for i, r := range residuals {
		target.Set(i, 0, math.Log(math.Abs(r)+residualEpsilon))
	}
	return n.Model.Fit(X, target)
}

// Score returns exp(model(x)) per row.
func (n *Normalizer) Score(X mat.Matrix) ([]float64, error) {
	pred, err := n.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	out := mat.Col(nil, 0, pred)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	return out, nil
}

// normalize divides scores by normalizer(x)+beta. Without a normalizer the
// scores are returned unchanged.
func normalize(n *Normalizer, beta float64, X mat.Matrix, scores []float64) ([]float64, error) {
	if n == nil {
		return scores, nil
	}
	norm, err := n.Score(X)
	if err != nil {
		return nil, err
	}
	for i := range scores {
		scores[i] /= norm[i] + beta
	}
	return scores, nil
}

// RegressorNc is the nonconformity function of a regression model.
type RegressorNc struct {
	Model      model.Estimator
	ErrFunc    RegressionErrFunc
	Normalizer *Normalizer
	Beta       float64
}

// Fit trains the model, then the normalizer on the model's training errors.
func (nc *RegressorNc) Fit(X, y mat.Matrix) error {
	if err := nc.Model.Fit(X, y); err != nil {
		return err
	}
	if nc.Normalizer == nil {
		return nil
	}
	pred, err := nc.Model.Predict(X)
	if err != nil {
		return err
	}
	residuals := nc.ErrFunc.Apply(mat.Col(nil, 0, pred), mat.Col(nil, 0, y))
	return nc.Normalizer.Fit(X, residuals)
}

// Score returns normalized errors of the model on (X, y).
func (nc *RegressorNc) Score(X mat.Matrix, y []float64) ([]float64, error) {
	pred, err := nc.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	return normalize(nc.Normalizer, nc.Beta, X, nc.ErrFunc.Apply(mat.Col(nil, 0, pred), y))
}

// Predict returns an (n, 2) matrix of [lower, upper] bounds built from the
// calibration scores at significance.
func (nc *RegressorNc) Predict(X mat.Matrix, calScores []float64, significance float64) (*mat.Dense, error) {
	pred, err := nc.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	rows, _ := pred.Dims()
	norm := make([]float64, rows)
	for i := range norm {
		norm[i] = 1
	}
	if nc.Normalizer != nil {
		if norm, err = nc.Normalizer.Score(X); err != nil {
			return nil, err
		}
		for i := range norm {
			norm[i] += nc.Beta
		}
	}

	lower, upper := nc.ErrFunc.ApplyInverse(calScores, significance)
	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := pred.At(i, 0)
		out.Set(i, 0, p-lower*norm[i])
		out.Set(i, 1, p+upper*norm[i])
	}
	return out, nil
}

// ClassifierNc is the nonconformity function of a probabilistic classifier.
type ClassifierNc struct {
	Model      model.Classifier
	ErrFunc    ClassificationErrFunc
	Normalizer *Normalizer
	Beta       float64
}

// Fit trains the classifier, then the normalizer on its training margins.
func (nc *ClassifierNc) Fit(X, y mat.Matrix) error {
	if err := nc.Model.Fit(X, y); err != nil {
		return err
	}
	if nc.Normalizer == nil {
		return nil
	}
	residuals, err := nc.raw(X, mat.Col(nil, 0, y))
	if err != nil {
		return err
	}
	return nc.Normalizer.Fit(X, residuals)
}

func (nc *ClassifierNc) raw(X mat.Matrix, y []float64) ([]float64, error) {
	proba, err := nc.Model.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return nc.ErrFunc.Apply(proba, nc.Model.Classes(), y), nil
}

// Score returns normalized scores of the labels y.
func (nc *ClassifierNc) Score(X mat.Matrix, y []float64) ([]float64, error) {
	scores, err := nc.raw(X, y)
	if err != nil {
		return nil, err
	}
	return normalize(nc.Normalizer, nc.Beta, X, scores)
}

// Classes returns the labels of the underlying classifier.
func (nc *ClassifierNc) Classes() []float64 {
	return nc.Model.Classes()
}

// Option configures CreateNc.
type Option func(*ncOptions)

type ncOptions struct {
	regErr     RegressionErrFunc
	clsErr     ClassificationErrFunc
	normalizer model.Estimator
	beta       float64
}

// WithNormalizer normalizes scores by a difficulty model, typically a
// KNeighborsRegressor.
func WithNormalizer(m model.Estimator) Option {
	return func(o *ncOptions) { o.normalizer = m }
}

// WithRegressionErrFunc replaces the absolute error.
func WithRegressionErrFunc(f RegressionErrFunc) Option {
	return func(o *ncOptions) { o.regErr = f }
}

// WithClassificationErrFunc replaces the margin error.
func WithClassificationErrFunc(f ClassificationErrFunc) Option {
	return func(o *ncOptions) { o.clsErr = f }
}

// WithBeta sets the normalization smoothing term.
func WithBeta(beta float64) Option {
	return func(o *ncOptions) { o.beta = beta }
}

// CreateNc builds the default nonconformity function for m: a ClassifierNc
// with margin error when m is a classifier, otherwise a RegressorNc with
// absolute error.
func CreateNc(m model.Estimator, opts ...Option) (NonconformityFunction, error) {
	if m == nil {
		return nil, errors.NewValueError("CreateNc", "model is nil")
	}
	o := ncOptions{regErr: AbsErrorErrFunc{}, clsErr: MarginErrFunc{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.beta < 0 {
		return nil, errors.NewValidationError("beta", "must be non-negative", o.beta)
	}

	var normalizer *Normalizer
	if o.normalizer != nil {
		normalizer = &Normalizer{Model: o.normalizer}
	}
	if clf, ok := m.(model.Classifier); ok {
		return &ClassifierNc{Model: clf, ErrFunc: o.clsErr, Normalizer: normalizer, Beta: o.beta}, nil
	}
	return &RegressorNc{Model: m, ErrFunc: o.regErr, Normalizer: normalizer, Beta: o.beta}, nil
}
