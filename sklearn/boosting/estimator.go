package boosting

import (
	"encoding/gob"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

func init() {
	gob.Register(&Regressor{})
	gob.Register(&Classifier{})
}

// New returns an unfitted estimator of family f for problem p with the
// family's default parameters.
func New(f Family, p ProblemType) (model.Tunable, error) {
	if _, err := ParseFamily(string(f)); err != nil {
		return nil, err
	}
	switch p {
	case Regression:
		return NewRegressor(f), nil
	case Classification, Multiclass:
		return NewClassifier(f, p == Multiclass), nil
	default:
		return nil, errors.NewUnsupportedProblemTypeError(string(p))
	}
}

// Regressor is a gradient-boosted regressor of one family.
type Regressor struct {
	Family   Family
	Params   Params
	State    *model.StateManager
	Ensemble *Ensemble
}

// NewRegressor creates a regressor with default parameters.
func NewRegressor(f Family) *Regressor {
	return &Regressor{
		Family: f,
		Params: DefaultParams(f, Regression),
		State:  model.NewStateManager(),
	}
}

// Name returns the family-specific estimator name, e.g. "XGBRegressor".
func (r *Regressor) Name() string {
	return r.Family.modelName(Regression)
}

// Fit trains the regressor. y must be a single column.
func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, r.Name()+".Fit")

	targets, err := checkXY(r.Name(), X, y)
	if err != nil {
		return err
	}
	cfg, err := engineConfig(r.Family, r.Params, 1)
	if err != nil {
		return err
	}
	if cfg.Objective != ObjectiveL2 && cfg.Objective != ObjectiveQuantile {
		return errors.NewValidationError(objectiveParam[r.Family], "not a regression objective", r.Params[objectiveParam[r.Family]])
	}

	ens, err := Train(X, targets, cfg)
	if err != nil {
		return err
	}
	r.Ensemble = ens
	rows, cols := X.Dims()
	r.State.SetDimensions(cols, rows)
	r.State.SetFitted()

	log.GetLoggerWithName("boosting").Debug("Regressor fitted",
		log.ModelNameKey, r.Name(),
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)
	return nil
}

// Predict returns an (n_samples, 1) matrix of predictions.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.State.RequireFitted(r.Name(), "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := r.State.CheckFeatures(r.Name()+".Predict", cols); err != nil {
		return nil, err
	}
	return r.Ensemble.PredictRaw(X), nil
}

// Score returns the coefficient of determination R^2 of the prediction.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// GetParams returns a copy of the hyperparameters.
func (r *Regressor) GetParams() map[string]interface{} {
	return r.Params.Clone()
}

// SetParams validates every name before applying any of them.
func (r *Regressor) SetParams(params map[string]interface{}) error {
	checked, err := validateParams(r.Family, params)
	if err != nil {
		return err
	}
	for k, v := range checked {
		r.Params[k] = v
	}
	return nil
}

// Clone returns an unfitted regressor with the same parameters.
func (r *Regressor) Clone() model.Estimator {
	return &Regressor{Family: r.Family, Params: r.Params.Clone(), State: model.NewStateManager()}
}

// Classifier is a gradient-boosted classifier of one family. Binary
// problems use a logistic objective, multiclass problems softmax.
type Classifier struct {
	Family      Family
	Params      Params
	Multiclass  bool
	State       *model.StateManager
	Ensemble    *Ensemble
	ClassLabels []float64
}

// NewClassifier creates a classifier with default parameters.
func NewClassifier(f Family, multiclass bool) *Classifier {
	p := Classification
	if multiclass {
		p = Multiclass
	}
	return &Classifier{
		Family:     f,
		Params:     DefaultParams(f, p),
		Multiclass: multiclass,
		State:      model.NewStateManager(),
	}
}

// Name returns the family-specific estimator name, e.g. "LGBMClassifier".
func (c *Classifier) Name() string {
	return c.Family.modelName(Classification)
}

// Fit trains the classifier on arbitrary numeric labels.
func (c *Classifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, c.Name()+".Fit")

	targets, err := checkXY(c.Name(), X, y)
	if err != nil {
		return err
	}
	classes := uniqueSorted(targets)
	if len(classes) < 2 {
		return errors.NewModelError(c.Name()+".Fit", "invalid target", errors.ErrSingleClass)
	}
	if !c.Multiclass && len(classes) > 2 {
		return errors.NewValueError(c.Name()+".Fit", "target has more than two classes; use the multiclass problem type")
	}

	cfg, err := engineConfig(c.Family, c.Params, len(classes))
	if err != nil {
		return err
	}
	want := ObjectiveBinary
	if c.Multiclass {
		want = ObjectiveMulticlass
	}
	if cfg.Objective != want {
		return errors.NewValidationError(objectiveParam[c.Family], "objective does not match the problem type", c.Params[objectiveParam[c.Family]])
	}

	index := make(map[float64]int, len(classes))
	for i, cl := range classes {
		index[cl] = i
	}
	encoded := make([]float64, len(targets))
	for i, t := range targets {
		encoded[i] = float64(index[t])
	}

	ens, err := Train(X, encoded, cfg)
	if err != nil {
		return err
	}
	c.Ensemble = ens
	c.ClassLabels = classes
	rows, cols := X.Dims()
	c.State.SetDimensions(cols, rows)
	c.State.SetFitted()

	log.GetLoggerWithName("boosting").Debug("Classifier fitted",
		log.ModelNameKey, c.Name(),
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.ClassesKey, len(classes),
	)
	return nil
}

// PredictProba returns (n_samples, n_classes) probabilities ordered as Classes.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.State.RequireFitted(c.Name(), "PredictProba"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := c.State.CheckFeatures(c.Name()+".PredictProba", cols); err != nil {
		return nil, err
	}

	raw := c.Ensemble.PredictRaw(X)
	rows, _ := raw.Dims()
	proba := mat.NewDense(rows, len(c.ClassLabels), nil)
	for i := 0; i < rows; i++ {
		if c.Ensemble.Objective == ObjectiveBinary {
			p := sigmoid(raw.At(i, 0))
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}
		proba.SetRow(i, softmax(raw.RawRowView(i)))
	}
	return proba, nil
}

// Predict returns the most probable class label per row as an (n, 1) matrix.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, cols := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best, bestP := 0, math.Inf(-1)
		for j := 0; j < cols; j++ {
			if p := proba.At(i, j); p > bestP {
				best, bestP = j, p
			}
		}
		out.Set(i, 0, c.ClassLabels[best])
	}
	return out, nil
}

// Score returns the mean accuracy.
func (c *Classifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes returns the sorted class labels seen during Fit.
func (c *Classifier) Classes() []float64 {
	out := make([]float64, len(c.ClassLabels))
	copy(out, c.ClassLabels)
	return out
}

// GetParams returns a copy of the hyperparameters.
func (c *Classifier) GetParams() map[string]interface{} {
	return c.Params.Clone()
}

// SetParams validates every name before applying any of them.
func (c *Classifier) SetParams(params map[string]interface{}) error {
	checked, err := validateParams(c.Family, params)
	if err != nil {
		return err
	}
	for k, v := range checked {
		c.Params[k] = v
	}
	return nil
}

// Clone returns an unfitted classifier with the same parameters.
func (c *Classifier) Clone() model.Estimator {
	return &Classifier{
		Family:     c.Family,
		Params:     c.Params.Clone(),
		Multiclass: c.Multiclass,
		State:      model.NewStateManager(),
	}
}

func checkXY(name string, X, y mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError(name+".Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return nil, errors.NewDimensionError(name+".Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError(name+".Fit", 1, yCols, 1)
	}
	return mat.Col(nil, 0, y), nil
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{}, 8)
	var out []float64
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
