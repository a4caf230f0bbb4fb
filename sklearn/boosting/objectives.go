package boosting

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Objective names understood by the engine.
const (
	ObjectiveL2         = "regression"
	ObjectiveQuantile   = "quantile"
	ObjectiveBinary     = "binary"
	ObjectiveMulticlass = "multiclass"
)

// ObjectiveFunction computes first and second order derivatives of a
// pointwise loss with respect to the raw score.
type ObjectiveFunction interface {
	CalculateGradient(prediction, target float64) float64
	CalculateHessian(prediction, target float64) float64
	CalculateLoss(prediction, target float64) float64
	GetInitScore(targets []float64) float64
	Name() string
}

// LeafRenewer is implemented by objectives whose Newton step is a poor leaf
// value. After a tree is grown the engine replaces each leaf output with
// RenewLeaf applied to the residuals of the rows in that leaf.
type LeafRenewer interface {
	RenewLeaf(residuals []float64) float64
}

// L2Objective implements squared error loss.
type L2Objective struct{}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	return stat.Mean(targets, nil)
}

func (o *L2Objective) Name() string {
	return ObjectiveL2
}

// QuantileObjective implements the pinball loss at level Alpha.
type QuantileObjective struct {
	Alpha float64
}

// NewQuantileObjective validates alpha.
func NewQuantileObjective(alpha float64) (*QuantileObjective, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, errors.NewValidationError("alpha", "must be in (0, 1)", alpha)
	}
	return &QuantileObjective{Alpha: alpha}, nil
}

func (o *QuantileObjective) CalculateGradient(prediction, target float64) float64 {
	if prediction > target {
		return 1.0 - o.Alpha
	}
	return -o.Alpha
}

// CalculateHessian is constant; leaf values come from RenewLeaf.
func (o *QuantileObjective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *QuantileObjective) CalculateLoss(prediction, target float64) float64 {
	diff := target - prediction
	if diff >= 0 {
		return o.Alpha * diff
	}
	return (o.Alpha - 1.0) * diff
}

func (o *QuantileObjective) GetInitScore(targets []float64) float64 {
	return quantile(targets, o.Alpha)
}

// RenewLeaf returns the alpha-quantile of the residuals.
func (o *QuantileObjective) RenewLeaf(residuals []float64) float64 {
	return quantile(residuals, o.Alpha)
}

func (o *QuantileObjective) Name() string {
	return ObjectiveQuantile
}

// BinaryLogloss implements logistic loss on {0,1} targets with raw scores in
// logit space.
type BinaryLogloss struct{}

func (o *BinaryLogloss) CalculateGradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (o *BinaryLogloss) CalculateHessian(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return math.Max(p*(1-p), 1e-16)
}

func (o *BinaryLogloss) CalculateLoss(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return -(target*errors.StabilizeLog(p) + (1-target)*errors.StabilizeLog(1-p))
}

func (o *BinaryLogloss) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	p := stat.Mean(targets, nil)
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}

func (o *BinaryLogloss) Name() string {
	return ObjectiveBinary
}

// softmaxGradients fills grad and hess for every class of one row.
// label is the encoded class index.
func softmaxGradients(raw []float64, label int, grad, hess []float64) {
	prob := softmax(raw)
	k := float64(len(raw))
	factor := k / (k - 1)
	for c, p := range prob {
		y := 0.0
		if c == label {
			y = 1.0
		}
		grad[c] = p - y
		hess[c] = math.Max(factor*p*(1-p), 1e-16)
	}
}

// softmaxInitScores returns log class priors.
func softmaxInitScores(labels []int, numClass int) []float64 {
	counts := make([]float64, numClass)
	for _, l := range labels {
		counts[l]++
	}
	init := make([]float64, numClass)
	n := float64(len(labels))
	for c := range counts {
		init[c] = errors.StabilizeLog(counts[c] / n)
	}
	return init
}

func softmax(raw []float64) []float64 {
	out := make([]float64, len(raw))
	lse := errors.LogSumExp(raw)
	for i, v := range raw {
		out[i] = math.Exp(v - lse)
	}
	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// quantile returns the linearly interpolated q-quantile of values.
func quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// lossOf averages the pointwise loss of obj over raw scores.
func lossOf(obj ObjectiveFunction, raw, targets []float64) float64 {
	losses := make([]float64, len(raw))
	for i := range raw {
		losses[i] = obj.CalculateLoss(raw[i], targets[i])
	}
	return floats.Sum(losses) / float64(len(losses))
}
