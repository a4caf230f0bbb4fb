package conformal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RegressionErrFunc turns regression predictions into nonconformity scores
// and calibration scores back into interval half-widths.
type RegressionErrFunc interface {
	Apply(prediction, y []float64) []float64
	// ApplyInverse returns the lower and upper half-widths at significance.
	ApplyInverse(calScores []float64, significance float64) (lower, upper float64)
}

// ClassificationErrFunc scores class probabilities against labels. Column j
// of proba belongs to classes[j].
type ClassificationErrFunc interface {
	Apply(proba mat.Matrix, classes, y []float64) []float64
}

// AbsErrorErrFunc scores |y - ŷ|.
type AbsErrorErrFunc struct{}

// Apply returns the absolute errors.
func (AbsErrorErrFunc) Apply(prediction, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = math.Abs(prediction[i] - y[i])
	}
	return out
}

// ApplyInverse picks the calibration score at position
// floor(significance*(n+1))-1 of the descending order, clamped to [0, n-1].
func (AbsErrorErrFunc) ApplyInverse(calScores []float64, significance float64) (float64, float64) {
	q := descendingQuantile(calScores, significance)
	return q, q
}

// SignErrorErrFunc scores y - ŷ and builds asymmetric intervals, splitting
// the significance evenly between both tails.
type SignErrorErrFunc struct{}

// Apply returns the signed errors.
func (SignErrorErrFunc) Apply(prediction, y []float64) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		out[i] = y[i] - prediction[i]
	}
	return out
}

// ApplyInverse returns the half-widths below and above the prediction.
func (SignErrorErrFunc) ApplyInverse(calScores []float64, significance float64) (float64, float64) {
	upper := descendingQuantile(calScores, significance/2)
	neg := make([]float64, len(calScores))
	for i, s := range calScores {
		neg[i] = -s
	}
	lower := descendingQuantile(neg, significance/2)
	return lower, upper
}

// descendingQuantile sorts a copy of scores in descending order.
func descendingQuantile(scores []float64, significance float64) float64 {
	if len(scores) == 0 {
		return math.Inf(1)
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	border := int(math.Floor(significance*float64(len(sorted)+1))) - 1
	border = min(max(border, 0), len(sorted)-1)
	return sorted[border]
}

// MarginErrFunc scores 0.5 - (p_y - max_{c≠y} p_c)/2, in [0, 1].
type MarginErrFunc struct{}

// Apply returns the margin scores. Labels outside classes get p_y = 0.
func (MarginErrFunc) Apply(proba mat.Matrix, classes, y []float64) []float64 {
	index := classIndex(classes)
	_, cols := proba.Dims()
	out := make([]float64, len(y))
	for i, label := range y {
		j, ok := index[label]
		py := 0.0
		if ok {
			py = proba.At(i, j)
		}
		other := math.Inf(-1)
		for c := 0; c < cols; c++ {
			if c != j || !ok {
				other = math.Max(other, proba.At(i, c))
			}
		}
		out[i] = 0.5 - (py-other)/2
	}
	return out
}

// InverseProbabilityErrFunc scores 1 - p_y.
type InverseProbabilityErrFunc struct{}

// Apply returns 1 - p_y. Labels outside classes score 1.
func (InverseProbabilityErrFunc) Apply(proba mat.Matrix, classes, y []float64) []float64 {
	index := classIndex(classes)
	out := make([]float64, len(y))
	for i, label := range y {
		out[i] = 1
		if j, ok := index[label]; ok {
			out[i] = 1 - proba.At(i, j)
		}
	}
	return out
}

func classIndex(classes []float64) map[float64]int {
	index := make(map[float64]int, len(classes))
	for j, c := range classes {
		index[c] = j
	}
	return index
}
