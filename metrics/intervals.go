package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// bounds は n×2 の区間行列を下限と上限に分ける
func bounds(op string, b mat.Matrix) (lower, upper []float64, err error) {
	if b == nil {
		return nil, nil, errors.NewValueError(op, "empty input")
	}
	rows, cols := b.Dims()
	if rows == 0 {
		return nil, nil, errors.NewValueError(op, "empty input")
	}
	if cols != 2 {
		return nil, nil, errors.NewDimensionError(op, 2, cols, 1)
	}
	return mat.Col(nil, 0, b), mat.Col(nil, 1, b), nil
}

// IntervalCoverage は lower <= y <= upper となる行の割合
func IntervalCoverage(yTrue, intervals mat.Matrix) (float64, error) {
	y, err := values("IntervalCoverage", yTrue)
	if err != nil {
		return 0, err
	}
	lower, upper, err := bounds("IntervalCoverage", intervals)
	if err != nil {
		return 0, err
	}
	if len(lower) != len(y) {
		return 0, errors.NewDimensionError("IntervalCoverage", len(y), len(lower), 0)
	}

	covered := 0
	for i, v := range y {
		if v >= lower[i] && v <= upper[i] {
			covered++
		}
	}
	return float64(covered) / float64(len(y)), nil
}

// MeanIntervalWidth は upper - lower の平均
func MeanIntervalWidth(intervals mat.Matrix) (float64, error) {
	lower, upper, err := bounds("MeanIntervalWidth", intervals)
	if err != nil {
		return 0, err
	}
	floats.Sub(upper, lower)
	return floats.Sum(upper) / float64(len(upper)), nil
}
