// Package metrics は推定器の出力に対する評価指標を提供する。
//
// 目的変数と予測値はいずれも n×1 の列 (Fit/Predict が扱う形そのまま) で受け取る。
// 区間は n×2 の行列で、0 列目が下限、1 列目が上限。
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// values は n×1 の列を []float64 にする
func values(op string, m mat.Matrix) ([]float64, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "empty input")
	}
	rows, cols := m.Dims()
	if rows == 0 {
		return nil, errors.NewValueError(op, "empty input")
	}
	if cols != 1 {
		return nil, errors.NewDimensionError(op, 1, cols, 1)
	}
	return mat.Col(nil, 0, m), nil
}

// pair は同じ長さの yTrue と yPred を取り出す
func pair(op string, yTrue, yPred mat.Matrix) (t, p []float64, err error) {
	if t, err = values(op, yTrue); err != nil {
		return nil, nil, err
	}
	if p, err = values(op, yPred); err != nil {
		return nil, nil, err
	}
	if len(p) != len(t) {
		return nil, nil, errors.NewDimensionError(op, len(t), len(p), 0)
	}
	return t, p, nil
}
