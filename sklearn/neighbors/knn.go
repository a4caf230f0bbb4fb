// Package neighbors は近傍法ベースの推定器を提供する
package neighbors

import (
	"encoding/gob"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/core/parallel"
	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/preprocessing"
)

func init() {
	gob.Register(&KNeighborsRegressor{})
}

// DefaultNeighbors は正規化器として使うときの近傍数
const DefaultNeighbors = 11

// KNeighborsRegressor は k 近傍回帰 (一様重み、生の特徴量上のユークリッド距離)
type KNeighborsRegressor struct {
	NNeighbors int
	// Standardize が true のときだけ StandardScaler を通してから距離を計算する
	Standardize bool

	State  *model.StateManager
	Scaler *preprocessing.StandardScaler
	// 訓練データ (行優先)
	XTrain []float64
	YTrain []float64
}

// NewKNeighborsRegressor は新しい KNeighborsRegressor を作成する
func NewKNeighborsRegressor(nNeighbors int) *KNeighborsRegressor {
	return &KNeighborsRegressor{
		NNeighbors: nNeighbors,
		State:      model.NewStateManager(),
	}
}

// Fit は訓練データを保持する
func (k *KNeighborsRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "KNeighborsRegressor.Fit")

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KNeighborsRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("KNeighborsRegressor.Fit", rows, yRows, 0)
	}
	if k.NNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be positive", k.NNeighbors)
	}
	if k.NNeighbors > rows {
		return errors.NewValueError("KNeighborsRegressor.Fit",
			"n_neighbors must not exceed the number of samples")
	}

	train := X
	k.Scaler = nil
	if k.Standardize {
		k.Scaler = preprocessing.NewStandardScalerDefault()
		if train, err = k.Scaler.FitTransform(X); err != nil {
			return err
		}
	}

	k.XTrain = make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		k.XTrain = append(k.XTrain, mat.Row(nil, i, train)...)
	}
	k.YTrain = mat.Col(nil, 0, y)
	k.State.SetDimensions(cols, rows)
	k.State.SetFitted()
	return nil
}

// Predict は各行について近傍 NNeighbors 点の目的変数の平均を返す
func (k *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := k.State.RequireFitted("KNeighborsRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := k.State.CheckFeatures("KNeighborsRegressor.Predict", cols); err != nil {
		return nil, err
	}
	query := X
	if k.Scaler != nil {
		var err error
		if query, err = k.Scaler.Transform(X); err != nil {
			return nil, err
		}
	}

	nTrain := len(k.YTrain)
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 32, func(start, end int) {
		dist := make([]float64, nTrain)
		idx := make([]int, nTrain)
		neighbors := make([]float64, k.NNeighbors)
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, query)
			for j := 0; j < nTrain; j++ {
				dist[j] = floats.Distance(row, k.XTrain[j*cols:(j+1)*cols], 2)
			}
			floats.Argsort(dist, idx)
			for n := range neighbors {
				neighbors[n] = k.YTrain[idx[n]]
			}
			out.Set(i, 0, stat.Mean(neighbors, nil))
		}
	})
	return out, nil
}

// Score は決定係数 R^2 を返す
func (k *KNeighborsRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := k.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// GetParams はハイパーパラメータを返す
func (k *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{"n_neighbors": k.NNeighbors, "standardize": k.Standardize}
}

// SetParams はハイパーパラメータを設定する
func (k *KNeighborsRegressor) SetParams(params map[string]interface{}) error {
	for name, value := range params {
		switch name {
		case "n_neighbors":
			n, ok := value.(int)
			if !ok {
				return errors.NewValidationError(name, "wrong value type", value)
			}
			k.NNeighbors = n
		case "standardize":
			b, ok := value.(bool)
			if !ok {
				return errors.NewValidationError(name, "wrong value type", value)
			}
			k.Standardize = b
		default:
			return errors.NewValidationError(name, "unknown parameter for KNeighborsRegressor", value)
		}
	}
	return nil
}

// Clone は未学習のコピーを返す
func (k *KNeighborsRegressor) Clone() model.Estimator {
	c := NewKNeighborsRegressor(k.NNeighbors)
	c.Standardize = k.Standardize
	return c
}
