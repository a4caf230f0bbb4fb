package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// col は n×1 の列を作る
func col(v ...float64) *mat.Dense {
	return mat.NewDense(len(v), 1, v)
}

func TestRegressionMetrics(t *testing.T) {
	yTrue := col(10, 20, 30)
	yPred := col(12, 18, 33)

	tests := []struct {
		name   string
		metric func(yTrue, yPred mat.Matrix) (float64, error)
		want   float64
	}{
		// 誤差 2, -2, 3
		{"mse", MSE, 17.0 / 3.0},
		{"rmse", RMSE, math.Sqrt(17.0 / 3.0)},
		{"mae", MAE, 7.0 / 3.0},
		// TSS = 200
		{"r2", R2Score, 1 - 17.0/200.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.metric(yTrue, yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)

			perfect, err := tt.metric(yTrue, yTrue)
			require.NoError(t, err)
			if tt.name == "r2" {
				assert.InDelta(t, 1.0, perfect, 1e-12)
			} else {
				assert.InDelta(t, 0.0, perfect, 1e-12)
			}
		})
	}
}

func TestRegressionMetricsAcceptVectors(t *testing.T) {
	got, err := MSE(mat.NewVecDense(2, []float64{1, 2}), col(1, 4))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestRegressionMetricErrors(t *testing.T) {
	var de *errors.DimensionError

	_, err := MSE(col(1, 2, 3), col(1, 2))
	require.True(t, errors.As(err, &de))

	_, err = MAE(mat.NewDense(2, 2, nil), col(1, 2))
	require.True(t, errors.As(err, &de), "two columns")

	var ve *errors.ValueError
	_, err = RMSE(&mat.VecDense{}, &mat.VecDense{})
	assert.True(t, errors.As(err, &ve), "empty")

	_, err = R2Score(col(3, 3, 3), col(1, 2, 3))
	assert.True(t, errors.As(err, &ve), "constant target")
}
