package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestAccuracy(t *testing.T) {
	got, err := Accuracy(col(0, 1, 2, 1), col(0, 2, 2, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	_, err = Accuracy(col(0, 1), col(0))
	assert.Error(t, err)
}

func TestBinaryLogLoss(t *testing.T) {
	got, err := BinaryLogLoss(col(1, 0), col(0.8, 0.4))
	require.NoError(t, err)
	assert.InDelta(t, -(math.Log(0.8)+math.Log(0.6))/2, got, 1e-12)

	// 確率 0/1 はクリップされて有限になる
	got, err = BinaryLogLoss(col(1, 0), col(0, 1))
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
	assert.InDelta(t, -math.Log(logLossEpsilon), got, 1e-6)

	_, err = BinaryLogLoss(col(2), col(0.5))
	assert.Error(t, err)
}

func TestMultiLogLoss(t *testing.T) {
	proba := mat.NewDense(2, 3, []float64{
		0.7, 0.2, 0.1,
		0.1, 0.1, 0.8,
	})
	got, err := MultiLogLoss(col(0, 2), proba, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, -(math.Log(0.7)+math.Log(0.8))/2, got, 1e-12)

	_, err = MultiLogLoss(col(0, 5), proba, []float64{0, 1, 2})
	assert.Error(t, err, "unknown label")

	var de *errors.DimensionError
	_, err = MultiLogLoss(col(0, 2), proba, []float64{0, 1})
	assert.True(t, errors.As(err, &de))
}

func TestF1Score(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.Dense
		yPred   *mat.Dense
		want    float64
		wantErr bool
	}{
		{name: "perfect", yTrue: col(0, 1, 1, 0), yPred: col(0, 1, 1, 0), want: 1},
		// tp=2 fp=1 fn=1
		{name: "one miss each way", yTrue: col(1, 1, 0, 0, 1), yPred: col(1, 0, 1, 0, 1), want: 4.0 / 6.0},
		{name: "multiclass", yTrue: col(0, 1, 2), yPred: col(0, 1, 2), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := F1Score(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestF1ScoreUndefinedWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	got, err := F1Score(col(0, 0, 0), col(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	require.Len(t, warnings, 1)

	var undefined *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &undefined))
}

func TestF1Weighted(t *testing.T) {
	// class 0: 0.5, class 1: 0.8, class 2: 2/3 (support 2 each)
	got, err := F1Weighted(col(0, 0, 1, 1, 2, 2), col(0, 1, 1, 1, 2, 0))
	require.NoError(t, err)
	assert.InDelta(t, (0.5+0.8+2.0/3.0)/3.0, got, 1e-9)
}
