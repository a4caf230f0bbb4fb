package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestIntervalMetrics(t *testing.T) {
	intervals := mat.NewDense(4, 2, []float64{
		0, 2,
		2.5, 3,
		2, 4,
		3, 5,
	})

	cov, err := IntervalCoverage(col(1, 2, 3, 4), intervals)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cov, 1e-12)

	width, err := MeanIntervalWidth(intervals)
	require.NoError(t, err)
	assert.InDelta(t, 1.625, width, 1e-12)
	assert.Equal(t, 2.5, intervals.At(1, 0), "input untouched")

	var de *errors.DimensionError
	_, err = IntervalCoverage(col(1, 2), intervals)
	assert.True(t, errors.As(err, &de))
	_, err = MeanIntervalWidth(col(1, 2))
	assert.True(t, errors.As(err, &de))
}
