package boosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/conformboost/metrics"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestTrainReducesMSE(t *testing.T) {
	X, y := linearData(300, 0.5, 1)
	targets := mat.Col(nil, 0, y)
	variance := stat.PopVariance(targets, nil)

	tests := []struct {
		name   string
		growth GrowthPolicy
	}{
		{"leafwise", LeafWise},
		{"depthwise", DepthWise},
		{"symmetric", Symmetric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Growth = tt.growth
			cfg.NumIterations = 60
			cfg.MaxDepth = 4
			cfg.NumLeaves = 15
			cfg.MinDataInLeaf = 5

			ens, err := Train(X, targets, cfg)
			require.NoError(t, err)
			assert.Len(t, ens.Trees, 60)

			pred := ens.PredictRaw(X)
			mse, err := metrics.MSE(mat.NewDense(len(targets), 1, targets), pred)
			require.NoError(t, err)
			assert.Less(t, mse, 0.1*variance)
			assert.InDelta(t, mse/2, ens.TrainLoss, 1e-6)
		})
	}
}

func TestTrainGrowthLimits(t *testing.T) {
	X, y := linearData(200, 0.5, 2)
	targets := mat.Col(nil, 0, y)

	t.Run("leaf-wise respects num_leaves", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.NumIterations = 5
		cfg.NumLeaves = 4
		cfg.MinDataInLeaf = 2
		ens, err := Train(X, targets, cfg)
		require.NoError(t, err)
		for _, tree := range ens.Trees {
			assert.LessOrEqual(t, tree.NumLeaves(), 4)
		}
	})

	t.Run("depth-wise respects max_depth", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Growth = DepthWise
		cfg.NumIterations = 5
		cfg.MaxDepth = 2
		cfg.MinDataInLeaf = 1
		ens, err := Train(X, targets, cfg)
		require.NoError(t, err)
		for _, tree := range ens.Trees {
			assert.LessOrEqual(t, tree.Depth(), 2)
		}
	})

	t.Run("symmetric trees share one split per level", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Growth = Symmetric
		cfg.NumIterations = 5
		cfg.MaxDepth = 3
		cfg.MinDataInLeaf = 1
		ens, err := Train(X, targets, cfg)
		require.NoError(t, err)
		for _, tree := range ens.Trees {
			assert.Equal(t, 3, tree.Depth())
			assert.Equal(t, 8, tree.NumLeaves())

			level := []int{0}
			for len(level) > 0 && !tree.Nodes[level[0]].IsLeaf() {
				first := tree.Nodes[level[0]]
				var next []int
				for _, idx := range level {
					node := tree.Nodes[idx]
					assert.Equal(t, first.Feature, node.Feature)
					assert.Equal(t, first.Threshold, node.Threshold)
					next = append(next, node.Left, node.Right)
				}
				level = next
			}
		}
	})
}

func TestTrainQuantileBracketsMedian(t *testing.T) {
	X, y := linearData(400, 2.0, 3)
	targets := mat.Col(nil, 0, y)

	fit := func(alpha float64) []float64 {
		cfg := DefaultConfig()
		cfg.Objective = ObjectiveQuantile
		cfg.QuantileAlpha = alpha
		cfg.NumIterations = 100
		cfg.NumLeaves = 8
		cfg.MinDataInLeaf = 10
		ens, err := Train(X, targets, cfg)
		require.NoError(t, err)
		return mat.Col(nil, 0, ens.PredictRaw(X))
	}

	lower, median, upper := fit(0.1), fit(0.5), fit(0.9)

	covered := 0
	for i := range targets {
		if targets[i] >= lower[i] && targets[i] <= upper[i] {
			covered++
		}
	}
	assert.Less(t, stat.Mean(lower, nil), stat.Mean(median, nil))
	assert.Less(t, stat.Mean(median, nil), stat.Mean(upper, nil))
	assert.Greater(t, float64(covered)/float64(len(targets)), 0.65)
}

func TestTrainMulticlass(t *testing.T) {
	X, y := blobs(150, []float64{0, 1, 2}, 4)
	cfg := DefaultConfig()
	cfg.Objective = ObjectiveMulticlass
	cfg.NumClass = 3
	cfg.NumIterations = 20
	cfg.MinDataInLeaf = 5

	ens, err := Train(X, mat.Col(nil, 0, y), cfg)
	require.NoError(t, err)
	assert.Len(t, ens.Trees, 60)
	assert.Equal(t, 3, ens.NumOutputs)

	raw := ens.PredictRaw(X)
	rows, cols := raw.Dims()
	assert.Equal(t, 150, rows)
	assert.Equal(t, 3, cols)
}

func TestTrainValidation(t *testing.T) {
	X, y := linearData(20, 0.1, 5)
	targets := mat.Col(nil, 0, y)

	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"zero iterations", func(c *Config) { c.NumIterations = 0 }, "n_estimators"},
		{"negative learning rate", func(c *Config) { c.LearningRate = -1 }, "learning_rate"},
		{"subsample above one", func(c *Config) { c.Subsample = 1.5 }, "subsample"},
		{"too few leaves", func(c *Config) { c.NumLeaves = 1 }, "num_leaves"},
		{"quantile alpha out of range", func(c *Config) {
			c.Objective = ObjectiveQuantile
			c.QuantileAlpha = 1.5
		}, "alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Train(X, targets, cfg)
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}

	t.Run("target length mismatch", func(t *testing.T) {
		_, err := Train(X, targets[:10], DefaultConfig())
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})
}

func TestBinMapper(t *testing.T) {
	t.Run("few distinct values get one bin each", func(t *testing.T) {
		m := newBinMapper([]float64{3, 1, 2, 2, 1, 3}, 255)
		assert.Equal(t, 3, m.numBins())
		assert.Equal(t, 0, m.bin(1))
		assert.Equal(t, 1, m.bin(2))
		assert.Equal(t, 2, m.bin(3))
		assert.Equal(t, 1.5, m.threshold(0))
	})

	t.Run("many values are capped at max bin", func(t *testing.T) {
		values := make([]float64, 1000)
		for i := range values {
			values[i] = float64(i)
		}
		m := newBinMapper(values, 16)
		assert.LessOrEqual(t, m.numBins(), 16)
		for k := 0; k < m.numBins()-1; k++ {
			th := m.threshold(k)
			assert.LessOrEqual(t, m.bin(th), k)
			assert.Greater(t, m.bin(th+1), k)
		}
	})
}
