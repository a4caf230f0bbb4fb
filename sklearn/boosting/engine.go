package boosting

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/parallel"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// Config holds the engine-level training parameters. Family estimators
// translate their own parameter vocabulary into a Config.
type Config struct {
	Objective     string
	NumClass      int
	QuantileAlpha float64

	NumIterations int
	LearningRate  float64

	Growth         GrowthPolicy
	NumLeaves      int
	MaxDepth       int
	MinDataInLeaf  int
	MinSumHessian  float64
	Lambda         float64
	MinGainToSplit float64

	Subsample       float64
	ColsampleBytree float64
	MaxBin          int
	Seed            uint64
}

// DefaultConfig returns LightGBM-like defaults.
func DefaultConfig() Config {
	return Config{
		Objective:       ObjectiveL2,
		NumClass:        1,
		QuantileAlpha:   0.5,
		NumIterations:   100,
		LearningRate:    0.1,
		Growth:          LeafWise,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinDataInLeaf:   20,
		MinSumHessian:   1e-3,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		MaxBin:          255,
	}
}

// Validate checks ranges before training.
func (c *Config) Validate() error {
	switch {
	case c.NumIterations <= 0:
		return errors.NewValidationError("n_estimators", "must be positive", c.NumIterations)
	case c.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	case c.Subsample <= 0 || c.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", c.Subsample)
	case c.ColsampleBytree <= 0 || c.ColsampleBytree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", c.ColsampleBytree)
	case c.Lambda < 0:
		return errors.NewValidationError("lambda", "must be non-negative", c.Lambda)
	case c.MaxBin < 2 || c.MaxBin > math.MaxUint16:
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", c.MaxBin)
	case c.Growth == LeafWise && c.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", c.NumLeaves)
	case c.Growth == Symmetric && c.MaxDepth < 1:
		return errors.NewValidationError("depth", "must be at least 1", c.MaxDepth)
	case c.Objective == ObjectiveMulticlass && c.NumClass < 2:
		return errors.NewValidationError("num_class", "must be at least 2 for multiclass", c.NumClass)
	}
	return nil
}

func (c *Config) objectiveFunction() (ObjectiveFunction, error) {
	switch c.Objective {
	case ObjectiveL2:
		return &L2Objective{}, nil
	case ObjectiveQuantile:
		return NewQuantileObjective(c.QuantileAlpha)
	case ObjectiveBinary:
		return &BinaryLogloss{}, nil
	case ObjectiveMulticlass:
		return nil, nil
	default:
		return nil, errors.NewValidationError("objective", "unknown objective", c.Objective)
	}
}

func (c *Config) numOutputs() int {
	if c.Objective == ObjectiveMulticlass {
		return c.NumClass
	}
	return 1
}

// Ensemble is a trained additive model. Raw scores are InitScores plus the
// sum of the trees of each output column.
type Ensemble struct {
	Objective     string
	QuantileAlpha float64
	NumOutputs    int
	NumFeatures   int
	InitScores    []float64
	Trees         []Tree
	// TrainLoss is the mean training loss after the last iteration.
	TrainLoss float64
}

// PredictRaw returns the (n_samples, NumOutputs) raw score matrix.
func (e *Ensemble) PredictRaw(X mat.Matrix) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, e.NumOutputs, nil)
	parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			for k := 0; k < e.NumOutputs; k++ {
				out.Set(i, k, e.InitScores[k])
			}
			for t := range e.Trees {
				tree := &e.Trees[t]
				out.Set(i, tree.Class, out.At(i, tree.Class)+tree.Predict(row))
			}
		}
	})
	return out
}

// Train fits an ensemble. For binary targets must be 0/1, for multiclass
// they are class indices in [0, NumClass).
func Train(X mat.Matrix, targets []float64, cfg Config) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.NewModelError("Train", "empty data", errors.ErrEmptyData)
	}
	if len(targets) != rows {
		return nil, errors.NewDimensionError("Train", rows, len(targets), 0)
	}

	obj, err := cfg.objectiveFunction()
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("boosting.engine")
	start := time.Now()

	data := binData(X, cfg.MaxBin)
	outputs := cfg.numOutputs()
	labels := make([]int, rows)
	for i, t := range targets {
		labels[i] = int(t)
	}

	ens := &Ensemble{
		Objective:     cfg.Objective,
		QuantileAlpha: cfg.QuantileAlpha,
		NumOutputs:    outputs,
		NumFeatures:   cols,
	}
	if obj != nil {
		ens.InitScores = []float64{obj.GetInitScore(targets)}
	} else {
		ens.InitScores = softmaxInitScores(labels, outputs)
	}

	// Cached raw scores per output column.
	raw := make([][]float64, outputs)
	for k := range raw {
		raw[k] = make([]float64, rows)
		for i := range raw[k] {
			raw[k][i] = ens.InitScores[k]
		}
	}

	grad := make([][]float64, outputs)
	hess := make([][]float64, outputs)
	for k := range grad {
		grad[k] = make([]float64, rows)
		hess[k] = make([]float64, rows)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	renewer, _ := obj.(LeafRenewer)

	for iter := 0; iter < cfg.NumIterations; iter++ {
		computeGradients(obj, raw, targets, labels, grad, hess)

		sampled := sampleRows(rng, rows, cfg.Subsample)
		features := sampleFeatures(rng, cols, cfg.ColsampleBytree)

		for k := 0; k < outputs; k++ {
			builder := &treeBuilder{cfg: &cfg, data: data, grad: grad[k], hess: hess[k], features: features}
			tree, leafRows := builder.grow(sampled)
			tree.Class = k

			if renewer != nil {
				renewLeaves(&tree, leafRows, renewer, raw[k], targets, cfg.LearningRate)
			}

			for i := 0; i < rows; i++ {
				raw[k][i] += tree.predictBinned(data, i)
			}
			if err := errors.CheckNumericalStability("raw_score_update", raw[k], iter); err != nil {
				return nil, err
			}
			ens.Trees = append(ens.Trees, tree)
		}

		if logger.Enabled(context.Background(), log.LevelDebug) && (iter%50 == 0 || iter == cfg.NumIterations-1) {
			logger.Debug("Boosting progress",
				log.IterationKey, iter,
				log.LossKey, trainingLoss(obj, raw, targets, labels),
			)
		}
	}

	ens.TrainLoss = trainingLoss(obj, raw, targets, labels)
	logger.Debug("Ensemble trained",
		"objective", cfg.Objective,
		"growth", cfg.Growth.String(),
		"trees", len(ens.Trees),
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.LossKey, ens.TrainLoss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ens, nil
}

func computeGradients(obj ObjectiveFunction, raw [][]float64, targets []float64, labels []int, grad, hess [][]float64) {
	rows := len(targets)
	if obj != nil {
		for i := 0; i < rows; i++ {
			grad[0][i] = obj.CalculateGradient(raw[0][i], targets[i])
			hess[0][i] = obj.CalculateHessian(raw[0][i], targets[i])
		}
		return
	}

	outputs := len(raw)
	parallel.ParallelizeWithThreshold(rows, 1024, func(start, end int) {
		scores := make([]float64, outputs)
		g := make([]float64, outputs)
		h := make([]float64, outputs)
		for i := start; i < end; i++ {
			for k := range scores {
				scores[k] = raw[k][i]
			}
			softmaxGradients(scores, labels[i], g, h)
			for k := range scores {
				grad[k][i] = g[k]
				hess[k][i] = h[k]
			}
		}
	})
}

func trainingLoss(obj ObjectiveFunction, raw [][]float64, targets []float64, labels []int) float64 {
	if obj != nil {
		return lossOf(obj, raw[0], targets)
	}
	var sum float64
	scores := make([]float64, len(raw))
	for i := range labels {
		for k := range scores {
			scores[k] = raw[k][i]
		}
		sum -= errors.StabilizeLog(softmax(scores)[labels[i]])
	}
	return sum / float64(len(labels))
}

func renewLeaves(tree *Tree, leafRows map[int][]int, renewer LeafRenewer, raw, targets []float64, lr float64) {
	for node, rows := range leafRows {
		if len(rows) == 0 {
			continue
		}
		residuals := make([]float64, len(rows))
		for j, r := range rows {
			residuals[j] = targets[r] - raw[r]
		}
		tree.Nodes[node].Value = renewer.RenewLeaf(residuals) * lr
	}
}

// sampleRows draws a subset without replacement, keeping row order.
func sampleRows(rng *rand.Rand, rows int, fraction float64) []int {
	if fraction >= 1 {
		all := make([]int, rows)
		for i := range all {
			all[i] = i
		}
		return all
	}
	sampled := make([]int, 0, int(float64(rows)*fraction)+1)
	for i := 0; i < rows; i++ {
		if rng.Float64() < fraction {
			sampled = append(sampled, i)
		}
	}
	if len(sampled) == 0 {
		sampled = append(sampled, rng.IntN(rows))
	}
	return sampled
}

func sampleFeatures(rng *rand.Rand, cols int, fraction float64) []int {
	perm := rng.Perm(cols)
	n := int(math.Ceil(fraction * float64(cols)))
	n = max(1, min(n, cols))
	return perm[:n]
}

func (t *Tree) predictBinned(data *binnedData, row int) float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf() {
			return node.Value
		}
		if int(data.bins[node.Feature][row]) <= node.Bin {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}
