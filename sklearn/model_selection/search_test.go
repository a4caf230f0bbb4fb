package model_selection

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

func regressionData(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*4, rng.Float64()*4
		X.SetRow(i, []float64{a, b})
		y.Set(i, 0, a*a-b+0.1*rng.NormFloat64())
	}
	return X, y
}

func TestSampleParams(t *testing.T) {
	dists := ParamDistributions{
		"learning_rate": Uniform{Loc: 0.01, Scale: 0.07},
		"n_estimators":  RandInt{Low: 150, High: 500},
		"max_depth":     Ints(3, 4, 5),
	}

	first, err := SampleParams(dists, 25, 9)
	require.NoError(t, err)
	second, err := SampleParams(dists, 25, 9)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, p := range first {
		assert.Len(t, p, 3)
		lr := p["learning_rate"].(float64)
		assert.GreaterOrEqual(t, lr, 0.01)
		assert.Less(t, lr, 0.08)
		ne := p["n_estimators"].(int)
		assert.GreaterOrEqual(t, ne, 150)
		assert.Less(t, ne, 500)
		assert.Contains(t, []any{3, 4, 5}, p["max_depth"])
	}

	_, err = SampleParams(ParamDistributions{"x": RandInt{Low: 3, High: 3}}, 1, 0)
	assert.Error(t, err)
	_, err = SampleParams(dists, 0, 0)
	assert.Error(t, err)
}

func TestGetScorer(t *testing.T) {
	for _, name := range []string{"", "r2", "f1", "f1_weighted", "accuracy", "neg_log_loss"} {
		_, err := GetScorer(name)
		assert.NoError(t, err, name)
	}
	_, err := GetScorer("roc_auc")
	assert.Error(t, err)
	assert.Contains(t, ScorerNames(), "neg_root_mean_squared_error")
}

func TestRandomizedSearchCV(t *testing.T) {
	X, y := regressionData(120)
	est := boosting.NewRegressor(boosting.LightGBM)
	require.NoError(t, est.SetParams(map[string]any{"min_child_samples": 5}))

	search := NewRandomizedSearchCV(est, ParamDistributions{
		"learning_rate": Uniform{Loc: 0.05, Scale: 0.2},
		"n_estimators":  Ints(10, 20, 30),
	}, 4)
	search.CV = NewKFold(3, false, 0)
	search.Scoring = "r2"
	search.RandomSeed = 5

	require.NoError(t, search.Fit(context.Background(), X, y))

	require.NotNil(t, search.CVResults)
	assert.Len(t, search.CVResults.MeanTestScore, 4)
	assert.ElementsMatch(t, []string{"learning_rate", "n_estimators"}, keys(search.BestParams))
	assert.Equal(t, 1, search.CVResults.RankTestScore[search.BestIndex])
	for _, m := range search.CVResults.MeanTestScore {
		assert.LessOrEqual(t, m, search.BestScore)
	}
	require.NotNil(t, search.BestEstimator)
	assert.Equal(t, search.BestParams["n_estimators"], search.BestEstimator.GetParams()["n_estimators"])
}

func TestRandomizedSearchCVErrorScore(t *testing.T) {
	X, y := regressionData(60)
	est := boosting.NewRegressor(boosting.XGBoost)

	// colsample_bytree above 1 fails every fit.
	search := NewRandomizedSearchCV(est, ParamDistributions{
		"colsample_bytree": Floats(1.5),
		"n_estimators":     Ints(5),
	}, 2)
	search.CV = NewKFold(2, false, 0)
	search.ErrorScore = 0
	search.Refit = false

	require.NoError(t, search.Fit(context.Background(), X, y))
	assert.Equal(t, []float64{0, 0}, search.CVResults.MeanTestScore)
	assert.Nil(t, search.BestEstimator)

	search.ErrorScore = math.NaN()
	assert.Error(t, search.Fit(context.Background(), X, y))

	search.RaiseOnError = true
	assert.Error(t, search.Fit(context.Background(), X, y))
}

func TestRandomizedSearchCVCancelled(t *testing.T) {
	X, y := regressionData(60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := NewRandomizedSearchCV(boosting.NewRegressor(boosting.LightGBM), ParamDistributions{
		"n_estimators": Ints(5),
	}, 2)
	err := search.Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHoldoutSearchMinimizesLoss(t *testing.T) {
	X, y := regressionData(100)
	est := boosting.NewRegressor(boosting.CatBoost)
	require.NoError(t, est.SetParams(map[string]any{"iterations": 20}))

	search := NewRandomizedSearchCV(est, ParamDistributions{
		"learning_rate": Uniform{Loc: 0.01, Scale: 0.2},
		"depth":         Ints(2, 4),
	}, 3)
	search.CV = NewShuffleSplit(0.2, 0)
	search.Scoring = "neg_root_mean_squared_error"

	require.NoError(t, search.Fit(context.Background(), X, y))
	assert.LessOrEqual(t, search.BestScore, 0.0)
	assert.Len(t, search.CVResults.SplitScores[0], 1)
}

func TestSummarizeRanks(t *testing.T) {
	params := []map[string]any{{}, {}, {}, {}}
	scores := [][]float64{{0.5}, {0.9}, {math.NaN()}, {0.9}}
	times := [][]time.Duration{{time.Second}, {time.Second}, {time.Second}, {3 * time.Second}}
	res := summarize(params, scores, times)
	assert.Equal(t, []int{3, 1, 4, 1}, res.RankTestScore)
	assert.Equal(t, 3*time.Second, res.MeanFitTime[3])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
