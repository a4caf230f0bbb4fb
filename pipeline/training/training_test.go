package training

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pipeline/artifact"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

func writeTrain(t *testing.T, dir string, classification bool) string {
	t.Helper()
	rng := rand.New(rand.NewPCG(5, 6))
	f := &dataset.Frame{Header: []string{"id", "x", "z", dataset.TargetColumn}}
	for i := 0; i < 120; i++ {
		x, z := rng.Float64()*3, rng.Float64()*3
		target := x*z + 0.1*rng.NormFloat64()
		if classification {
			target = 0
			if x > z {
				target = 1
			}
		}
		f.Rows = append(f.Rows, []float64{float64(i), x, z, target})
	}
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, f.WriteCSV(path))
	return path
}

func TestTrainSavesArtifact(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		TrainingData: writeTrain(t, dir, true),
		Model:        "lightgbm",
		ProblemType:  "classification",
		ModelsDir:    filepath.Join(dir, "models"),
	}
	env, err := Train(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, boosting.LightGBM, env.Family)

	loaded, err := artifact.LoadModel(filepath.Join(dir, "models", "lightgbm.pkl"))
	require.NoError(t, err)
	require.NoError(t, loaded.Check(cfg.ModelPath(), boosting.LightGBM, boosting.Classification))
	clf, ok := loaded.Estimator.(*boosting.Classifier)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1}, clf.Classes())
}

func TestTrainAppliesTunedParams(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		TrainingData: writeTrain(t, dir, false),
		Model:        "catboost",
		ProblemType:  "regression",
		ModelsDir:    filepath.Join(dir, "models"),
	}
	require.NoError(t, artifact.SaveParams(cfg.ParamsPath(), &artifact.ParamsEnvelope{
		Family:      boosting.CatBoost,
		ProblemType: boosting.Regression,
		Params:      boosting.Params{"iterations": 25, "depth": 4, "l2_leaf_reg": 5},
	}))

	env, err := Train(context.Background(), cfg)
	require.NoError(t, err)
	params := env.Estimator.(*boosting.Regressor).GetParams()
	assert.Equal(t, 25, params["iterations"])
	assert.Equal(t, 4, params["depth"])
	assert.Equal(t, 5.0, params["l2_leaf_reg"])
}

func TestTrainIgnoresParamsOfOtherFamily(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		TrainingData: writeTrain(t, dir, false),
		Model:        "xgboost",
		ProblemType:  "regression",
		ModelsDir:    filepath.Join(dir, "models"),
	}
	require.NoError(t, artifact.SaveParams(cfg.ParamsPath(), &artifact.ParamsEnvelope{
		Family: boosting.CatBoost,
		Params: boosting.Params{"depth": 4},
	}))

	env, err := Train(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 6, env.Estimator.(*boosting.Regressor).GetParams()["max_depth"])
}

func TestTrainErrors(t *testing.T) {
	_, err := Train(context.Background(), &config.Config{Model: "xgboost", ProblemType: "regression"})
	var ce *errors.ConfigError
	require.True(t, errors.As(err, &ce))

	_, err = Train(context.Background(), &config.Config{TrainingData: "x.csv", Model: "svm", ProblemType: "regression"})
	var ume *errors.UnsupportedModelError
	require.True(t, errors.As(err, &ume))

	_, err = Train(context.Background(), &config.Config{
		TrainingData: filepath.Join(t.TempDir(), "missing.csv"), Model: "xgboost", ProblemType: "regression",
		ModelsDir: t.TempDir(),
	})
	var ae *errors.ArtifactError
	assert.True(t, errors.As(err, &ae))
}
