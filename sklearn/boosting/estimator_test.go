package boosting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// small keeps estimator tests fast.
func small(f Family) map[string]interface{} {
	if f == CatBoost {
		return map[string]interface{}{"iterations": 40, "learning_rate": 0.2, "depth": 4}
	}
	return map[string]interface{}{"n_estimators": 40, "learning_rate": 0.2}
}

func TestNew(t *testing.T) {
	for _, f := range Families {
		for _, p := range ProblemTypes {
			est, err := New(f, p)
			require.NoError(t, err, "%s/%s", f, p)
			_, isClassifier := est.(model.Classifier)
			assert.Equal(t, p.IsClassification(), isClassifier, "%s/%s", f, p)
		}
	}

	_, err := New("sklearn", Regression)
	var ume *errors.UnsupportedModelError
	assert.True(t, errors.As(err, &ume))

	_, err = New(XGBoost, "ranking")
	var upe *errors.UnsupportedProblemTypeError
	assert.True(t, errors.As(err, &upe))
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("  LightGBM ")
	require.NoError(t, err)
	assert.Equal(t, LightGBM, f)

	_, err = ParseFamily("randomforest")
	assert.ErrorContains(t, err, `model not supported: "randomforest"`)

	p, err := ParseProblemType("Multiclass")
	require.NoError(t, err)
	assert.Equal(t, Multiclass, p)
}

func TestRegressorFitPredict(t *testing.T) {
	X, y := linearData(300, 0.5, 10)

	for _, f := range Families {
		t.Run(string(f), func(t *testing.T) {
			reg := NewRegressor(f)
			require.NoError(t, reg.SetParams(small(f)))
			require.NoError(t, reg.Fit(X, y))
			assert.True(t, reg.State.IsFitted())

			pred, err := reg.Predict(X)
			require.NoError(t, err)
			rows, cols := pred.Dims()
			assert.Equal(t, 300, rows)
			assert.Equal(t, 1, cols)

			score, err := reg.Score(X, y)
			require.NoError(t, err)
			assert.Greater(t, score, 0.9)
		})
	}
}

func TestRegressorNotFitted(t *testing.T) {
	reg := NewRegressor(XGBoost)
	_, err := reg.Predict(mat.NewDense(2, 3, nil))
	var nfe *errors.NotFittedError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, "XGBRegressor", nfe.ModelName)
}

func TestRegressorFeatureMismatch(t *testing.T) {
	X, y := linearData(50, 0.1, 11)
	reg := NewRegressor(LightGBM)
	require.NoError(t, reg.SetParams(map[string]interface{}{"n_estimators": 5, "min_child_samples": 2}))
	require.NoError(t, reg.Fit(X, y))

	_, err := reg.Predict(mat.NewDense(2, 5, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestCatBoostQuantileRegressors(t *testing.T) {
	X, y := linearData(300, 2.0, 12)

	fit := func(alpha float64) mat.Matrix {
		reg := NewRegressor(CatBoost)
		params := small(CatBoost)
		params["loss_function"] = CatBoostQuantileLoss(alpha)
		require.NoError(t, reg.SetParams(params))
		require.NoError(t, reg.Fit(X, y))
		pred, err := reg.Predict(X)
		require.NoError(t, err)
		return pred
	}

	lower, upper := fit(0.025), fit(0.975)
	below := 0
	for i := 0; i < 300; i++ {
		if lower.At(i, 0) < upper.At(i, 0) {
			below++
		}
	}
	assert.Greater(t, below, 270)
	assert.Equal(t, "Quantile:alpha=0.025", CatBoostQuantileLoss(0.025))
}

func TestClassifierBinary(t *testing.T) {
	X, y := blobs(120, []float64{-1, 1}, 13)

	for _, f := range Families {
		t.Run(string(f), func(t *testing.T) {
			clf := NewClassifier(f, false)
			require.NoError(t, clf.SetParams(small(f)))
			require.NoError(t, clf.Fit(X, y))
			assert.Equal(t, []float64{-1, 1}, clf.Classes())

			proba, err := clf.PredictProba(X)
			require.NoError(t, err)
			rows, cols := proba.Dims()
			assert.Equal(t, 120, rows)
			assert.Equal(t, 2, cols)
			for i := 0; i < rows; i++ {
				assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
			}

			acc, err := clf.Score(X, y)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, acc, 0.95)
		})
	}
}

func TestClassifierMulticlass(t *testing.T) {
	X, y := blobs(150, []float64{3, 5, 7}, 14)

	for _, f := range Families {
		t.Run(string(f), func(t *testing.T) {
			clf := NewClassifier(f, true)
			require.NoError(t, clf.SetParams(small(f)))
			require.NoError(t, clf.Fit(X, y))
			assert.Equal(t, []float64{3, 5, 7}, clf.Classes())

			pred, err := clf.Predict(X)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				assert.Contains(t, []float64{3, 5, 7}, pred.At(i, 0))
			}

			acc, err := clf.Score(X, y)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, acc, 0.95)
		})
	}
}

func TestClassifierTargetChecks(t *testing.T) {
	X, y := blobs(30, []float64{0, 1, 2}, 15)

	err := NewClassifier(XGBoost, false).Fit(X, y)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	single := mat.NewDense(30, 1, nil)
	err = NewClassifier(XGBoost, true).Fit(X, single)
	assert.True(t, errors.Is(err, errors.ErrSingleClass))
}

func TestSetParams(t *testing.T) {
	t.Run("unknown name leaves params untouched", func(t *testing.T) {
		reg := NewRegressor(XGBoost)
		err := reg.SetParams(map[string]interface{}{"max_depth": 3, "depth": 4})
		var ve *errors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "depth", ve.ParamName)
		assert.Equal(t, 6, reg.GetParams()["max_depth"])
	})

	t.Run("values are coerced", func(t *testing.T) {
		reg := NewRegressor(LightGBM)
		require.NoError(t, reg.SetParams(map[string]interface{}{"n_estimators": 500.0, "learning_rate": 1}))
		assert.Equal(t, 500, reg.GetParams()["n_estimators"])
		assert.Equal(t, 1.0, reg.GetParams()["learning_rate"])
	})

	t.Run("wrong type", func(t *testing.T) {
		reg := NewRegressor(CatBoost)
		err := reg.SetParams(map[string]interface{}{"depth": "deep"})
		assert.Error(t, err)
	})

	t.Run("objective mismatch fails at fit", func(t *testing.T) {
		X, y := linearData(30, 0.1, 16)
		reg := NewRegressor(XGBoost)
		require.NoError(t, reg.SetParams(map[string]interface{}{"objective": "binary:logistic"}))
		assert.Error(t, reg.Fit(X, y))
	})
}

func TestCloneIsUnfitted(t *testing.T) {
	X, y := linearData(50, 0.1, 17)
	reg := NewRegressor(LightGBM)
	require.NoError(t, reg.SetParams(map[string]interface{}{"n_estimators": 5, "min_child_samples": 2}))
	require.NoError(t, reg.Fit(X, y))

	clone := reg.Clone().(*Regressor)
	assert.False(t, clone.State.IsFitted())
	assert.Equal(t, reg.GetParams(), clone.GetParams())

	clone.Params["n_estimators"] = 7
	assert.Equal(t, 5, reg.Params["n_estimators"])
}

func TestEstimatorGobRoundTrip(t *testing.T) {
	X, y := blobs(60, []float64{0, 1}, 18)
	clf := NewClassifier(CatBoost, false)
	require.NoError(t, clf.SetParams(small(CatBoost)))
	require.NoError(t, clf.Fit(X, y))

	var buf bytes.Buffer
	var est model.Estimator = clf
	require.NoError(t, model.SaveModelToWriter(&est, &buf))

	var loaded model.Estimator
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	restored, ok := loaded.(*Classifier)
	require.True(t, ok)
	assert.True(t, restored.State.IsFitted())

	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}
