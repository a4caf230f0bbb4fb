package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/config"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestBandValidates(t *testing.T) {
	_, err := Band("t", []float64{1}, []float64{1, 2}, nil)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = Band("t", nil, nil, nil)
	assert.Error(t, err)
}

func TestBandRendersPNG(t *testing.T) {
	p, err := Band("band", []float64{0, 1, 2}, []float64{2, 3, 4}, []float64{1, 2, 5})
	require.NoError(t, err)

	w, err := p.WriterTo(Width, Height, "png")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Model:       "lightgbm",
		ProblemType: "regression",
		Dataset:     "demo",
		ModelsDir:   dir,
		TestData:    filepath.Join(dir, "test.csv"),
	}
	bounds := mat.NewDense(3, 2, []float64{0, 1, 1, 2, 2, 3})
	require.NoError(t, dataset.WriteIntervals(cfg.IntervalsPath(), bounds))
	test := &dataset.Frame{
		Header: []string{"id", "x", dataset.TargetColumn},
		Rows:   [][]float64{{0, 1, 0.5}, {1, 2, 1.5}, {2, 3, 9}},
	}
	require.NoError(t, test.WriteCSV(cfg.TestData))

	path, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "regression_lightgbm_demo_intervals.png"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunMissingIntervals(t *testing.T) {
	cfg := &config.Config{Model: "xgboost", ProblemType: "regression", Dataset: "none", ModelsDir: t.TempDir()}
	_, err := Run(context.Background(), cfg)
	var ae *errors.ArtifactError
	assert.True(t, errors.As(err, &ae))
}
