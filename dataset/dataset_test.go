package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader("id,a,b,TARGET\n1,0.5,2,1\n2,1.5,True,0\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "a", "b", "TARGET"}, f.Header)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{"a", "b"}, f.FeatureNames())
	assert.Equal(t, []float64{2, 1.5, 1, 0}, f.Rows[1])

	X, y, err := f.XY()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 2}, mat.Row(nil, 0, X))
	assert.Equal(t, []float64{1, 0}, mat.Col(nil, 0, y))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"non numeric", "a,TARGET\nx,1\n"},
		{"duplicate column", "a,a\n1,2\n"},
		{"ragged row", "a,b\n1,2\n3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFeaturesAlignByName(t *testing.T) {
	train, err := Parse(strings.NewReader("a,b,TARGET\n1,2,0\n"))
	require.NoError(t, err)
	test, err := Parse(strings.NewReader("id,b,a\n7,20,10\n"))
	require.NoError(t, err)

	X, err := test.Features(train.FeatureNames())
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, mat.Row(nil, 0, X))

	_, err = test.Target()
	assert.Error(t, err)

	short, err := Parse(strings.NewReader("id,a\n7,10\n"))
	require.NoError(t, err)
	_, err = short.Features(train.FeatureNames())
	assert.ErrorContains(t, err, `feature column "b" not found`)

	_, err = train.Features([]string{"TARGET"})
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	a, err := Parse(strings.NewReader("x,TARGET\n1,0\n"))
	require.NoError(t, err)
	b, err := Parse(strings.NewReader("TARGET,x\n1,2\n"))
	require.NoError(t, err)

	c, err := a.Concat(b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {2, 1}}, c.Rows)

	other, err := Parse(strings.NewReader("y,TARGET\n1,0\n"))
	require.NoError(t, err)
	_, err = a.Concat(other)
	assert.Error(t, err)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	var ae *errors.ArtifactError
	assert.True(t, errors.As(err, &ae))
}

func TestIntervalsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", IntervalFileName("regression", "xgboost", "house"))
	assert.Equal(t, "regression_xgboost_house_intervals.csv", filepath.Base(path))

	bounds := mat.NewDense(3, 2, []float64{-1.5, 2.25, 0, 1, 3, 4})
	require.NoError(t, WriteIntervals(path, bounds))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "lower_bound,upper_bound\n-1.5,2.25\n0,1\n3,4\n", string(raw))

	lower, upper, err := ReadIntervals(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.5, 0, 3}, lower)
	assert.Equal(t, []float64{2.25, 1, 4}, upper)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, WriteIntervals(path, mat.NewDense(1, 3, nil)))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "train.csv")
	f := &Frame{
		Header: []string{"id", "x", "TARGET"},
		Rows:   [][]float64{{1, 0.25, 3}, {2, -1, 0}},
	}
	require.NoError(t, f.WriteCSV(path))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, f.Header, got.Header)
	assert.Equal(t, f.Rows, got.Rows)
}

func TestWriteCSVLeavesNothingOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	// 一時ファイルの位置を空ディレクトリで塞いで書き込みを失敗させる
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	f := &Frame{Header: []string{"lower_bound", "upper_bound"}, Rows: [][]float64{{0, 1}}}
	err := f.WriteCSV(path)
	var ae *errors.ArtifactError
	require.True(t, errors.As(err, &ae))

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
