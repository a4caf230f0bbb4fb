package dataset

import (
	"bufio"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Interval file columns.
const (
	LowerColumn = "lower_bound"
	UpperColumn = "upper_bound"
)

// IntervalFileName is {problem}_{model}_{dataset}_intervals.csv.
func IntervalFileName(problemType, model, dataset string) string {
	return problemType + "_" + model + "_" + dataset + "_intervals.csv"
}

// WriteIntervals writes an (n, 2) matrix of bounds as a lower_bound,
// upper_bound CSV. The file is replaced atomically.
func WriteIntervals(path string, bounds mat.Matrix) error {
	rows, cols := bounds.Dims()
	if cols != 2 {
		return errors.NewDimensionError("WriteIntervals", 2, cols, 1)
	}
	f := &Frame{Header: []string{LowerColumn, UpperColumn}, Rows: make([][]float64, rows)}
	for i := range f.Rows {
		f.Rows[i] = []float64{bounds.At(i, 0), bounds.At(i, 1)}
	}
	return f.WriteCSV(path)
}

// ReadIntervals loads a file written by WriteIntervals.
func ReadIntervals(path string) (lower, upper []float64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewArtifactError(path, err)
	}
	defer file.Close()

	f, err := Parse(bufio.NewReader(file))
	if err != nil {
		return nil, nil, errors.NewArtifactError(path, err)
	}
	if len(f.Header) != 2 || f.Header[0] != LowerColumn || f.Header[1] != UpperColumn {
		return nil, nil, errors.NewArtifactError(path,
			errors.Newf("expected columns %s,%s", LowerColumn, UpperColumn))
	}
	lower = make([]float64, f.Len())
	upper = make([]float64, f.Len())
	for i, row := range f.Rows {
		lower[i], upper[i] = row[0], row[1]
	}
	return lower, upper, nil
}
