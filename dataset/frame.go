// Package dataset loads the tabular CSV inputs of the pipeline and writes
// interval predictions.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Reserved column names. Neither is ever used as a feature.
const (
	TargetColumn = "TARGET"
	IDColumn     = "id"
)

// Frame is a header plus numeric rows.
type Frame struct {
	Header []string
	Rows   [][]float64
}

// ReadCSV loads a frame from a CSV file with a header line.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewArtifactError(path, err)
	}
	defer file.Close()

	f, err := Parse(bufio.NewReader(file))
	if err != nil {
		return nil, errors.NewArtifactError(path, err)
	}
	return f, nil
}

// Parse reads CSV with a header line. Every cell must be numeric; "True" and
// "False" are read as 1 and 0.
func Parse(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewValueError("Parse", "missing header line")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	f := &Frame{Header: make([]string, len(header))}
	for i, h := range header {
		f.Header[i] = strings.TrimSpace(h)
	}
	if dup := firstDuplicate(f.Header); dup != "" {
		return nil, errors.NewValueError("Parse", fmt.Sprintf("duplicate column %q", dup))
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read line %d", line)
		}
		row := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.NewValueError("Parse",
					fmt.Sprintf("line %d, column %q: %q is not numeric", line, f.Header[j], cell))
			}
			row[j] = v
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// WriteCSV writes the frame with its header to path. Parent directories are
// created and the file is replaced atomically, so a failed write leaves no
// partial output.
func (f *Frame) WriteCSV(path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(f.Header); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(f.Header))
	for i, row := range f.Rows {
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec[:len(row)]); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewArtifactError(path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(tmp)
		return errors.NewArtifactError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewArtifactError(path, err)
	}
	return nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch cell {
	case "True", "true":
		return 1, nil
	case "False", "false":
		return 0, nil
	}
	return strconv.ParseFloat(cell, 64)
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return ""
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool {
	return slices.Contains(f.Header, name)
}

// FeatureNames returns the header without TARGET and id, in file order.
func (f *Frame) FeatureNames() []string {
	names := make([]string, 0, len(f.Header))
	for _, h := range f.Header {
		if h != TargetColumn && h != IDColumn {
			names = append(names, h)
		}
	}
	return names
}

// Concat appends the rows of other, matching columns by name. Both frames
// must have the same set of columns.
func (f *Frame) Concat(other *Frame) (*Frame, error) {
	if len(f.Header) != len(other.Header) {
		return nil, errors.NewDimensionError("Concat", len(f.Header), len(other.Header), 1)
	}
	pos := make([]int, len(f.Header))
	for i, name := range f.Header {
		j := slices.Index(other.Header, name)
		if j < 0 {
			return nil, errors.NewValueError("Concat", fmt.Sprintf("column %q missing from second frame", name))
		}
		pos[i] = j
	}

	out := &Frame{Header: slices.Clone(f.Header), Rows: make([][]float64, 0, f.Len()+other.Len())}
	out.Rows = append(out.Rows, f.Rows...)
	for _, row := range other.Rows {
		aligned := make([]float64, len(pos))
		for i, j := range pos {
			aligned[i] = row[j]
		}
		out.Rows = append(out.Rows, aligned)
	}
	return out, nil
}

// Target returns TARGET as an (n, 1) matrix.
func (f *Frame) Target() (*mat.Dense, error) {
	j := slices.Index(f.Header, TargetColumn)
	if j < 0 {
		return nil, errors.NewValueError("Target", "column TARGET not found")
	}
	if f.Len() == 0 {
		return nil, errors.NewModelError("Target", "empty data", errors.ErrEmptyData)
	}
	y := mat.NewDense(f.Len(), 1, nil)
	for i, row := range f.Rows {
		y.Set(i, 0, row[j])
	}
	return y, nil
}

// Features returns the columns named in order as an (n, len(order)) matrix.
// A missing column is an error.
func (f *Frame) Features(order []string) (*mat.Dense, error) {
	if len(order) == 0 {
		return nil, errors.NewValueError("Features", "no feature columns")
	}
	if f.Len() == 0 {
		return nil, errors.NewModelError("Features", "empty data", errors.ErrEmptyData)
	}
	pos := make([]int, len(order))
	for k, name := range order {
		if name == TargetColumn || name == IDColumn {
			return nil, errors.NewValueError("Features", fmt.Sprintf("%q is not a feature", name))
		}
		j := slices.Index(f.Header, name)
		if j < 0 {
			return nil, errors.NewValueError("Features", fmt.Sprintf("feature column %q not found", name))
		}
		pos[k] = j
	}
	X := mat.NewDense(f.Len(), len(order), nil)
	for i, row := range f.Rows {
		for k, j := range pos {
			X.Set(i, k, row[j])
		}
	}
	return X, nil
}

// XY returns the features of the frame in file order and TARGET.
func (f *Frame) XY() (*mat.Dense, *mat.Dense, error) {
	X, err := f.Features(f.FeatureNames())
	if err != nil {
		return nil, nil, err
	}
	y, err := f.Target()
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}
