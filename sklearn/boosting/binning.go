package boosting

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/core/parallel"
)

// binMapper maps raw feature values to histogram bins. Bin k holds values
// v with bounds[k-1] < v <= bounds[k]; the last bin is open above.
type binMapper struct {
	bounds []float64
}

// newBinMapper builds at most maxBin bins. With few distinct values every
// value gets its own bin, otherwise bins hold roughly equal row counts.
func newBinMapper(values []float64, maxBin int) binMapper {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	distinct := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}

	if len(distinct) <= maxBin {
		bounds := make([]float64, 0, len(distinct)-1)
		for i := 1; i < len(distinct); i++ {
			bounds = append(bounds, (distinct[i-1]+distinct[i])/2)
		}
		return binMapper{bounds: bounds}
	}

	bounds := make([]float64, 0, maxBin-1)
	perBin := float64(len(sorted)) / float64(maxBin)
	for k := 1; k < maxBin; k++ {
		i := int(float64(k) * perBin)
		if i <= 0 || i >= len(sorted) || sorted[i-1] == sorted[i] {
			continue
		}
		b := (sorted[i-1] + sorted[i]) / 2
		if len(bounds) == 0 || b > bounds[len(bounds)-1] {
			bounds = append(bounds, b)
		}
	}
	return binMapper{bounds: bounds}
}

func (m binMapper) numBins() int {
	return len(m.bounds) + 1
}

func (m binMapper) bin(v float64) int {
	return sort.SearchFloat64s(m.bounds, v)
}

// threshold returns the split value that sends bins <= k to the left.
func (m binMapper) threshold(k int) float64 {
	return m.bounds[k]
}

// binnedData is the column-major binned training matrix.
type binnedData struct {
	mappers []binMapper
	bins    [][]uint16
	rows    int
}

func binData(X mat.Matrix, maxBin int) *binnedData {
	rows, cols := X.Dims()
	d := &binnedData{
		mappers: make([]binMapper, cols),
		bins:    make([][]uint16, cols),
		rows:    rows,
	}
	parallel.ParallelizeWithThreshold(cols, 4, func(start, end int) {
		col := make([]float64, rows)
		for j := start; j < end; j++ {
			mat.Col(col, j, X)
			m := newBinMapper(col, maxBin)
			binned := make([]uint16, rows)
			for i, v := range col {
				binned[i] = uint16(m.bin(v))
			}
			d.mappers[j] = m
			d.bins[j] = binned
		}
	})
	return d
}
