package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Splitter yields train/test index pairs for cross-validation.
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold is one train/test partition of the row indices.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits rows into NSplits consecutive folds. The first
// n_samples % NSplits folds get one extra row.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if nSamples < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have number of splits greater than the number of samples")
	}

	indices := identity(nSamples)
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	folds := make([]Fold, kf.NSplits)
	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])
		sort.Ints(test)
		folds[i] = Fold{TrainIndices: complement(nSamples, test), TestIndices: test}
		current += testSize
	}
	return folds, nil
}

// StratifiedKFold keeps the class proportions of y in every fold.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a stratified splitter. nSplits below 2 falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split assigns consecutive chunks of each class to the folds.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required")
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}
	if nSamples < skf.NSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			"cannot have number of splits greater than the number of samples")
	}

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	var r *rand.Rand
	if skf.Shuffle {
		r = rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
	}

	tests := make([][]int, skf.NSplits)
	// Extra rows of a class go to the folds after those that took the
	// extras of the previous class.
	offset := 0
	for _, label := range labels {
		indices := classIndices[label]
		if r != nil {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for k := 0; k < skf.NSplits; k++ {
			fold := (k + offset) % skf.NSplits
			testSize := foldSize
			if k < remainder {
				testSize++
			}
			tests[fold] = append(tests[fold], indices[current:current+testSize]...)
			current += testSize
		}
		offset = (offset + remainder) % skf.NSplits
	}

	folds := make([]Fold, skf.NSplits)
	for i, test := range tests {
		sort.Ints(test)
		folds[i] = Fold{TrainIndices: complement(nSamples, test), TestIndices: test}
	}
	return folds, nil
}

// ShuffleSplit is a single shuffled train/test partition.
type ShuffleSplit struct {
	TestSize   float64
	RandomSeed uint64
}

// NewShuffleSplit creates a splitter holding out testSize of the rows.
func NewShuffleSplit(testSize float64, randomSeed uint64) *ShuffleSplit {
	return &ShuffleSplit{TestSize: testSize, RandomSeed: randomSeed}
}

// GetNSplits returns 1.
func (ss *ShuffleSplit) GetNSplits() int {
	return 1
}

// Split returns one fold whose test part is ceil(TestSize*n) shuffled rows.
func (ss *ShuffleSplit) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	train, test, err := shuffledSplit(nSamples, ss.TestSize, ss.RandomSeed)
	if err != nil {
		return nil, err
	}
	sort.Ints(train)
	sort.Ints(test)
	return []Fold{{TrainIndices: train, TestIndices: test}}, nil
}

// StratifiedShuffleSplit is a single shuffled partition that holds out
// round(TestSize*n_c) rows of every class c, at least one and never all.
type StratifiedShuffleSplit struct {
	TestSize   float64
	RandomSeed uint64
}

// NewStratifiedShuffleSplit creates a stratified holdout splitter.
func NewStratifiedShuffleSplit(testSize float64, randomSeed uint64) *StratifiedShuffleSplit {
	return &StratifiedShuffleSplit{TestSize: testSize, RandomSeed: randomSeed}
}

// GetNSplits returns 1.
func (sss *StratifiedShuffleSplit) GetNSplits() int {
	return 1
}

// Split returns one fold with every class present on both sides.
func (sss *StratifiedShuffleSplit) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if sss.TestSize <= 0 || sss.TestSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", sss.TestSize)
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedShuffleSplit.Split", "y is required")
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedShuffleSplit.Split", nSamples, yRows, 0)
	}

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label, indices := range classIndices {
		if len(indices) < 2 {
			return nil, errors.NewValueError("StratifiedShuffleSplit.Split",
				"the least populated class in y has only 1 member")
		}
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	r := rand.New(rand.NewPCG(sss.RandomSeed, sss.RandomSeed))
	var train, test []int
	for _, label := range labels {
		indices := classIndices[label]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTest := int(math.Round(sss.TestSize * float64(len(indices))))
		nTest = max(1, min(nTest, len(indices)-1))
		test = append(test, indices[:nTest]...)
		train = append(train, indices[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return []Fold{{TrainIndices: train, TestIndices: test}}, nil
}

func shuffledSplit(nSamples int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(nSamples)))
	if nTest >= nSamples {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"the resulting train set would be empty")
	}

	indices := identity(nSamples)
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices[nTest:], indices[:nTest], nil
}

// TrainTestSplit shuffles the rows with seed and holds out
// ceil(testSize*n) of them as the test split.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed uint64) (xTrain, xTest, yTrain, yTest *mat.Dense, err error) {
	nSamples, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}
	train, test, err := shuffledSplit(nSamples, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return Rows(X, train), Rows(X, test), Rows(y, train), Rows(y, test), nil
}

// Rows copies the given rows of m into a new matrix, in index order.
func Rows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	row := make([]float64, cols)
	for i, idx := range indices {
		mat.Row(row, idx, m)
		out.SetRow(i, row)
	}
	return out
}

func identity(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// complement returns [0, n) minus the sorted indices in test.
func complement(n int, test []int) []int {
	train := make([]int, 0, n-len(test))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(test) && test[j] == i {
			j++
			continue
		}
		train = append(train, i)
	}
	return train
}
