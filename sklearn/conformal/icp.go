// Package conformal implements inductive conformal prediction (ICP) on top
// of any fitted estimator: intervals for regressors, prediction regions for
// classifiers.
package conformal

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// DefaultSignificance is the error rate of 95% intervals.
const DefaultSignificance = 0.05

func checkSignificance(significance float64) error {
	if significance <= 0 || significance >= 1 {
		return errors.NewValidationError("significance", "must be in (0, 1)", significance)
	}
	return nil
}

// IcpRegressor produces prediction intervals from a RegressorNc.
type IcpRegressor struct {
	Nc *RegressorNc
	// CalScores are the calibration scores sorted in descending order.
	CalScores []float64
}

// NewIcpRegressor wraps a regression nonconformity function.
func NewIcpRegressor(nc NonconformityFunction) (*IcpRegressor, error) {
	rnc, ok := nc.(*RegressorNc)
	if !ok {
		return nil, errors.NewValueError("NewIcpRegressor", "nonconformity function is not a regressor")
	}
	return &IcpRegressor{Nc: rnc}, nil
}

// Fit trains the underlying model and normalizer on the proper training set.
// It clears any previous calibration.
func (icp *IcpRegressor) Fit(X, y mat.Matrix) error {
	icp.CalScores = nil
	return icp.Nc.Fit(X, y)
}

// Calibrate scores the calibration set.
func (icp *IcpRegressor) Calibrate(X, y mat.Matrix) error {
	scores, err := calibrationScores(icp.Nc, X, y)
	if err != nil {
		return err
	}
	icp.CalScores = scores
	log.GetLoggerWithName("conformal").Debug("ICP calibrated",
		log.ModelNameKey, "IcpRegressor",
		log.OperationKey, log.OperationCalibrate,
		log.SamplesKey, len(scores),
	)
	return nil
}

// Predict returns an (n, 2) matrix of [lower, upper] bounds.
func (icp *IcpRegressor) Predict(X mat.Matrix, significance float64) (*mat.Dense, error) {
	if icp.CalScores == nil {
		return nil, errors.NewNotFittedError("IcpRegressor", "Predict")
	}
	if err := checkSignificance(significance); err != nil {
		return nil, err
	}
	return icp.Nc.Predict(X, icp.CalScores, significance)
}

// IcpClassifier produces prediction regions from a ClassifierNc.
type IcpClassifier struct {
	Nc        *ClassifierNc
	CalScores []float64
	// Smoothing breaks ties between test and calibration scores at random.
	Smoothing bool
	Seed      uint64
}

// NewIcpClassifier wraps a classification nonconformity function.
func NewIcpClassifier(nc NonconformityFunction) (*IcpClassifier, error) {
	cnc, ok := nc.(*ClassifierNc)
	if !ok {
		return nil, errors.NewValueError("NewIcpClassifier", "nonconformity function is not a classifier")
	}
	return &IcpClassifier{Nc: cnc}, nil
}

// Fit trains the underlying classifier and normalizer.
func (icp *IcpClassifier) Fit(X, y mat.Matrix) error {
	icp.CalScores = nil
	return icp.Nc.Fit(X, y)
}

// Calibrate scores the calibration set against its true labels.
func (icp *IcpClassifier) Calibrate(X, y mat.Matrix) error {
	scores, err := calibrationScores(icp.Nc, X, y)
	if err != nil {
		return err
	}
	icp.CalScores = scores
	log.GetLoggerWithName("conformal").Debug("ICP calibrated",
		log.ModelNameKey, "IcpClassifier",
		log.OperationKey, log.OperationCalibrate,
		log.SamplesKey, len(scores),
		log.ClassesKey, len(icp.Nc.Classes()),
	)
	return nil
}

// Classes returns the labels matching the columns of PValues and Predict.
func (icp *IcpClassifier) Classes() []float64 {
	return icp.Nc.Classes()
}

// PValues returns an (n, n_classes) matrix. Without smoothing the p-value
// of class c is (#{cal >= score(x, c)} + 1) / (n_cal + 1).
func (icp *IcpClassifier) PValues(X mat.Matrix) (*mat.Dense, error) {
	if icp.CalScores == nil {
		return nil, errors.NewNotFittedError("IcpClassifier", "PValues")
	}
	rows, _ := X.Dims()
	classes := icp.Nc.Classes()
	nCal := float64(len(icp.CalScores))
	var rng *rand.Rand
	if icp.Smoothing {
		rng = rand.New(rand.NewPCG(icp.Seed, icp.Seed))
	}

	p := mat.NewDense(rows, len(classes), nil)
	labels := make([]float64, rows)
	for j, c := range classes {
		for i := range labels {
			labels[i] = c
		}
		scores, err := icp.Nc.Score(X, labels)
		if err != nil {
			return nil, err
		}
		for i, s := range scores {
			greater, equal := countGreaterEqual(icp.CalScores, s)
			if rng != nil {
				p.Set(i, j, (float64(greater)+float64(equal+1)*rng.Float64())/(nCal+1))
			} else {
				p.Set(i, j, float64(greater+equal+1)/(nCal+1))
			}
		}
	}
	return p, nil
}

// Predict returns an (n, n_classes) matrix of region membership flags: 1
// when the p-value of the class exceeds significance, else 0.
func (icp *IcpClassifier) Predict(X mat.Matrix, significance float64) (*mat.Dense, error) {
	if err := checkSignificance(significance); err != nil {
		return nil, err
	}
	p, err := icp.PValues(X)
	if err != nil {
		return nil, err
	}
	p.Apply(func(_, _ int, v float64) float64 {
		if v > significance {
			return 1
		}
		return 0
	}, p)
	return p, nil
}

func calibrationScores(nc NonconformityFunction, X, y mat.Matrix) ([]float64, error) {
	rows, _ := X.Dims()
	if rows == 0 {
		return nil, errors.NewModelError("Calibrate", "empty calibration set", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return nil, errors.NewDimensionError("Calibrate", rows, yRows, 0)
	}
	scores, err := nc.Score(X, mat.Col(nil, 0, y))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	return scores, nil
}

// countGreaterEqual counts calibration scores (sorted descending) strictly
// above and equal to s.
func countGreaterEqual(desc []float64, s float64) (greater, equal int) {
	greater = sort.Search(len(desc), func(i int) bool { return desc[i] <= s })
	geq := sort.Search(len(desc), func(i int) bool { return desc[i] < s })
	return greater, geq - greater
}
