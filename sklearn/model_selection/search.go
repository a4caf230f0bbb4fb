package model_selection

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/core/parallel"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
)

// CVResults holds one entry per sampled candidate.
type CVResults struct {
	Params        []map[string]any
	SplitScores   [][]float64
	MeanTestScore []float64
	StdTestScore  []float64
	// RankTestScore is 1 for the best candidate; failed candidates rank last.
	RankTestScore []int
	MeanFitTime   []time.Duration
}

// RandomizedSearchCV evaluates NIter parameter sets drawn from
// ParamDistributions by cross-validation and keeps the best one.
type RandomizedSearchCV struct {
	Estimator          model.Tunable
	ParamDistributions ParamDistributions
	NIter              int
	// CV defaults to 5 folds, stratified for classifiers.
	CV      Splitter
	Scoring string
	// ErrorScore is assigned to a fold whose fit or score failed. Ignored
	// when RaiseOnError is set.
	ErrorScore   float64
	RaiseOnError bool
	RandomSeed   uint64
	// NJobs bounds concurrent fits; <= 0 uses every CPU.
	NJobs int
	// Refit fits BestEstimator on the whole data after the search.
	Refit bool

	CVResults     *CVResults
	BestParams    map[string]any
	BestScore     float64
	BestIndex     int
	BestEstimator model.Tunable
}

// NewRandomizedSearchCV returns a search with the defaults of
// scikit-learn: 5-fold CV, estimator score, error_score=NaN, refit.
func NewRandomizedSearchCV(est model.Tunable, dists ParamDistributions, nIter int) *RandomizedSearchCV {
	return &RandomizedSearchCV{
		Estimator:          est,
		ParamDistributions: dists,
		NIter:              nIter,
		ErrorScore:         math.NaN(),
		Refit:              true,
		BestIndex:          -1,
	}
}

type foldData struct {
	xTrain, yTrain, xTest, yTest *mat.Dense
}

// Fit runs the search on X and y (a single target column).
func (s *RandomizedSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	if s.Estimator == nil {
		return errors.NewValueError("RandomizedSearchCV.Fit", "estimator is nil")
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return errors.NewModelError("RandomizedSearchCV.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomizedSearchCV.Fit", rows, yRows, 0)
	}

	scorer, err := GetScorer(s.Scoring)
	if err != nil {
		return err
	}
	candidates, err := SampleParams(s.ParamDistributions, s.NIter, s.RandomSeed)
	if err != nil {
		return err
	}

	splitter := s.CV
	if splitter == nil {
		if _, ok := s.Estimator.(model.Classifier); ok {
			splitter = NewStratifiedKFold(5, false, 0)
		} else {
			splitter = NewKFold(5, false, 0)
		}
	}
	folds, err := splitter.Split(X, y)
	if err != nil {
		return err
	}
	data := make([]foldData, len(folds))
	for i, f := range folds {
		data[i] = foldData{
			xTrain: Rows(X, f.TrainIndices), yTrain: Rows(y, f.TrainIndices),
			xTest: Rows(X, f.TestIndices), yTest: Rows(y, f.TestIndices),
		}
	}

	logger := log.GetLoggerWithName("model_selection")
	logger.Info("Starting randomized search",
		log.CandidatesKey, len(candidates),
		log.FoldsKey, len(folds),
		log.ScorerKey, scorerName(s.Scoring),
		log.SamplesKey, rows,
	)

	nFolds := len(folds)
	scores := make([][]float64, len(candidates))
	fitTimes := make([][]time.Duration, len(candidates))
	for c := range scores {
		scores[c] = make([]float64, nFolds)
		fitTimes[c] = make([]time.Duration, nFolds)
	}

	err = parallel.ForEach(ctx, len(candidates)*nFolds, s.NJobs, func(ctx context.Context, task int) error {
		c, f := task/nFolds, task%nFolds
		start := time.Now()
		score, err := fitAndScore(s.Estimator, candidates[c], data[f], scorer)
		fitTimes[c][f] = time.Since(start)
		if err != nil {
			if s.RaiseOnError {
				return err
			}
			logger.Warn("Fit failed; assigning error score",
				err,
				log.CandidateKey, c,
				"fold", f,
				log.ScoreKey, s.ErrorScore,
			)
			score = s.ErrorScore
		}
		scores[c][f] = score
		return nil
	})
	if err != nil {
		return err
	}

	s.CVResults = summarize(candidates, scores, fitTimes)
	best := -1
	for c, m := range s.CVResults.MeanTestScore {
		if !math.IsNaN(m) && (best < 0 || m > s.CVResults.MeanTestScore[best]) {
			best = c
		}
	}
	if best < 0 {
		return errors.NewValueError("RandomizedSearchCV.Fit", "all candidate fits failed")
	}
	s.BestIndex = best
	s.BestScore = s.CVResults.MeanTestScore[best]
	s.BestParams = candidates[best]

	for c := range candidates {
		logger.Debug("Candidate evaluated",
			log.CandidateKey, c,
			log.HyperParamsKey, candidates[c],
			log.ScoreKey, s.CVResults.MeanTestScore[c],
			"std_score", s.CVResults.StdTestScore[c],
			"rank", s.CVResults.RankTestScore[c],
		)
	}
	logger.Info("Randomized search finished",
		log.ScoreKey, s.BestScore,
		log.HyperParamsKey, s.BestParams,
	)

	if !s.Refit {
		return nil
	}
	est, err := withParams(s.Estimator, s.BestParams)
	if err != nil {
		return err
	}
	if err := errors.SafeExecute("RandomizedSearchCV.refit", func() error { return est.Fit(X, y) }); err != nil {
		return err
	}
	s.BestEstimator = est
	return nil
}

func withParams(base model.Tunable, params map[string]any) (model.Tunable, error) {
	est, ok := base.Clone().(model.Tunable)
	if !ok {
		return nil, errors.NewValueError("RandomizedSearchCV", "clone does not support parameter search")
	}
	if err := est.SetParams(params); err != nil {
		return nil, err
	}
	return est, nil
}

func fitAndScore(base model.Tunable, params map[string]any, d foldData, scorer ScorerFunc) (float64, error) {
	est, err := withParams(base, params)
	if err != nil {
		return 0, err
	}
	var score float64
	err = errors.SafeExecute("RandomizedSearchCV.fit", func() error {
		if err := est.Fit(d.xTrain, d.yTrain); err != nil {
			return err
		}
		var err error
		score, err = scorer(est, d.xTest, d.yTest)
		return err
	})
	return score, err
}

func summarize(candidates []map[string]any, scores [][]float64, fitTimes [][]time.Duration) *CVResults {
	n := len(candidates)
	res := &CVResults{
		Params:        candidates,
		SplitScores:   scores,
		MeanTestScore: make([]float64, n),
		StdTestScore:  make([]float64, n),
		RankTestScore: make([]int, n),
		MeanFitTime:   make([]time.Duration, n),
	}
	for c := range candidates {
		mean, variance := stat.PopMeanVariance(scores[c], nil)
		res.MeanTestScore[c] = mean
		res.StdTestScore[c] = math.Sqrt(variance)

		var total time.Duration
		for _, d := range fitTimes[c] {
			total += d
		}
		res.MeanFitTime[c] = total / time.Duration(len(fitTimes[c]))
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	means := res.MeanTestScore
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := means[order[a]], means[order[b]]
		if math.IsNaN(mb) {
			return !math.IsNaN(ma)
		}
		return ma > mb
	})
	// Ties share the smallest rank.
	for pos, c := range order {
		if pos > 0 && means[c] == means[order[pos-1]] {
			res.RankTestScore[c] = res.RankTestScore[order[pos-1]]
			continue
		}
		res.RankTestScore[c] = pos + 1
	}
	return res
}

func scorerName(name string) string {
	if name == "" {
		return "score"
	}
	return name
}
