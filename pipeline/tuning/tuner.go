// Package tuning runs the randomized hyperparameter search of one model
// family for one problem type.
package tuning

import (
	"context"
	"maps"
	"time"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/dataset"
	"github.com/YuminosukeSato/conformboost/pkg/log"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
	ms "github.com/YuminosukeSato/conformboost/sklearn/model_selection"
)

// Tuner searches the parameter space of Family for ProblemType.
type Tuner struct {
	Family      boosting.Family
	ProblemType boosting.ProblemType
	Seed        uint64
	// NJobs bounds concurrent fits; <= 0 uses every CPU.
	NJobs int
	// NIter overrides the number of draws of the family when > 0.
	NIter int
	// BaseParams are fixed estimator parameters applied before the search.
	// Search-space names in BaseParams are overridden by the draws.
	BaseParams boosting.Params

	search *ms.RandomizedSearchCV
}

// New parses family and problem type. Unknown names fail here, before any
// data is read.
func New(family, problemType string) (*Tuner, error) {
	f, err := boosting.ParseFamily(family)
	if err != nil {
		return nil, err
	}
	p, err := boosting.ParseProblemType(problemType)
	if err != nil {
		return nil, err
	}
	return &Tuner{Family: f, ProblemType: p}, nil
}

// SearchSpace returns the parameter names Tune reports, sorted.
func (t *Tuner) SearchSpace() []string {
	return planFor(t.Family, t.ProblemType).space.Names()
}

// Tune runs the search on frame and returns the best value of every
// search-space parameter.
func (t *Tuner) Tune(ctx context.Context, frame *dataset.Frame) (boosting.Params, error) {
	f, err := boosting.ParseFamily(string(t.Family))
	if err != nil {
		return nil, err
	}
	p, err := boosting.ParseProblemType(string(t.ProblemType))
	if err != nil {
		return nil, err
	}
	pl := planFor(f, p)

	X, y, err := frame.XY()
	if err != nil {
		return nil, err
	}

	est, err := boosting.New(f, p)
	if err != nil {
		return nil, err
	}
	base := boosting.Params{pl.seedParam: int(t.Seed)}
	maps.Copy(base, pl.fixed)
	maps.Copy(base, t.BaseParams)
	if err := est.SetParams(base); err != nil {
		return nil, err
	}

	nIter := pl.nIter
	if t.NIter > 0 {
		nIter = t.NIter
	}
	search := ms.NewRandomizedSearchCV(est, pl.space, nIter)
	search.CV = pl.splitter(p, t.Seed)
	search.Scoring = pl.scoring
	search.ErrorScore = pl.errorScore
	search.RandomSeed = t.Seed
	search.NJobs = t.NJobs
	search.Refit = pl.refit

	logger := log.GetLoggerWithName("tuning").With(
		log.ModelFamilyKey, string(f),
		log.ProblemTypeKey, string(p),
	)
	logger.Info("Tuning started", log.SamplesKey, frame.Len(), log.CandidatesKey, nIter)
	start := time.Now()
	if err := search.Fit(ctx, X, y); err != nil {
		return nil, err
	}
	t.search = search

	best := make(boosting.Params, len(pl.space))
	for _, name := range pl.space.Names() {
		best[name] = search.BestParams[name]
	}
	logger.Info("Tuning finished",
		log.ScoreKey, search.BestScore,
		log.HyperParamsKey, map[string]any(best),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return best, nil
}

// Estimator returns the estimator refitted on all data with the best
// parameters. Only catboost keeps one; it is nil for the other families
// and before Tune.
func (t *Tuner) Estimator() model.Tunable {
	if t.search == nil {
		return nil
	}
	return t.search.BestEstimator
}

// Results returns the per-draw results of the last Tune call.
func (t *Tuner) Results() *ms.CVResults {
	if t.search == nil {
		return nil
	}
	return t.search.CVResults
}
