package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Distribution is a source of values for one hyperparameter.
type Distribution interface {
	Sample(src rand.Source) any
}

// Uniform is the continuous uniform distribution on [Loc, Loc+Scale),
// parameterized like scipy.stats.uniform.
type Uniform struct {
	Loc   float64
	Scale float64
}

// Sample draws a float64.
func (u Uniform) Sample(src rand.Source) any {
	return distuv.Uniform{Min: u.Loc, Max: u.Loc + u.Scale, Src: src}.Rand()
}

func (u Uniform) String() string {
	return fmt.Sprintf("uniform(%g, %g)", u.Loc, u.Loc+u.Scale)
}

// RandInt is the discrete uniform distribution on [Low, High).
type RandInt struct {
	Low  int
	High int
}

// Sample draws an int.
func (r RandInt) Sample(src rand.Source) any {
	return r.Low + rand.New(src).IntN(r.High-r.Low)
}

func (r RandInt) String() string {
	return fmt.Sprintf("randint(%d, %d)", r.Low, r.High)
}

// Choice picks one of Values with equal probability.
type Choice struct {
	Values []any
}

// Ints builds a Choice over int values.
func Ints(values ...int) Choice {
	c := Choice{Values: make([]any, len(values))}
	for i, v := range values {
		c.Values[i] = v
	}
	return c
}

// Floats builds a Choice over float64 values.
func Floats(values ...float64) Choice {
	c := Choice{Values: make([]any, len(values))}
	for i, v := range values {
		c.Values[i] = v
	}
	return c
}

// Sample returns one of the values.
func (c Choice) Sample(src rand.Source) any {
	return c.Values[rand.New(src).IntN(len(c.Values))]
}

// ParamDistributions maps hyperparameter names to their distributions.
type ParamDistributions map[string]Distribution

// Validate rejects empty or degenerate distributions.
func (d ParamDistributions) Validate() error {
	if len(d) == 0 {
		return errors.NewValidationError("param_distributions", "must not be empty", nil)
	}
	for name, dist := range d {
		switch v := dist.(type) {
		case nil:
			return errors.NewValidationError(name, "distribution is nil", nil)
		case Uniform:
			if v.Scale <= 0 {
				return errors.NewValidationError(name, "uniform scale must be positive", v.Scale)
			}
		case RandInt:
			if v.High <= v.Low {
				return errors.NewValidationError(name, "randint high must exceed low", v.High)
			}
		case Choice:
			if len(v.Values) == 0 {
				return errors.NewValidationError(name, "choice needs at least one value", nil)
			}
		}
	}
	return nil
}

// Names returns the parameter names sorted.
func (d ParamDistributions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SampleParams draws nIter candidate parameter sets. Parameters are sampled
// in name order from one seeded stream, so a seed fixes the candidates.
func SampleParams(d ParamDistributions, nIter int, seed uint64) ([]map[string]any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if nIter <= 0 {
		return nil, errors.NewValidationError("n_iter", "must be positive", nIter)
	}

	src := rand.NewPCG(seed, seed^0x5851f42d4c957f2d)
	names := d.Names()
	candidates := make([]map[string]any, nIter)
	for i := range candidates {
		params := make(map[string]any, len(names))
		for _, name := range names {
			params[name] = d[name].Sample(src)
		}
		candidates[i] = params
	}
	return candidates, nil
}
