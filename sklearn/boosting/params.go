package boosting

import (
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Params maps hyperparameter names to values. Values are int, float64 or
// string depending on the parameter.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	return maps.Clone(p)
}

// Keys returns the parameter names sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type paramKind int

const (
	kindInt paramKind = iota
	kindFloat
	kindString
)

type paramSpec struct {
	kind paramKind
	def  any
}

// Parameter vocabularies. Objective defaults are filled per problem type.
var vocabularies = map[Family]map[string]paramSpec{
	XGBoost: {
		"n_estimators":     {kindInt, 100},
		"learning_rate":    {kindFloat, 0.3},
		"max_depth":        {kindInt, 6},
		"min_child_weight": {kindFloat, 1.0},
		"subsample":        {kindFloat, 1.0},
		"colsample_bytree": {kindFloat, 1.0},
		"reg_lambda":       {kindFloat, 1.0},
		"gamma":            {kindFloat, 0.0},
		"quantile_alpha":   {kindFloat, 0.5},
		"objective":        {kindString, ""},
		"random_state":     {kindInt, 0},
	},
	LightGBM: {
		"n_estimators":      {kindInt, 100},
		"learning_rate":     {kindFloat, 0.1},
		"num_leaves":        {kindInt, 31},
		"max_depth":         {kindInt, -1},
		"min_child_samples": {kindInt, 20},
		"min_child_weight":  {kindFloat, 1e-3},
		"subsample":         {kindFloat, 1.0},
		"colsample_bytree":  {kindFloat, 1.0},
		"reg_lambda":        {kindFloat, 0.0},
		"alpha":             {kindFloat, 0.9},
		"objective":         {kindString, ""},
		"random_state":      {kindInt, 0},
	},
	CatBoost: {
		"iterations":    {kindInt, 500},
		"learning_rate": {kindFloat, 0.03},
		"depth":         {kindInt, 6},
		"l2_leaf_reg":   {kindFloat, 3.0},
		"rsm":           {kindFloat, 1.0},
		"loss_function": {kindString, ""},
		"random_seed":   {kindInt, 0},
	},
}

// Objective parameter names and their per-problem defaults.
var objectiveParam = map[Family]string{
	XGBoost:  "objective",
	LightGBM: "objective",
	CatBoost: "loss_function",
}

var defaultObjectives = map[Family]map[ProblemType]string{
	XGBoost:  {Regression: "reg:squarederror", Classification: "binary:logistic", Multiclass: "multi:softprob"},
	LightGBM: {Regression: "regression", Classification: "binary", Multiclass: "multiclass"},
	CatBoost: {Regression: "RMSE", Classification: "Logloss", Multiclass: "MultiClass"},
}

// DefaultParams returns the full parameter set of family for problem.
func DefaultParams(f Family, p ProblemType) Params {
	params := Params{}
	for name, spec := range vocabularies[f] {
		params[name] = spec.def
	}
	params[objectiveParam[f]] = defaultObjectives[f][p]
	return params
}

// CatBoostQuantileLoss formats a catboost quantile loss_function.
func CatBoostQuantileLoss(alpha float64) string {
	return "Quantile:alpha=" + strconv.FormatFloat(alpha, 'g', -1, 64)
}

// validateParams checks names against the vocabulary of f and coerces
// values to the declared kind.
func validateParams(f Family, params Params) (Params, error) {
	vocab := vocabularies[f]
	out := make(Params, len(params))
	for name, value := range params {
		spec, ok := vocab[name]
		if !ok {
			return nil, errors.NewValidationError(name, fmt.Sprintf("unknown parameter for %s", f), value)
		}
		v, err := coerce(name, spec.kind, value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func coerce(name string, kind paramKind, value any) (any, error) {
	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		}
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case kindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
	}
	return nil, errors.NewValidationError(name, "wrong value type", value)
}

// objectiveFor maps a family objective name to the engine objective.
func objectiveFor(f Family, name string, params Params) (objective string, alpha float64, err error) {
	switch f {
	case XGBoost:
		switch name {
		case "reg:squarederror":
			return ObjectiveL2, 0, nil
		case "reg:quantileerror":
			return ObjectiveQuantile, params["quantile_alpha"].(float64), nil
		case "binary:logistic":
			return ObjectiveBinary, 0, nil
		case "multi:softprob", "multi:softmax":
			return ObjectiveMulticlass, 0, nil
		}
	case LightGBM:
		switch name {
		case "regression", "regression_l2", "l2":
			return ObjectiveL2, 0, nil
		case "quantile":
			return ObjectiveQuantile, params["alpha"].(float64), nil
		case "binary":
			return ObjectiveBinary, 0, nil
		case "multiclass", "softmax":
			return ObjectiveMulticlass, 0, nil
		}
	case CatBoost:
		loss, opts, _ := strings.Cut(name, ":")
		switch loss {
		case "RMSE":
			return ObjectiveL2, 0, nil
		case "Quantile":
			alpha = 0.5
			if opts != "" {
				key, val, ok := strings.Cut(opts, "=")
				if !ok || key != "alpha" {
					break
				}
				alpha, err = strconv.ParseFloat(val, 64)
				if err != nil {
					break
				}
			}
			return ObjectiveQuantile, alpha, nil
		case "Logloss":
			return ObjectiveBinary, 0, nil
		case "MultiClass":
			return ObjectiveMulticlass, 0, nil
		}
	}
	return "", 0, errors.NewValidationError(objectiveParam[f], "unsupported objective", name)
}

// engineConfig translates the family vocabulary into an engine Config.
func engineConfig(f Family, params Params, numClass int) (Config, error) {
	cfg := DefaultConfig()
	objective, alpha, err := objectiveFor(f, params[objectiveParam[f]].(string), params)
	if err != nil {
		return cfg, err
	}
	cfg.Objective = objective
	cfg.QuantileAlpha = alpha
	cfg.NumClass = numClass

	switch f {
	case XGBoost:
		cfg.Growth = DepthWise
		cfg.NumIterations = params["n_estimators"].(int)
		cfg.LearningRate = params["learning_rate"].(float64)
		cfg.MaxDepth = params["max_depth"].(int)
		cfg.MinSumHessian = params["min_child_weight"].(float64)
		cfg.MinDataInLeaf = 1
		cfg.Subsample = params["subsample"].(float64)
		cfg.ColsampleBytree = params["colsample_bytree"].(float64)
		cfg.Lambda = params["reg_lambda"].(float64)
		cfg.MinGainToSplit = params["gamma"].(float64)
		cfg.Seed = uint64(params["random_state"].(int))
	case LightGBM:
		cfg.Growth = LeafWise
		cfg.NumIterations = params["n_estimators"].(int)
		cfg.LearningRate = params["learning_rate"].(float64)
		cfg.NumLeaves = params["num_leaves"].(int)
		cfg.MaxDepth = params["max_depth"].(int)
		cfg.MinDataInLeaf = params["min_child_samples"].(int)
		cfg.MinSumHessian = params["min_child_weight"].(float64)
		cfg.Subsample = params["subsample"].(float64)
		cfg.ColsampleBytree = params["colsample_bytree"].(float64)
		cfg.Lambda = params["reg_lambda"].(float64)
		cfg.Seed = uint64(params["random_state"].(int))
	case CatBoost:
		cfg.Growth = Symmetric
		cfg.NumIterations = params["iterations"].(int)
		cfg.LearningRate = params["learning_rate"].(float64)
		cfg.MaxDepth = params["depth"].(int)
		cfg.Lambda = params["l2_leaf_reg"].(float64)
		cfg.ColsampleBytree = params["rsm"].(float64)
		cfg.MinDataInLeaf = 1
		cfg.MinSumHessian = 0
		cfg.Seed = uint64(params["random_seed"].(int))
	}
	return cfg, cfg.Validate()
}
