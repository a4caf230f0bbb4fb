package boosting

import (
	"strings"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

// Family is a gradient-boosting model family.
type Family string

const (
	XGBoost  Family = "xgboost"
	LightGBM Family = "lightgbm"
	CatBoost Family = "catboost"
)

// Families lists the supported families in a stable order.
var Families = []Family{XGBoost, LightGBM, CatBoost}

// ParseFamily normalizes s and rejects unknown names with an
// UnsupportedModelError.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case XGBoost, LightGBM, CatBoost:
		return f, nil
	default:
		return "", errors.NewUnsupportedModelError(s)
	}
}

// ProblemType selects regression, binary or multiclass classification.
type ProblemType string

const (
	Regression     ProblemType = "regression"
	Classification ProblemType = "classification"
	Multiclass     ProblemType = "multiclass"
)

// ProblemTypes lists the supported problem types in a stable order.
var ProblemTypes = []ProblemType{Regression, Classification, Multiclass}

// ParseProblemType normalizes s and rejects unknown names with an
// UnsupportedProblemTypeError.
func ParseProblemType(s string) (ProblemType, error) {
	p := ProblemType(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Regression, Classification, Multiclass:
		return p, nil
	default:
		return "", errors.NewUnsupportedProblemTypeError(s)
	}
}

// IsClassification reports whether p predicts class labels.
func (p ProblemType) IsClassification() bool {
	return p == Classification || p == Multiclass
}

func (f Family) modelName(p ProblemType) string {
	suffix := "Regressor"
	if p.IsClassification() {
		suffix = "Classifier"
	}
	switch f {
	case XGBoost:
		return "XGB" + suffix
	case LightGBM:
		return "LGBM" + suffix
	default:
		return "CatBoost" + suffix
	}
}
