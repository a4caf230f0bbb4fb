// Package artifact stores fitted estimators and tuned parameters as gob
// envelopes under the models directory.
package artifact

import (
	"fmt"

	"github.com/YuminosukeSato/conformboost/core/model"
	"github.com/YuminosukeSato/conformboost/pkg/errors"
	"github.com/YuminosukeSato/conformboost/pkg/log"
	"github.com/YuminosukeSato/conformboost/sklearn/boosting"
)

// Envelope is the persisted model artifact.
type Envelope struct {
	Family      boosting.Family
	ProblemType boosting.ProblemType
	Estimator   model.Estimator
}

// ParamsEnvelope is the persisted tuner output.
type ParamsEnvelope struct {
	Family      boosting.Family
	ProblemType boosting.ProblemType
	Params      boosting.Params
}

// SaveModel writes env to path.
func SaveModel(path string, env *Envelope) error {
	if env == nil || env.Estimator == nil {
		return errors.NewArtifactError(path, errors.New("nothing to save: estimator is nil"))
	}
	if err := model.SaveModel(env, path); err != nil {
		return err
	}
	log.GetLoggerWithName("artifact").Info("model saved",
		log.PathKey, path,
		log.ModelFamilyKey, string(env.Family),
		log.ProblemTypeKey, string(env.ProblemType),
	)
	return nil
}

// LoadModel reads the envelope at path. A missing file or an envelope
// without an estimator is an ArtifactError.
func LoadModel(path string) (*Envelope, error) {
	var env Envelope
	if err := model.LoadModel(&env, path); err != nil {
		return nil, err
	}
	if env.Estimator == nil {
		return nil, errors.NewArtifactError(path, errors.New("envelope holds no estimator"))
	}
	return &env, nil
}

// Check returns an ArtifactError when env was not produced for family f and
// problem p.
func (env *Envelope) Check(path string, f boosting.Family, p boosting.ProblemType) error {
	if env.Family != f || env.ProblemType != p {
		return errors.NewArtifactError(path, fmt.Errorf("artifact holds %s/%s, want %s/%s",
			env.Family, env.ProblemType, f, p))
	}
	return nil
}

// SaveParams writes the tuned parameters to path.
func SaveParams(path string, env *ParamsEnvelope) error {
	if env == nil {
		return errors.NewArtifactError(path, errors.New("nothing to save: params are nil"))
	}
	if err := model.SaveModel(env, path); err != nil {
		return err
	}
	log.GetLoggerWithName("artifact").Info("params saved", log.PathKey, path, "params", len(env.Params))
	return nil
}

// LoadParams reads the parameter envelope at path.
func LoadParams(path string) (*ParamsEnvelope, error) {
	var env ParamsEnvelope
	if err := model.LoadModel(&env, path); err != nil {
		return nil, err
	}
	if env.Params == nil {
		env.Params = boosting.Params{}
	}
	return &env, nil
}
