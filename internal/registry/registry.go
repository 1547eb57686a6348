// Package registry holds the loaded model entries for the lifetime of the
// process. The mapping is populated once at startup and read-only from
// then on; per-request resolution is a pure map lookup.
package registry

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"modelserve/internal/artifact"
	"modelserve/internal/cfg"
	"modelserve/internal/model"
)

type Registry struct {
	models map[string]*model.Model
}

// New loads every configured (name, version) pair. Any entry that fails
// to load aborts construction: a configured model must never surface as
// a runtime not-found.
func New(configs []cfg.ModelConfig) (*Registry, error) {
	models := make(map[string]*model.Model, len(configs))

	for _, mc := range configs {
		m, err := load(mc)
		if err != nil {
			return nil, fmt.Errorf("load model %s/%s: %w", mc.Name, mc.Version, err)
		}
		models[key(mc.Name, mc.Version)] = m
		log.Info().
			Str("model", mc.Name).
			Str("version", mc.Version).
			Str("type", mc.Type).
			Str("flavor", mc.Flavor).
			Msg("model loaded")
	}

	return &Registry{models: models}, nil
}

// Resolve looks up a model by name and version.
func (r *Registry) Resolve(name, version string) (*model.Model, bool) {
	m, ok := r.models[key(name, version)]
	return m, ok
}

// Len reports how many entries the registry holds.
func (r *Registry) Len() int { return len(r.models) }

func load(mc cfg.ModelConfig) (*model.Model, error) {
	pred, err := artifact.Load(mc.ArtifactURI, mc.Flavor)
	if err != nil {
		return nil, err
	}

	var explainer model.Explainer
	if mc.ExplainerURI != "" {
		explainer, err = artifact.LoadExplainer(mc.ExplainerURI)
		if err != nil {
			return nil, err
		}
	}

	return &model.Model{
		ID:        model.NewID(mc.Name, mc.Version),
		Name:      mc.Name,
		Version:   mc.Version,
		Type:      model.Type(mc.Type),
		Threshold: mc.Threshold,
		Labels:    mc.Labels,
		Features:  mc.Features,
		Artifact:  pred,
		Explainer: explainer,
	}, nil
}

func key(name, version string) string {
	return name + "/" + version
}
