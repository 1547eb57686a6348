// Package model defines the domain entities of the prediction-serving
// pipeline: the Model entry held by the registry, the Prediction produced
// per request, and the explanation records attached to it.
package model

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Type tags a model as classification or regression. The inference engine
// dispatches on this tag, making its branch contract exhaustive.
type Type string

const (
	Classification Type = "classification"
	Regression     Type = "regression"
)

// Predictor is the invokable artifact behind a Model entry.
type Predictor interface {
	Predict(features []float64) (float64, error)
}

// ProbabilityPredictor is implemented by artifacts that can report class
// probabilities. Capability is detected by type assertion at inference time.
type ProbabilityPredictor interface {
	Predictor
	PredictProba(features []float64) ([]float64, error)
}

// Explainer produces one attribution row per output label.
type Explainer interface {
	Explain(features []float64) ([][]float64, error)
}

// Threshold maps a classification probability to a label. Exact equality
// with Value is a distinct outcome, not folded into either branch.
type Threshold struct {
	Value float64 `yaml:"value" json:"value"`
	Above string  `yaml:"above" json:"above"`
	Equal string  `yaml:"equal" json:"equal"`
	Below string  `yaml:"below" json:"below"`
}

// Apply resolves a probability to a label with a three-way comparison.
func (t Threshold) Apply(p float64) string {
	switch {
	case p > t.Value:
		return t.Above
	case p == t.Value:
		return t.Equal
	default:
		return t.Below
	}
}

// Model is a registry entry for one (name, version) pair. Entries are
// built once at startup and never mutated afterwards, so they are safe
// for concurrent reads.
type Model struct {
	ID        string
	Name      string
	Version   string
	Type      Type
	Threshold *Threshold // classification only
	Labels    []string   // classification only, ordered
	Features  []string   // declared input order for vectorization

	Artifact  Predictor
	Explainer Explainer
}

// NewID derives the model identifier from (name, version). It is a pure
// function of the pair, which is what makes the persistence-side upsert
// deduplication possible.
func NewID(name, version string) string {
	sum := md5.Sum([]byte(name + version))
	return hex.EncodeToString(sum[:])
}

// Vectorize orders the input mapping into the model's declared feature
// order. Names missing from the input contribute zero; names are not
// validated against the declared schema. Models without a declared order
// fall back to sorted input keys so the vector is at least deterministic.
func (m *Model) Vectorize(inputs map[string]float64) []float64 {
	names := m.Features
	if len(names) == 0 {
		names = make([]string, 0, len(inputs))
		for k := range inputs {
			names = append(names, k)
		}
		sort.Strings(names)
	}

	vec := make([]float64, len(names))
	for i, name := range names {
		vec[i] = inputs[name]
	}
	return vec
}

// FeatureNames returns the names Vectorize will use, in order.
func (m *Model) FeatureNames(inputs map[string]float64) []string {
	if len(m.Features) > 0 {
		return m.Features
	}
	names := make([]string, 0, len(inputs))
	for k := range inputs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Shap is a per-label attribution record. A nil label marks the single
// unlabeled record attached for regression and label-less models.
type Shap struct {
	Label  *string            `json:"label"`
	Values map[string]float64 `json:"shap"`
}

// Prediction is the unit of work flowing through the pipeline. After
// persistence the instance returned to the caller is a re-read of the
// stored row, not the in-flight object.
type Prediction struct {
	ID          string
	Inputs      map[string]float64
	Value       Value
	Probability *float64
	Threshold   *float64
	Actual      *string
	ShapValues  []Shap
	Metadata    map[string]any
	Model       *Model
	Created     time.Time
	Updated     time.Time
}

// NewPrediction creates a prediction with a fresh random identifier.
func NewPrediction(inputs map[string]float64) *Prediction {
	id := uuid.New()
	return &Prediction{
		ID:     hex.EncodeToString(id[:]),
		Inputs: inputs,
	}
}
