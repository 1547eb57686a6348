// Package serving implements the prediction pipeline: model resolution,
// input validation, inference dispatch, best-effort enrichment, and
// transactional persistence, with failures translated into a typed
// error taxonomy at a single point.
package serving

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"modelserve/internal/enrich"
	"modelserve/internal/model"
	"modelserve/internal/registry"
	"modelserve/internal/storage"
)

// Telemetry is the narrow metrics surface the pipeline reports to.
type Telemetry interface {
	PredictionsInc()
	PredictionFailuresInc(reason string)
	InferenceDurationObserve(seconds float64)
	InferenceFailuresInc()
	EnrichmentDurationObserve(stage string, seconds float64)
	EnrichmentFailuresInc(stage string)
	PersistenceDurationObserve(seconds float64)
	PersistenceFailuresInc()
}

// Broadcaster receives every successfully persisted prediction.
type Broadcaster interface {
	PublishPrediction(p *model.Prediction)
}

// Service sequences the pipeline stages for one request at a time. It is
// safe for concurrent use: the registry is read-only, the projector
// cache serializes construction, and each request owns its transaction.
type Service struct {
	registry   *registry.Registry
	store      *storage.Store
	shaps      *storage.ShapStore
	projectors *enrich.ProjectorCache
	telemetry  Telemetry
	stream     Broadcaster
}

func New(reg *registry.Registry, store *storage.Store, shaps *storage.ShapStore,
	projectors *enrich.ProjectorCache, telemetry Telemetry) *Service {
	return &Service{
		registry:   reg,
		store:      store,
		shaps:      shaps,
		projectors: projectors,
		telemetry:  telemetry,
	}
}

// SetBroadcaster attaches an optional live feed for created predictions.
func (s *Service) SetBroadcaster(b Broadcaster) { s.stream = b }

// CreatePrediction runs the full pipeline. Stages run in strict order
// with no backward transitions; a failure in resolution, validation, or
// inference aborts with the matching taxonomy error, enrichment failures
// are logged and swallowed, and a persistence failure surfaces only
// after the transaction has been rolled back. The returned prediction is
// the post-persistence re-read with the enrichment annotations attached.
func (s *Service) CreatePrediction(ctx context.Context, name, version string, features map[string]any) (*model.Prediction, error) {
	// Resolving
	m, ok := s.registry.Resolve(name, version)
	if !ok {
		s.failure("model_not_found")
		return nil, &ModelNotFoundError{Name: name, Version: version}
	}

	// Validating
	if fieldErrors := ValidateInputs(features); len(fieldErrors) > 0 {
		s.failure("invalid_input")
		return nil, &InvalidInputError{Fields: fieldErrors}
	}

	p := model.NewPrediction(NumericInputs(features))
	p.Model = m

	// Inferring
	start := time.Now()
	err := Infer(m, p)
	s.observeInference(time.Since(start).Seconds())
	if err != nil {
		s.failure("inference")
		if s.telemetry != nil {
			s.telemetry.InferenceFailuresInc()
		}
		return nil, &InferenceError{Cause: err}
	}

	// Enriching
	s.enrichExplanation(m, p)
	s.enrichEmbedding(m, p)

	// Persisting
	start = time.Now()
	err = s.store.SavePrediction(ctx, p)
	if s.telemetry != nil {
		s.telemetry.PersistenceDurationObserve(time.Since(start).Seconds())
	}
	if err != nil {
		s.failure("persistence")
		if s.telemetry != nil {
			s.telemetry.PersistenceFailuresInc()
		}
		return nil, &PersistenceError{Cause: err}
	}
	s.saveShaps(p)

	// Done: the caller observes exactly what was durably stored.
	stored, err := s.store.GetPrediction(ctx, p.ID)
	if err != nil {
		s.failure("persistence")
		return nil, &PersistenceError{Cause: err}
	}
	stored.ShapValues = p.ShapValues
	stored.Metadata = p.Metadata

	if s.telemetry != nil {
		s.telemetry.PredictionsInc()
	}
	log.Info().
		Str("prediction", stored.ID).
		Str("model", name).
		Str("version", version).
		Msg("created prediction")

	if s.stream != nil {
		s.stream.PublishPrediction(stored)
	}
	return stored, nil
}

// GetPrediction returns a stored prediction with any separately persisted
// explanation records re-attached.
func (s *Service) GetPrediction(ctx context.Context, id string) (*model.Prediction, error) {
	p, err := s.store.GetPrediction(ctx, id)
	if err == storage.ErrNotFound {
		return nil, &PredictionNotFoundError{ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Cause: err}
	}

	if s.shaps != nil {
		shaps, err := s.shaps.GetShaps(id)
		if err != nil {
			log.Warn().Err(err).Str("prediction", id).Msg("failed to load explanation records")
		} else {
			p.ShapValues = shaps
		}
	}
	return p, nil
}

// RecordActual stores the observed ground-truth outcome for a prediction.
func (s *Service) RecordActual(ctx context.Context, id, actual string) error {
	err := s.store.SetActual(ctx, id, actual)
	if err == storage.ErrNotFound {
		return &PredictionNotFoundError{ID: id}
	}
	if err != nil {
		return &PersistenceError{Cause: err}
	}
	return nil
}

func (s *Service) enrichExplanation(m *model.Model, p *model.Prediction) {
	start := time.Now()
	err := enrich.Explain(m, p)
	if s.telemetry != nil {
		s.telemetry.EnrichmentDurationObserve("explain", time.Since(start).Seconds())
	}
	if err != nil {
		if s.telemetry != nil {
			s.telemetry.EnrichmentFailuresInc("explain")
		}
		log.Warn().Err(err).
			Str("model", m.Name).
			Str("version", m.Version).
			Msg("explanation unavailable")
	}
}

func (s *Service) enrichEmbedding(m *model.Model, p *model.Prediction) {
	if s.projectors == nil {
		return
	}
	start := time.Now()
	err := s.projectors.Embed(m, p)
	if s.telemetry != nil {
		s.telemetry.EnrichmentDurationObserve("embed", time.Since(start).Seconds())
	}
	if err != nil {
		if s.telemetry != nil {
			s.telemetry.EnrichmentFailuresInc("embed")
		}
		log.Warn().Err(err).
			Str("model", m.Name).
			Str("version", m.Version).
			Msg("embedding unavailable")
	}
}

// saveShaps writes explanation records to the side store. Failures here
// never affect the already-committed prediction.
func (s *Service) saveShaps(p *model.Prediction) {
	if s.shaps == nil || len(p.ShapValues) == 0 {
		return
	}
	if err := s.shaps.SaveShaps(p.ID, p.ShapValues); err != nil {
		log.Warn().Err(err).Str("prediction", p.ID).Msg("failed to persist explanation records")
	}
}

func (s *Service) failure(reason string) {
	if s.telemetry != nil {
		s.telemetry.PredictionFailuresInc(reason)
	}
}

func (s *Service) observeInference(seconds float64) {
	if s.telemetry != nil {
		s.telemetry.InferenceDurationObserve(seconds)
	}
}
