package metrics

// Wrapper adapts Metrics to the narrow telemetry interfaces consumed by
// the serving pipeline, so components depend on methods rather than on
// concrete Prometheus types.
type Wrapper struct {
	metrics *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{metrics: m}
}

func (w *Wrapper) PredictionsInc() {
	if w != nil && w.metrics != nil {
		w.metrics.PredictionsTotal.Inc()
	}
}

func (w *Wrapper) PredictionFailuresInc(reason string) {
	if w != nil && w.metrics != nil {
		w.metrics.PredictionFailures.WithLabelValues(reason).Inc()
	}
}

func (w *Wrapper) InferenceDurationObserve(seconds float64) {
	if w != nil && w.metrics != nil {
		w.metrics.InferenceDuration.Observe(seconds)
	}
}

func (w *Wrapper) InferenceFailuresInc() {
	if w != nil && w.metrics != nil {
		w.metrics.InferenceFailures.Inc()
	}
}

func (w *Wrapper) EnrichmentDurationObserve(stage string, seconds float64) {
	if w != nil && w.metrics != nil {
		w.metrics.EnrichmentDuration.WithLabelValues(stage).Observe(seconds)
	}
}

func (w *Wrapper) EnrichmentFailuresInc(stage string) {
	if w != nil && w.metrics != nil {
		w.metrics.EnrichmentFailures.WithLabelValues(stage).Inc()
	}
}

func (w *Wrapper) PersistenceDurationObserve(seconds float64) {
	if w != nil && w.metrics != nil {
		w.metrics.PersistenceDuration.Observe(seconds)
	}
}

func (w *Wrapper) PersistenceFailuresInc() {
	if w != nil && w.metrics != nil {
		w.metrics.PersistenceFailures.Inc()
	}
}

func (w *Wrapper) StreamClientsSet(n float64) {
	if w != nil && w.metrics != nil {
		w.metrics.StreamClients.Set(n)
	}
}
