// Package metrics provides Prometheus metrics collection for the
// prediction-serving pipeline. It defines duration and outcome signals
// around inference, enrichment, and persistence, plus request-level
// HTTP metrics, all exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction pipeline metrics
	PredictionsTotal   prometheus.Counter   // Total predictions served successfully
	PredictionFailures *prometheus.CounterVec // Failed requests by taxonomy reason
	InferenceDuration  prometheus.Histogram // Inference engine latency in seconds
	InferenceFailures  prometheus.Counter   // Inference engine failures

	// Enrichment metrics (best-effort stages)
	EnrichmentDuration *prometheus.HistogramVec // Enrichment latency by stage
	EnrichmentFailures *prometheus.CounterVec   // Swallowed enrichment failures by stage

	// Persistence metrics
	PersistenceDuration prometheus.Histogram // Transaction duration in seconds
	PersistenceFailures prometheus.Counter   // Rolled-back transactions

	// HTTP metrics
	RequestCount   *prometheus.CounterVec   // Requests by method, path, status
	RequestLatency *prometheus.HistogramVec // Request latency by method, path, status

	// Stream metrics
	StreamClients prometheus.Gauge // Connected prediction-feed clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry. Tests use this
// to avoid duplicate registration against the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served successfully",
		}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction requests by reason",
		}, []string{"reason"}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_duration_seconds",
			Help:    "Inference engine latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		InferenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "inference_failures_total",
			Help: "Total number of inference engine failures",
		}),
		EnrichmentDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrichment_duration_seconds",
			Help:    "Enrichment stage latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		EnrichmentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_failures_total",
			Help: "Total number of swallowed enrichment failures by stage",
		}, []string{"stage"}),
		PersistenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "persistence_duration_seconds",
			Help:    "Prediction persistence transaction duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Total number of rolled-back persistence transactions",
		}),
		RequestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "request_count",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "http_status"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint", "http_status"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stream_clients",
			Help: "Number of connected prediction-feed WebSocket clients",
		}),
	}
}
