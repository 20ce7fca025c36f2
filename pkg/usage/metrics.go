package usage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the Prometheus metric names.
type MetricsConfig struct {
	Namespace string
	Subsystem string

	// RequestDurationBuckets override the default latency buckets, which
	// are sized for LLM completion latencies.
	RequestDurationBuckets []float64
}

// Metrics tracks gateway request and token metrics.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	streamEvents    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers the gateway metrics. If registry is nil a
// fresh registry is created.
func NewMetrics(cfg MetricsConfig, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "strait"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gateway"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 155.0}
	}

	m := &Metrics{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of gateway requests processed",
			},
			[]string{"endpoint", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of gateway requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"endpoint"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens processed",
			},
			[]string{"model", "type"},
		),

		streamEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_events_total",
				Help:      "Total number of stream events emitted to clients",
			},
			[]string{"event_type"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.tokensTotal,
		m.streamEvents,
	)

	return m
}

// RecordRequest records one completed gateway request.
func (m *Metrics) RecordRequest(endpoint, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, status).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTokens records token counts split by direction.
func (m *Metrics) RecordTokens(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordStreamEvent records one emitted stream event.
func (m *Metrics) RecordStreamEvent(eventType string) {
	m.streamEvents.WithLabelValues(eventType).Inc()
}

// Registry returns the Prometheus registry backing these metrics, for
// mounting the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
