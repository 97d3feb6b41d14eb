package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "polystat"

// Metrics holds the gateway's own Prometheus instruments.
// Pass to components that need to record metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	BackendRequests     *prometheus.CounterVec
	BackendDuration     *prometheus.HistogramVec
	GatewayOperations   *prometheus.CounterVec
}

// NewMetrics creates a private registry with Go/process collectors and all
// gateway metrics registered on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BackendRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Total number of requests sent to the metrics backend",
			},
			[]string{"endpoint", "outcome"}, // outcome=success/connection/api/normalization/unclassified
		),
		BackendDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests sent to the metrics backend",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		GatewayOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "operations_total",
				Help:      "Total number of gateway operations by result",
			},
			[]string{"operation", "result"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBackend records one backend call. A nil receiver is a no-op.
func (m *Metrics) ObserveBackend(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveOperation records one gateway operation. A nil receiver is a no-op.
func (m *Metrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}
	m.GatewayOperations.WithLabelValues(operation, result).Inc()
}

// ObserveHTTP records one served HTTP request. A nil receiver is a no-op.
func (m *Metrics) ObserveHTTP(method, route, statusCode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
