package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the API records into. Each Metrics owns its
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts requests by method, route template and status
	RequestsTotal *prometheus.CounterVec

	// RequestDuration tracks request latency by method and route template
	RequestDuration *prometheus.HistogramVec

	// WorkflowOperations counts service calls by operation and result
	WorkflowOperations *prometheus.CounterVec
}

// NewMetrics registers the API collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aihub",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aihub",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WorkflowOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aihub",
				Subsystem: "api",
				Name:      "workflow_operations_total",
				Help:      "Total number of workflow service operations",
			},
			[]string{"operation", "result"}, // result: success, error
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOperation(op string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.WorkflowOperations.WithLabelValues(op, result).Inc()
}
