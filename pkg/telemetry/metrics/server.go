package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerMetrics tracks the HTTP API.
//
// Series:
//   - astra_http_requests_total: requests by method, path, status
//   - astra_http_request_duration_seconds: request latency histogram
type ServerMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewServerMetrics creates and registers the HTTP series.
func NewServerMetrics(registry *prometheus.Registry) *ServerMetrics {
	sm := &ServerMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests served",
			},
			[]string{"method", "path", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "API request latency in seconds",
				// The API serves in-memory decisions; 1ms to ~4s.
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(sm.requestsTotal, sm.requestDuration)

	return sm
}

// RecordRequest records one completed request. The path must be the route
// pattern, not the raw URL.
func (sm *ServerMetrics) RecordRequest(method, path string, status int, duration time.Duration) {
	sm.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	sm.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
