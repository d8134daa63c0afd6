// Package telemetry provides observability primitives for the gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveRequests     prometheus.Gauge
	RateLimitRejects   *prometheus.CounterVec // labels: origin_id
	ForwarderErrors    *prometheus.CounterVec // labels: origin_id, outcome
	TLSHandshakeFailed prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateman",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the proxy.",
		}, []string{"method", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "gateman",
			Name:                            "request_duration_seconds",
			Help:                            "Request dispatch duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gateman",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		RateLimitRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateman",
			Name:      "ratelimit_rejects_total",
			Help:      "Total rate limit rejections, by origin.",
		}, []string{"origin_id"}),

		ForwarderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gateman",
			Name:      "forwarder_errors_total",
			Help:      "Total upstream forwarding failures, by origin and outcome.",
		}, []string{"origin_id", "outcome"}),

		TLSHandshakeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gateman",
			Name:      "tls_handshake_failures_total",
			Help:      "Total TLS handshake failures on the proxy's TLS acceptor.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.RateLimitRejects,
		m.ForwarderErrors,
		m.TLSHandshakeFailed,
	)

	return m
}
