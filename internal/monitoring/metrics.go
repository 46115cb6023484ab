// Package monitoring exposes gateway metrics and per-request telemetry.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	QuotaRejectionsTotal prometheus.Counter
	RelayedEventsTotal   prometheus.Counter
	StreamErrorsTotal    *prometheus.CounterVec
	RequestDuration      prometheus.Histogram
	TokensPerRequest     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_gateway_requests_total",
				Help: "Chat requests by outcome status code",
			},
			[]string{"status"},
		),
		QuotaRejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_gateway_quota_rejections_total",
				Help: "Requests rejected by the monthly quota guard",
			},
		),
		RelayedEventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_gateway_relayed_events_total",
				Help: "Provider stream events forwarded to callers",
			},
		),
		StreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_gateway_stream_errors_total",
				Help: "Terminal provider errors by kind",
			},
			[]string{"kind"},
		),
		RequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_gateway_request_duration_seconds",
				Help:    "Full request latency including streaming",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokensPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_gateway_tokens_per_request",
				Help:    "Token usage distributions per request",
				Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
			},
			[]string{"direction"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.QuotaRejectionsTotal,
		m.RelayedEventsTotal,
		m.StreamErrorsTotal,
		m.RequestDuration,
		m.TokensPerRequest,
	)
	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
