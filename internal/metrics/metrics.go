// Package metrics defines the Prometheus metrics served on /metrics.
//
// Naming follows Prometheus conventions:
//   - portal_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestsTotal counts requests by route pattern, method and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDurationSeconds observes handler latency by route pattern.
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	// LoginsTotal counts login attempts by outcome.
	LoginsTotal *prometheus.CounterVec

	// AccessDeniedTotal counts guard denials by capability.
	AccessDeniedTotal *prometheus.CounterVec

	RateLimitedTotal prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_logins_total",
				Help: "Total login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_access_denied_total",
				Help: "Total requests refused by the access guard.",
			},
			[]string{"capability"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_rate_limited_total",
				Help: "Total requests rejected by the rate limiter.",
			},
		),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.LoginsTotal,
		m.AccessDeniedTotal,
		m.RateLimitedTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDenied(capability string) {
	if m == nil {
		return
	}
	m.AccessDeniedTotal.WithLabelValues(capability).Inc()
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
