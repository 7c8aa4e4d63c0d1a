// Package telemetry wires Prometheus metrics and OpenTelemetry tracing into
// the store hooks and the HTTP server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Skryldev/member-directory/db"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus registry. It implements
// db.MetricsCollector for the store hook.
type Metrics struct {
	registry *prometheus.Registry

	queryDuration *prometheus.HistogramVec
	queryErrors   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors, including the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memberdir",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of SQL statements by verb.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"verb"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdir",
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "SQL statements that failed, by verb.",
		}, []string{"verb"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memberdir",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memberdir",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.queryDuration,
		m.queryErrors,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordQuery implements db.MetricsCollector.
func (m *Metrics) RecordQuery(query string, d time.Duration, success bool) {
	verb := db.StatementVerb(query)
	m.queryDuration.WithLabelValues(verb).Observe(d.Seconds())
	if !success {
		m.queryErrors.WithLabelValues(verb).Inc()
	}
}

// ObserveRequest records one served HTTP request. route should be the
// router pattern (e.g. /member/{id}), never the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var _ db.MetricsCollector = (*Metrics)(nil)
