// Package metrics exposes Prometheus collectors for the contest lifecycle
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matbactivity/songconstitution/internal/services"
)

const namespace = "songconstitution"

// Metrics owns a registry and the collectors registered in it
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	archives       *prometheus.CounterVec
	votes          prometheus.Counter
	cleanupPending prometheus.Gauge
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, so several instances can
// live in one process
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Lifecycle transitions attempted, by transition and outcome.",
			},
			[]string{"transition", "outcome"},
		),
		archives: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archives_total",
				Help:      "Finish sequences, by outcome.",
			},
			[]string{"outcome"},
		),
		votes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_submitted_total",
				Help:      "Votes accepted.",
			},
		),
		cleanupPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "archive_cleanups_pending",
				Help:      "Archived constitutions whose live documents are not removed yet.",
			},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Transition implements services.Recorder
func (m *Metrics) Transition(transition, outcome string) {
	m.transitions.WithLabelValues(transition, outcome).Inc()
}

// Archive implements services.Recorder
func (m *Metrics) Archive(outcome string) {
	m.archives.WithLabelValues(outcome).Inc()
}

// VoteSubmitted implements services.Recorder
func (m *Metrics) VoteSubmitted() {
	m.votes.Inc()
}

// CleanupPending implements services.Recorder
func (m *Metrics) CleanupPending(count int) {
	m.cleanupPending.Set(float64(count))
}

var _ services.Recorder = (*Metrics)(nil)

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests and observes their latency. Routes are
// labelled by their chi pattern to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
