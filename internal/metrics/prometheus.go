// Package metrics exposes Prometheus metrics for the dashboard's HTTP traffic
// and its upstream fetches.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream outcomes used as the "outcome" label when no status was received.
const (
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Manager owns the dashboard's collectors and the registry they are served
// from. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	enabled   bool
	runtime   bool
	registry  *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamFetches  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	fetchLogErrors   prometheus.Counter
}

// NewManager builds a Manager and registers its collectors.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace: "wbdash",
		buckets:   prometheus.DefBuckets,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if !m.enabled {
		return m, nil
	}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route pattern, method and status code.",
	}, []string{"route", "method", "status_code"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route pattern and method.",
		Buckets:   m.buckets,
	}, []string{"route", "method"})

	m.upstreamFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_fetches_total",
		Help:      "Round trips to the metrics API, by endpoint and outcome (status code, timeout or error).",
	}, []string{"endpoint", "outcome"})

	m.upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_fetch_duration_seconds",
		Help:      "Latency of round trips to the metrics API, by endpoint.",
		Buckets:   m.buckets,
	}, []string{"endpoint"})

	m.fetchLogErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_log_errors_total",
		Help:      "Fetch records that could not be persisted.",
	})

	cs := []prometheus.Collector{
		m.httpRequests, m.httpDuration,
		m.upstreamFetches, m.upstreamDuration,
		m.fetchLogErrors,
	}
	if m.runtime {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegister, err)
		}
	}
	return m, nil
}

func (m *Manager) active() bool {
	return m != nil && m.enabled
}

// Enabled reports whether the Manager records anything.
func (m *Manager) Enabled() bool {
	return m.active()
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest counts one served request. route is the matched pattern,
// not the raw path, so label cardinality stays bounded.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordUpstreamFetch counts one round trip to endpoint. outcome is the HTTP
// status code as a string, OutcomeTimeout or OutcomeError.
func (m *Manager) RecordUpstreamFetch(endpoint, outcome string, d time.Duration) {
	if !m.active() {
		return
	}
	m.upstreamFetches.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordFetchLogError counts a fetch record that failed to persist.
func (m *Manager) RecordFetchLogError() {
	if !m.active() {
		return
	}
	m.fetchLogErrors.Inc()
}
