// Package metrics exposes Prometheus instrumentation for API calls, imports,
// scoring, and the dashboard server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultNamespace = "nutctl"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// Manager owns the collectors.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiErrors    *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	foodsFetched prometheus.Counter
	foodsSaved   prometheus.Counter
	menusScored  *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var global = NewManager() //nolint:gochecknoglobals // process-wide collectors

// NewManager creates a manager with its own registry unless one is provided.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: defaultNamespace,
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fdc",
		Name:      "requests_total",
		Help:      "FoodData Central API requests by endpoint",
	}, []string{"endpoint"})

	m.apiErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "fdc",
		Name:      "errors_total",
		Help:      "FoodData Central API failures by endpoint and kind",
	}, []string{"endpoint", "kind"})

	m.apiLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "fdc",
		Name:      "request_duration_seconds",
		Help:      "FoodData Central API latency",
		Buckets:   m.buckets,
	}, []string{"endpoint"})

	m.foodsFetched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "foods_fetched_total",
		Help:      "Food records returned by the detail endpoint",
	})

	m.foodsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "foods_saved_total",
		Help:      "Food profiles written to the local store",
	})

	m.menusScored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "menus_scored_total",
		Help:      "Menu scoring runs by goal",
	}, []string{"goal"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "server",
		Name:      "http_requests_total",
		Help:      "Dashboard HTTP requests by endpoint, method, and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "server",
		Name:      "http_request_duration_seconds",
		Help:      "Dashboard HTTP request duration",
		Buckets:   m.buckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Handler serves the manager's registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the manager's registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the process-wide metrics.
func Handler() http.Handler {
	return global.Handler()
}

// Registry returns the process-wide registry.
func Registry() *prometheus.Registry {
	return global.registry
}

// RecordAPIRequest counts a FoodData Central call and observes its latency.
func RecordAPIRequest(endpoint string, seconds float64) {
	global.apiRequests.WithLabelValues(endpoint).Inc()
	global.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIError counts a failed FoodData Central call.
func RecordAPIError(endpoint, kind string) {
	global.apiErrors.WithLabelValues(endpoint, kind).Inc()
}

// RecordFoodsFetched adds n to the fetched foods counter.
func RecordFoodsFetched(n int) {
	if n > 0 {
		global.foodsFetched.Add(float64(n))
	}
}

// RecordFoodsSaved adds n to the saved foods counter.
func RecordFoodsSaved(n int) {
	if n > 0 {
		global.foodsSaved.Add(float64(n))
	}
}

// RecordMenuScored counts a scoring run.
func RecordMenuScored(goal string) {
	global.menusScored.WithLabelValues(goal).Inc()
}

// RecordHTTPRequest counts a dashboard request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	global.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	global.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}
