package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Plugin metrics
	PluginLoadsTotal       *prometheus.CounterVec
	PluginLoadDuration     *prometheus.HistogramVec
	PluginTransitionsTotal *prometheus.CounterVec
	PluginsEnabled         prometheus.Gauge

	// Command metrics
	CommandsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

var _ plugins.Observer = (*Metrics)(nil)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Plugin metrics
		PluginLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cornerstone_plugin_loads_total",
				Help: "Total number of plugin load attempts",
			},
			[]string{"loader", "status"},
		),
		PluginLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cornerstone_plugin_load_duration_seconds",
				Help:    "Plugin load duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"loader"},
		),
		PluginTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cornerstone_plugin_transitions_total",
				Help: "Total number of plugin enable and disable transitions",
			},
			[]string{"state"},
		),
		PluginsEnabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cornerstone_plugins_enabled",
				Help: "Number of enabled plugins",
			},
		),

		// Command metrics
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cornerstone_commands_total",
				Help: "Total number of dispatched commands",
			},
			[]string{"command", "status"},
		),

		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cornerstone_http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cornerstone_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		registry: registry,
	}

	// Register all metrics
	registry.MustRegister(
		m.PluginLoadsTotal,
		m.PluginLoadDuration,
		m.PluginTransitionsTotal,
		m.PluginsEnabled,
		m.CommandsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// PluginLoaded records a load attempt
func (m *Metrics) PluginLoaded(loader string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PluginLoadsTotal.WithLabelValues(loader, status).Inc()
	m.PluginLoadDuration.WithLabelValues(loader).Observe(duration.Seconds())
}

// PluginTransitioned records an enable or disable that changed state
func (m *Metrics) PluginTransitioned(name string, enabled bool) {
	if enabled {
		m.PluginTransitionsTotal.WithLabelValues("enabled").Inc()
		m.PluginsEnabled.Inc()
		return
	}
	m.PluginTransitionsTotal.WithLabelValues("disabled").Inc()
	m.PluginsEnabled.Dec()
}

// RecordCommand records a dispatched command
func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

// RegisterModuleCache exposes the number of cached script modules
func (m *Metrics) RegisterModuleCache(lenFunc func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "cornerstone_script_modules_cached",
			Help: "Number of script modules held in the shared module cache",
		},
		func() float64 { return float64(lenFunc()) },
	))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests routed by gorilla/mux are labelled with their route template.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}

			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
