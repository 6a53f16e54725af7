package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_PluginLoaded(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.PluginLoaded("archive", 10*time.Millisecond, nil)
	metrics.PluginLoaded("archive", 5*time.Millisecond, errors.New("boom"))
	metrics.PluginLoaded("source", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PluginLoadsTotal.WithLabelValues("archive", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PluginLoadsTotal.WithLabelValues("archive", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PluginLoadsTotal.WithLabelValues("source", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.PluginLoadDuration))
}

func TestMetrics_PluginTransitioned(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.PluginTransitioned("Hello", true)
	metrics.PluginTransitioned("Other", true)
	metrics.PluginTransitioned("Hello", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PluginsEnabled))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PluginTransitionsTotal.WithLabelValues("enabled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PluginTransitionsTotal.WithLabelValues("disabled")))
}

func TestMetrics_RecordCommand(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordCommand("hello", "handled")
	metrics.RecordCommand("hello", "handled")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CommandsTotal.WithLabelValues("hello", "handled")))
}

func TestMetrics_RegisterModuleCache(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	size := 3
	require.NoError(t, metrics.RegisterModuleCache(func() int { return size }))
	assert.Error(t, metrics.RegisterModuleCache(func() int { return 0 }), "duplicate registration")

	expected := `
# HELP cornerstone_script_modules_cached Number of script modules held in the shared module cache
# TYPE cornerstone_script_modules_cached gauge
cornerstone_script_modules_cached 3
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "cornerstone_script_modules_cached"))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/plugins/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for _, name := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins/"+name, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/plugins/{name}", "404")))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.PluginTransitioned("Hello", true)

	server := httptest.NewServer(metrics.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cornerstone_plugins_enabled 1")
}
