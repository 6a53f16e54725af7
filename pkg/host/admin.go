package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/cornerstone/pkg/httputil"
	"github.com/platinummonkey/cornerstone/pkg/observability"
	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

const maxAdminRequestBytes = 1 << 20

// PluginInfo is the admin API view of a loaded plugin
type PluginInfo struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description,omitempty"`
	Website     string   `json:"website,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Loader      string   `json:"loader"`
	Enabled     bool     `json:"enabled"`
	Commands    []string `json:"commands,omitempty"`
}

// CommandRequest is the body of POST /commands
type CommandRequest struct {
	Command string `json:"command"`
	Sender  string `json:"sender,omitempty"`
}

// CommandResponse carries the messages a command sent back
type CommandResponse struct {
	Messages []string `json:"messages"`
}

// AdminHandlers provides the admin HTTP API
type AdminHandlers struct {
	server  *Server
	metrics *observability.Metrics
	health  *observability.HealthChecker
}

// NewAdminHandlers creates admin handlers. metrics may be nil, in which case
// /metrics is not served. A health check probing the script runtime is added
// to health.
func NewAdminHandlers(server *Server, metrics *observability.Metrics, health *observability.HealthChecker) *AdminHandlers {
	if health == nil {
		health = observability.NewHealthChecker(server.Version())
	}
	health.AddCheck("script_runtime", true, func(ctx context.Context) error {
		return server.Runtime().Do(ctx, func(*lua.LState) error { return nil })
	})
	return &AdminHandlers{server: server, metrics: metrics, health: health}
}

// RegisterRoutes registers admin API routes
func (h *AdminHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.health.Readiness).Methods("GET")
	r.HandleFunc("/livez", h.health.Liveness).Methods("GET")

	r.HandleFunc("/plugins", h.listPlugins).Methods("GET")
	r.HandleFunc("/plugins/{name}", h.getPlugin).Methods("GET")
	r.HandleFunc("/plugins/{name}/enable", h.enablePlugin).Methods("POST")
	r.HandleFunc("/plugins/{name}/disable", h.disablePlugin).Methods("POST")

	r.HandleFunc("/commands", h.dispatchCommand).Methods("POST")

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
}

// Handler returns the admin router with request ID, logging, recovery and
// metrics middleware installed. When tp is non-nil requests are traced.
func (h *AdminHandlers) Handler(logger *logrus.Entry, tp trace.TracerProvider) http.Handler {
	r := mux.NewRouter()
	r.Use(httputil.RequestIDMiddleware(logger))
	r.Use(httputil.LoggingMiddleware)
	r.Use(httputil.RecoveryMiddleware)
	r.Use(httputil.MaxBytesMiddleware(maxAdminRequestBytes))
	if h.metrics != nil {
		r.Use(observability.HTTPMetricsMiddleware(h.metrics))
	}
	h.RegisterRoutes(r)

	if tp == nil {
		return r
	}
	return otelhttp.NewHandler(r, "admin", otelhttp.WithTracerProvider(tp))
}

// listPlugins handles GET /plugins
func (h *AdminHandlers) listPlugins(w http.ResponseWriter, r *http.Request) {
	loaded := h.server.PluginManager().Plugins()
	infos := make([]PluginInfo, 0, len(loaded))
	for _, inst := range loaded {
		infos = append(infos, pluginInfo(inst))
	}
	httputil.WriteOK(w, infos)
}

// getPlugin handles GET /plugins/{name}
func (h *AdminHandlers) getPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.PathVarOrError(w, r, "name")
	if !ok {
		return
	}

	inst, found := h.server.PluginManager().GetPlugin(name)
	if !found {
		httputil.WriteError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", ErrPluginNotFound, name))
		return
	}
	httputil.WriteOK(w, pluginInfo(inst))
}

// enablePlugin handles POST /plugins/{name}/enable
func (h *AdminHandlers) enablePlugin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.server.PluginManager().EnablePlugin)
}

// disablePlugin handles POST /plugins/{name}/disable
func (h *AdminHandlers) disablePlugin(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.server.PluginManager().DisablePlugin)
}

func (h *AdminHandlers) transition(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	name, ok := httputil.PathVarOrError(w, r, "name")
	if !ok {
		return
	}

	if err := fn(name); err != nil {
		h.writeError(w, r, err)
		return
	}

	inst, _ := h.server.PluginManager().GetPlugin(name)
	httputil.WriteOK(w, pluginInfo(inst))
}

// dispatchCommand handles POST /commands
func (h *AdminHandlers) dispatchCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !httputil.DecodeJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonBlank(w, r, req.Command, "command") {
		return
	}
	if req.Sender == "" {
		req.Sender = "Admin"
	}

	sender := NewBufferSender(req.Sender)
	if err := h.server.Commands().Dispatch(sender, req.Command); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteOK(w, CommandResponse{Messages: sender.Messages()})
}

func (h *AdminHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.FromContext(r.Context()).WithError(err).Error("Admin request failed")
	}
	httputil.WriteError(w, r, status, err)
}

// statusFor maps host errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrPluginNotFound), errors.Is(err, ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, ErrPluginDisabled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pluginInfo(inst *plugins.Instance) PluginInfo {
	desc := inst.Description()

	var commands []string
	for _, c := range desc.Commands() {
		commands = append(commands, c.Name)
	}

	return PluginInfo{
		Name:        desc.Name(),
		Version:     desc.Version(),
		FullName:    desc.FullName(),
		Description: desc.Description(),
		Website:     desc.Website(),
		Authors:     desc.Authors(),
		Loader:      inst.Loader().Name(),
		Enabled:     inst.IsEnabled(),
		Commands:    commands,
	}
}
