package plugins

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/cornerstone/pkg/plugins/script"
)

const tracerName = "github.com/platinummonkey/cornerstone/pkg/plugins"

// capabilitySet lists the methods a script entry point must expose
var capabilitySet = []string{"on_load", "on_enable", "on_disable", "on_command"}

// Option configures a loader
type Option func(*baseLoader)

// WithObserver reports loads and lifecycle transitions to o
func WithObserver(o Observer) Option {
	return func(l *baseLoader) {
		l.observer = o
	}
}

// WithTracerProvider sets the provider load spans are created from.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *baseLoader) {
		l.tracer = tp.Tracer(tracerName)
	}
}

// baseLoader holds what both loader strategies share: filters, the host,
// the script runtime, lifecycle handling and the load pipeline.
type baseLoader struct {
	name     string
	filters  []string
	server   Server
	runtime  *script.Runtime
	observer Observer
	tracer   trace.Tracer
}

func newBaseLoader(name string, filters []string, server Server, rt *script.Runtime, opts []Option) baseLoader {
	l := baseLoader{
		name:    name,
		filters: filters,
		server:  server,
		runtime: rt,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l *baseLoader) Name() string {
	return l.name
}

func (l *baseLoader) Server() Server {
	return l.server
}

// PluginFileFilters returns a copy of the loader's file name patterns
func (l *baseLoader) PluginFileFilters() []string {
	filters := make([]string, len(l.filters))
	copy(filters, l.filters)
	return filters
}

// openFunc opens the plugin unit at path, returning its namespace and manifest bytes
type openFunc func(path string) (script.Namespace, []byte, error)

// load runs the shared pipeline: manifest, module resolution, instantiation,
// capability check and binding. Every error it returns is a KindLoad *Error.
func (l *baseLoader) load(ctx context.Context, self Loader, path string, open openFunc) (inst *Instance, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "plugins.Load", trace.WithAttributes(
		attribute.String("plugin.loader", l.name),
		attribute.String("plugin.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if l.observer != nil {
			l.observer.PluginLoaded(l.name, time.Since(start), err)
		}
	}()

	if strings.TrimSpace(path) == "" {
		return nil, manifestLoadError("<empty path>", invalidInputError("plugin path must not be empty"))
	}

	ns, data, err := open(path)
	if err != nil {
		return nil, manifestLoadError(path, err)
	}

	desc, err := ParseDescription(bytes.NewReader(data))
	if err != nil {
		return nil, manifestLoadError(path, err)
	}
	span.SetAttributes(attribute.String("plugin.name", desc.FullName()))

	inst, err = l.instantiate(ctx, self, ns, desc)
	if err != nil {
		return nil, pluginLoadError(desc.FullName(), err)
	}

	return inst, nil
}

// readDescription opens the unit at path and parses its manifest without
// running plugin code. Both strategies report failures the same way: an empty
// path is KindInvalidInput, anything else is KindManifest naming path.
func (l *baseLoader) readDescription(path string, open openFunc) (*Description, error) {
	if strings.TrimSpace(path) == "" {
		return nil, invalidInputError("plugin path must not be empty")
	}

	_, data, err := open(path)
	if err != nil {
		return nil, manifestPathError(path, "failed to read manifest", err)
	}

	desc, err := ParseDescription(bytes.NewReader(data))
	if err != nil {
		return nil, manifestPathError(path, "invalid manifest", err)
	}
	return desc, nil
}

func (l *baseLoader) instantiate(ctx context.Context, self Loader, ns script.Namespace, desc *Description) (*Instance, error) {
	moduleName, typeName := desc.SplitMain()

	var (
		module *script.Module
		object *lua.LTable
	)

	err := l.runtime.Do(ctx, func(L *lua.LState) error {
		m, err := ns.Import(L, moduleName)
		if err != nil {
			var notFound *script.ModuleNotFoundError
			if errors.As(err, &notFound) {
				return moduleResolutionError(notFound.Name, err)
			}
			return err
		}

		class := L.GetField(m.Exports, typeName)
		if class == lua.LNil {
			return &Error{
				Kind:    KindLoad,
				Subject: desc.Main(),
				Msg:     "module " + moduleName + " has no attribute " + typeName,
			}
		}

		obj, err := script.Instantiate(L, class)
		if err != nil {
			return &Error{Kind: KindLoad, Subject: desc.Main(), Msg: "failed to instantiate " + desc.Main(), Err: err}
		}

		if missing := script.MissingMethods(L, obj, capabilitySet...); len(missing) > 0 {
			return capabilityMismatchError(desc.Main(), missing)
		}

		module, object = m, obj
		return nil
	})
	if err != nil {
		return nil, err
	}

	inst := NewInstance(&ScriptPlugin{runtime: l.runtime, module: module, object: object})
	if err := inst.Bind(desc, self, l.server); err != nil {
		return nil, err
	}

	return inst, nil
}
