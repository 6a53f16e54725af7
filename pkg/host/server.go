package host

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
	"github.com/platinummonkey/cornerstone/pkg/plugins/script"
)

// Version is the host version reported to plugins
const Version = "0.1.0"

// Options configures a Server
type Options struct {
	Name            string
	Version         string
	Logger          *logrus.Logger
	LoadConcurrency int

	// Observer receives plugin load and lifecycle events
	Observer plugins.Observer

	// Recorder receives dispatched command outcomes
	Recorder CommandRecorder

	// TracerProvider overrides the global provider for load spans
	TracerProvider trace.TracerProvider
}

// Server is the host plugins are loaded into. It owns the script runtime,
// the shared module cache, the loader registry and the command map.
type Server struct {
	name    string
	version string
	logger  *logrus.Logger

	runtime  *script.Runtime
	modules  *script.ModuleCache
	registry *plugins.Registry
	manager  *PluginManager
	commands *CommandMap
}

var _ plugins.Server = (*Server)(nil)

// NewServer creates a server with the archive and source loaders registered
func NewServer(opts Options) (*Server, error) {
	if opts.Name == "" {
		opts.Name = "cornerstone"
	}
	if opts.Version == "" {
		opts.Version = Version
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	s := &Server{
		name:     opts.Name,
		version:  opts.Version,
		logger:   opts.Logger,
		runtime:  script.NewRuntime(),
		modules:  script.NewModuleCache(),
		registry: plugins.NewRegistry(),
	}

	var loaderOpts []plugins.Option
	if opts.Observer != nil {
		loaderOpts = append(loaderOpts, plugins.WithObserver(opts.Observer))
	}
	if opts.TracerProvider != nil {
		loaderOpts = append(loaderOpts, plugins.WithTracerProvider(opts.TracerProvider))
	}

	loaders := []plugins.Loader{
		plugins.NewArchiveLoader(s, s.runtime, loaderOpts...),
		plugins.NewSourceLoader(s, s.runtime, s.modules, loaderOpts...),
	}
	for _, l := range loaders {
		if err := s.registry.Register(l); err != nil {
			s.runtime.Close()
			return nil, err
		}
	}

	s.commands = NewCommandMap(s.logger.WithField("component", "commands"), opts.Recorder)
	s.manager = NewPluginManager(s.registry, s.logger.WithField("component", "plugins"), opts.LoadConcurrency)
	s.manager.OnRegister(s.commands.Register)

	return s, nil
}

func (s *Server) Name() string           { return s.name }
func (s *Server) Version() string        { return s.version }
func (s *Server) Logger() *logrus.Logger { return s.logger }

// PluginManager returns the manager holding loaded plugins
func (s *Server) PluginManager() *PluginManager { return s.manager }

// Commands returns the command map built from plugin manifests
func (s *Server) Commands() *CommandMap { return s.commands }

// Registry returns the loader registry
func (s *Server) Registry() *plugins.Registry { return s.registry }

// ModuleCache returns the module cache shared by source plugins
func (s *Server) ModuleCache() *script.ModuleCache { return s.modules }

// Runtime returns the script runtime plugins execute in
func (s *Server) Runtime() *script.Runtime { return s.runtime }

// Close disables every plugin and releases the script runtime
func (s *Server) Close() {
	s.manager.DisablePlugins()
	s.runtime.Close()
}
