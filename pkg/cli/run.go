package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/cornerstone/pkg/config"
	"github.com/platinummonkey/cornerstone/pkg/host"
	"github.com/platinummonkey/cornerstone/pkg/observability"
)

// stopCommand is the console line that shuts the host down
const stopCommand = "stop"

func newRunCommand() *Command {
	cmd := &Command{
		Name:        "run",
		Description: "Load and enable plugins, then serve console and admin commands",
		Flags:       flag.NewFlagSet("run", flag.ContinueOnError),
	}
	cmd.Flags.SetOutput(stderr)
	pluginsDir := cmd.Flags.String("plugins", "", "Plugin directory (overrides CORNERSTONE_PLUGINS_DIR)")
	adminAddr := cmd.Flags.String("admin", "", "Admin API listen address (overrides CORNERSTONE_ADMIN_ADDR)")
	watch := cmd.Flags.Bool("watch", false, "Load plugins added to the plugin directory while running")
	logLevel := cmd.Flags.String("log-level", "", "Log level (overrides CORNERSTONE_LOG_LEVEL)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		var flagErr error
		cmd.Flags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "plugins":
				cfg.Plugins.Dir = *pluginsDir
			case "admin":
				cfg.Admin.Addr = *adminAddr
			case "watch":
				cfg.Plugins.Watch = *watch
			case "log-level":
				level, err := logrus.ParseLevel(*logLevel)
				if err != nil {
					flagErr = fmt.Errorf("invalid -log-level: %w", err)
					return
				}
				cfg.Observability.LogLevel = level
			}
		})
		if flagErr != nil {
			return flagErr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return runHost(context.Background(), cfg, stdin)
	}
	return cmd
}

// runHost loads and enables every plugin in the configured directory and
// serves until a signal arrives, ctx is cancelled or "stop" is read from in.
func runHost(ctx context.Context, cfg *config.Config, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, stderr)
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	opts := host.Options{
		Name:            cfg.Plugins.ServerName,
		Logger:          logger,
		LoadConcurrency: cfg.Plugins.LoadConcurrency,
	}
	var tracerProvider trace.TracerProvider
	if tp != nil {
		tracerProvider = tp
		opts.TracerProvider = tp
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
		opts.Observer = metrics
		opts.Recorder = metrics
	}

	server, err := host.NewServer(opts)
	if err != nil {
		return err
	}
	if metrics != nil {
		if err := metrics.RegisterModuleCache(server.ModuleCache().Len); err != nil {
			server.Close()
			return err
		}
	}

	logger.Infof("Starting %s %s", server.Name(), server.Version())
	if _, err := server.PluginManager().LoadPlugins(ctx, cfg.Plugins.Dir); err != nil {
		server.Close()
		return err
	}
	server.PluginManager().EnablePlugins()

	var adminServer *http.Server
	if cfg.Admin.Addr != "" {
		admin := host.NewAdminHandlers(server, metrics, observability.NewHealthChecker(server.Version()))
		adminServer = &http.Server{
			Addr:         cfg.Admin.Addr,
			Handler:      admin.Handler(logger.WithField("component", "admin"), tracerProvider),
			ReadTimeout:  cfg.Admin.ReadTimeout,
			WriteTimeout: cfg.Admin.WriteTimeout,
		}
		go func() {
			defer observability.RecoverPanic(logger, "admin server")
			logger.Infof("Admin API listening on %s", cfg.Admin.Addr)
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Admin server failed")
				cancel()
			}
		}()
	}

	var watcher *host.Watcher
	if cfg.Plugins.Watch {
		watcher, err = host.NewWatcher(server.PluginManager(), cfg.Plugins.Dir, logger.WithField("component", "watcher"), host.DefaultDebounce)
		if err != nil {
			logger.WithError(err).Warn("Plugin directory will not be watched")
		} else {
			go func() {
				defer observability.RecoverPanic(logger, "plugin watcher")
				if err := watcher.Run(ctx); err != nil {
					logger.WithError(err).Error("Plugin watcher stopped")
				}
			}()
		}
	}

	sm := observability.NewShutdownManager(logger, adminServer, cfg.Admin.ShutdownTimeout)
	sm.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, tp)
	})
	sm.RegisterShutdownFunc("host", func(context.Context) error {
		server.Close()
		return nil
	})
	if watcher != nil {
		sm.RegisterShutdownFunc("watcher", func(context.Context) error {
			watcher.Close()
			return nil
		})
	}

	go readConsole(ctx, in, server, logger, cancel)

	return sm.WaitForShutdown(ctx)
}

// readConsole dispatches each line of in as a command until "stop" is read.
// Reaching the end of in leaves the host running.
func readConsole(ctx context.Context, in io.Reader, server *host.Server, logger *logrus.Logger, stop context.CancelFunc) {
	defer observability.RecoverPanic(logger, "console")

	sender := host.NewConsoleSender(stdout)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(strings.TrimPrefix(line, "/"), stopCommand):
			logger.Info("Stopping the server")
			stop()
			return
		}

		if err := server.Commands().Dispatch(sender, line); err != nil {
			switch {
			case errors.Is(err, host.ErrUnknownCommand):
				sender.SendMessage(fmt.Sprintf("Unknown command: %s", line))
			case errors.Is(err, host.ErrPluginDisabled):
				sender.SendMessage(err.Error())
			default:
				sender.SendMessage(fmt.Sprintf("An internal error occurred while executing %s", line))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logger.WithError(err).Warn("Console input failed")
	}
}
