// Package observability provides structured logging, Prometheus metrics, health
// checks, OpenTelemetry tracing and graceful shutdown.
//
// # Structured Logging
//
//	logger, err := observability.NewLogger(logrus.InfoLevel, "text", os.Stderr)
//	logger.WithField("plugin", "Hello").Info("Enabling Hello v1.0")
//
// # Prometheus Metrics
//
// Metrics implements plugins.Observer, so loaders report into it directly:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	loader := plugins.NewArchiveLoader(server, rt, plugins.WithObserver(metrics))
//	router.Handle("/metrics", metrics.Handler())
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("runtime", true, runtimeCheck)
//	router.HandleFunc("/healthz", checker.Readiness)
//
// # OpenTelemetry
//
//	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "cornerstone",
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/plugins: Observer interface
package observability
