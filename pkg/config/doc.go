// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. Command-line flags in cmd/cornerstone
// override the loaded values.
//
// # Configuration Structure
//
// Plugin host settings:
//
//	CORNERSTONE_PLUGINS_DIR="./plugins"
//	CORNERSTONE_SERVER_NAME="cornerstone"
//	CORNERSTONE_LOAD_CONCURRENCY="4"
//	CORNERSTONE_WATCH="false"
//
// Admin server settings:
//
//	CORNERSTONE_ADMIN_ADDR=":9090"  # empty disables the admin server
//	CORNERSTONE_SHUTDOWN_TIMEOUT="10s"
//
// Observability settings:
//
//	CORNERSTONE_LOG_LEVEL="info"  # trace, debug, info, warn, error
//	CORNERSTONE_LOG_FORMAT="text"  # text, json
//	CORNERSTONE_METRICS_ENABLED="true"
//	CORNERSTONE_OTEL_ENABLED="true"
//	CORNERSTONE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Plugins: %s\n", cfg.Plugins.Dir)
//
// # Related Packages
//
//   - pkg/host: Uses plugin and admin configuration
//   - pkg/observability: Uses observability configuration
package config
