package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Plugin host configuration
	Plugins PluginsConfig

	// Admin HTTP server configuration
	Admin AdminConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PluginsConfig holds plugin discovery settings
type PluginsConfig struct {
	Dir             string
	ServerName      string
	LoadConcurrency int
	Watch           bool
}

// AdminConfig holds admin HTTP server configuration.
// An empty Addr disables the admin server.
type AdminConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  logrus.Level
	LogFormat string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Plugins:       loadPluginsConfig(),
		Admin:         loadAdminConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadPluginsConfig loads plugin host configuration from environment
func loadPluginsConfig() PluginsConfig {
	return PluginsConfig{
		Dir:             getEnv("CORNERSTONE_PLUGINS_DIR", "./plugins"),
		ServerName:      getEnv("CORNERSTONE_SERVER_NAME", "cornerstone"),
		LoadConcurrency: getEnvInt("CORNERSTONE_LOAD_CONCURRENCY", 4),
		Watch:           getEnvBool("CORNERSTONE_WATCH", false),
	}
}

// loadAdminConfig loads admin server configuration from environment
func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Addr:            getEnv("CORNERSTONE_ADMIN_ADDR", ":9090"),
		ReadTimeout:     getEnvDuration("CORNERSTONE_ADMIN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CORNERSTONE_ADMIN_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("CORNERSTONE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CORNERSTONE_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("CORNERSTONE_LOG_FORMAT", "text")),
		MetricsEnabled:     getEnvBool("CORNERSTONE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CORNERSTONE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CORNERSTONE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CORNERSTONE_OTEL_SERVICE_NAME", "cornerstone"),
		OTelServiceVersion: getEnv("CORNERSTONE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CORNERSTONE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate plugin config
	if c.Plugins.Dir == "" {
		return fmt.Errorf("plugins directory is required")
	}
	if c.Plugins.ServerName == "" {
		return fmt.Errorf("server name is required")
	}
	if c.Plugins.LoadConcurrency < 1 {
		return fmt.Errorf("load concurrency must be at least 1, got %d", c.Plugins.LoadConcurrency)
	}

	// Validate admin config
	if c.Admin.Addr != "" && c.Admin.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	// Validate logging config
	switch c.Observability.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string, falling back to info
func parseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
