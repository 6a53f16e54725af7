package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger. format is "text" (full timestamps)
// or "json"; a nil output writes to stderr.
func NewLogger(level logrus.Level, format string, output io.Writer) (*logrus.Logger, error) {
	if output == nil {
		output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(level)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return logger, nil
}

// contextKey is the type for context keys
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the context logger, tagged with the request ID when one is set.
// It falls back to the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(LoggerKey).(*logrus.Entry)
	if !ok {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}

	return logger
}
