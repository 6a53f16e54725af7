package observability

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestInitTracing_Disabled tests that InitTracing returns nil when disabled
func TestInitTracing_Disabled(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tp, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, logger)
	assert.NoError(t, err)
	assert.Nil(t, tp)

	assert.NoError(t, ShutdownTracing(context.Background(), nil))
}

// TestInitTracing_Enabled tests that the exporter is created without a reachable collector
func TestInitTracing_Enabled(t *testing.T) {
	logger, hook := test.NewNullLogger()

	tp, err := InitTracing(context.Background(), TracingConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "cornerstone-test",
		ServiceVersion: "0.0.1",
		Insecure:       true,
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, tp)

	assert.Equal(t, "Tracing enabled", hook.LastEntry().Message)
	assert.Equal(t, "localhost:4317", hook.LastEntry().Data["endpoint"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = ShutdownTracing(ctx, tp)
}

func TestWithTraceContext(t *testing.T) {
	logger, hook := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	// No span: the entry is returned unchanged
	assert.Same(t, entry, WithTraceContext(context.Background(), entry))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	WithTraceContext(ctx, entry).Info("traced")

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, span.SpanContext().TraceID().String(), last.Data["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), last.Data["span_id"])
}
