package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFieldsAreSortedAndCopied(t *testing.T) {
	base := WithRequestID(context.Background(), "req-1")
	withSession := WithSessionID(base, "kitchen-1")

	assert.Equal(t, []interface{}{"request_id", "req-1"}, GetContextFields(base))
	assert.Equal(t,
		[]interface{}{"request_id", "req-1", "session_id", "kitchen-1"},
		GetContextFields(withSession),
	)
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetContextFields(WithRequestID(ctx, "")))
	assert.Nil(t, GetContextFields(WithSessionID(ctx, "")))
	assert.Nil(t, GetContextFields(WithFields(ctx)))
	assert.Nil(t, GetContextFields(nil)) //nolint:staticcheck
}

func TestWithFieldsSkipsMalformedPairs(t *testing.T) {
	ctx := WithFields(context.Background(), "stage", "generate", 42, "x", "dangling")
	assert.Equal(t, []interface{}{"stage", "generate"}, GetContextFields(ctx))
}

func TestExtractOpenTelemetryFields(t *testing.T) {
	assert.Nil(t, GetContextFields(ExtractOpenTelemetryFields(context.Background())))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := ExtractOpenTelemetryFields(trace.ContextWithSpanContext(context.Background(), sc))

	assert.Equal(t, []interface{}{
		"span_id", "00f067aa0ba902b7",
		"trace_id", "4bf92f3577b34da6a3ce929d0e0e4736",
	}, GetContextFields(ctx))
}

func TestGetLoggerNeverNil(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
	assert.NotNil(t, GetLogger(WithRequestID(context.Background(), "req-1")))
}
