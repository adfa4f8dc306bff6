// Package logger carries structured log fields on a context so that request,
// trace and session identifiers follow a chat request through every layer.
package logger

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const loggerFieldsKey contextKey = iota

// Field keys written by the helpers in this package.
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldSessionID = "session_id"
)

// loggerFields is immutable once stored in a context.
type loggerFields map[string]interface{}

func fieldsFrom(ctx context.Context) loggerFields {
	if ctx == nil {
		return nil
	}
	lf, _ := ctx.Value(loggerFieldsKey).(loggerFields)
	return lf
}

func withFields(ctx context.Context, kv map[string]interface{}) context.Context {
	if len(kv) == 0 {
		return ctx
	}
	prev := fieldsFrom(ctx)
	next := make(loggerFields, len(prev)+len(kv))
	for k, v := range prev {
		next[k] = v
	}
	for k, v := range kv {
		next[k] = v
	}
	return context.WithValue(ctx, loggerFieldsKey, next)
}

// WithRequestID adds request_id to the context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withFields(ctx, map[string]interface{}{FieldRequestID: requestID})
}

// WithSessionID adds session_id to the context logger fields.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return withFields(ctx, map[string]interface{}{FieldSessionID: sessionID})
}

// WithFields adds key-value pairs to the context logger fields.
// A trailing key without a value and non-string keys are ignored.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	kv := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok && key != "" {
			kv[key] = keysAndValues[i+1]
		}
	}
	return withFields(ctx, kv)
}

// ExtractOpenTelemetryFields copies trace_id and span_id from the active span.
func ExtractOpenTelemetryFields(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return withFields(ctx, map[string]interface{}{
		FieldTraceID: sc.TraceID().String(),
		FieldSpanID:  sc.SpanID().String(),
	})
}

// GetContextFields returns the context fields as a key-value slice sorted by
// key, or nil when none are set.
func GetContextFields(ctx context.Context) []interface{} {
	lf := fieldsFrom(ctx)
	if len(lf) == 0 {
		return nil
	}
	keys := make([]string, 0, len(lf))
	for k := range lf {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, lf[k])
	}
	return out
}

// GetLogger returns the global logger enriched with the context fields.
func GetLogger(ctx context.Context) core.Logger {
	fields := GetContextFields(ctx)
	if len(fields) == 0 {
		return logger.Global()
	}
	return logger.Global().With(fields...)
}
