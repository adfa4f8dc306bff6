package observability

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/requestutil"
)

// TracerName is the name of the tracer for HTTP middleware.
const TracerName = "github.com/kart-io/nilm-chat/pkg/infra/middleware"

// Tracing creates a tracing middleware.
//
// This middleware:
//   - Extracts trace context from incoming requests (W3C Trace Context)
//   - Creates a server span named "{method} {route}"
//   - Copies trace_id and span_id into the context log fields
//   - Records the status code and marks 5xx responses as errors
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skip[req.URL.Path]; ok {
			c.Next()
			return
		}

		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}

		ctx, span := otel.Tracer(TracerName).Start(ctx, fmt.Sprintf("%s %s", req.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(req.Method),
				semconv.HTTPRoute(route),
				semconv.HTTPTarget(req.URL.RequestURI()),
				attribute.String("request.id", requestutil.GetRequestID(req.Context())),
			),
		)
		defer span.End()

		c.Request = req.WithContext(ctxlog.ExtractOpenTelemetryFields(ctx))
		propagator.Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}
	}
}
