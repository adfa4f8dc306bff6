package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollector(reg, "nilm")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/devices/:cluster_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/devices/1", "/api/devices/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/devices/:cluster_id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests))

	expected := `
# HELP nilm_http_requests_active Current number of active requests.
# TYPE nilm_http_requests_active gauge
nilm_http_requests_active 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "nilm_http_requests_active"))
}

func TestTracingMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(Tracing("/health"))
	var fields []interface{}
	r.GET("/api/chat/history/:session_id", func(c *gin.Context) {
		fields = ctxlog.GetContextFields(c.Request.Context())
		c.Status(http.StatusInternalServerError)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chat/history/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/chat/history/:session_id", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	require.Len(t, fields, 4)
	assert.Equal(t, "span_id", fields[0])
	assert.Equal(t, "trace_id", fields[2])
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), fields[3])
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Logger(LoggerOptions{SkipPaths: []string{"/metrics"}}))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusTeapot, "tea") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "tea", w.Body.String())
}
