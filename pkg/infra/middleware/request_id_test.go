package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/requestutil"
)

type staticGen string

func (g staticGen) Generate() string { return string(g) }

func newEngine(mw gin.HandlerFunc) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	seen := new(string)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) {
		*seen = requestutil.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r, seen
}

func TestRequestIDGenerated(t *testing.T) {
	r, seen := newEngine(RequestIDWithConfig(RequestIDConfig{Generator: staticGen("01HX")}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "01HX", w.Header().Get(requestutil.HeaderXRequestID))
	assert.Equal(t, "01HX", *seen)
}

func TestRequestIDPropagated(t *testing.T) {
	r, seen := newEngine(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestutil.HeaderXRequestID, "client-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-id", w.Header().Get(requestutil.HeaderXRequestID))
	assert.Equal(t, "client-id", *seen)
}

func TestRequestIDDefaultIsULID(t *testing.T) {
	r, seen := newEngine(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Len(t, *seen, 26)
}

func TestRequestIDAddedToLogFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var fields []interface{}
	r := gin.New()
	r.Use(RequestIDWithConfig(RequestIDConfig{Generator: staticGen("01HX")}))
	r.GET("/ping", func(c *gin.Context) {
		fields = ctxlog.GetContextFields(c.Request.Context())
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, []interface{}{"request_id", "01HX"}, fields)
}
