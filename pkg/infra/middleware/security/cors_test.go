package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/nilm-chat/pkg/options/cors"
)

func newCORSEngine(t *testing.T, opts options.Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mw, err := CORS(opts)
	require.NoError(t, err)
	r := gin.New()
	r.Use(mw)
	r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSPreflight(t *testing.T) {
	r := newCORSEngine(t, *options.NewOptions())

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSUnknownOrigin(t *testing.T) {
	r := newCORSEngine(t, *options.NewOptions())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    options.Options
		wantErr bool
	}{
		{"defaults", *options.NewOptions(), false},
		{"empty", options.Options{}, true},
		{"wildcard with credentials", options.Options{AllowOrigins: []string{"*"}, AllowCredentials: true}, true},
		{"wildcard", options.Options{AllowOrigins: []string{"*"}}, false},
		{"missing scheme", options.Options{AllowOrigins: []string{"localhost:3000"}}, true},
		{"with path", options.Options{AllowOrigins: []string{"http://localhost:3000/app"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
