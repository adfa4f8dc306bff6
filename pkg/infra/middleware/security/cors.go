// Package security provides the CORS middleware.
package security

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	options "github.com/kart-io/nilm-chat/pkg/options/cors"
)

// ValidateOptions validates CORS options.
func ValidateOptions(opts options.Options) error {
	if len(opts.AllowOrigins) == 0 {
		return fmt.Errorf("CORS: AllowOrigins must be explicitly configured, empty list not allowed")
	}

	hasWildcard := false
	for _, origin := range opts.AllowOrigins {
		if origin == "*" {
			hasWildcard = true
			continue
		}
		if err := validateOriginFormat(origin); err != nil {
			return fmt.Errorf("CORS: invalid origin format '%s': %w", origin, err)
		}
	}

	if hasWildcard && opts.AllowCredentials {
		return fmt.Errorf("CORS: cannot use wildcard origin '*' with AllowCredentials=true (RFC6454 security requirement)")
	}

	return nil
}

// validateOriginFormat checks the scheme://host[:port] form.
func validateOriginFormat(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin cannot be empty")
	}

	schemeIdx := strings.Index(origin, "://")
	if schemeIdx < 0 {
		return fmt.Errorf("origin must include scheme (http:// or https://)")
	}

	if strings.ContainsAny(origin[schemeIdx+3:], "/?#") {
		return fmt.Errorf("origin should not include path, query, or fragment")
	}

	return nil
}

// CORS returns a CORS middleware. Invalid options fail at startup.
func CORS(opts options.Options) (gin.HandlerFunc, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		}
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 86400
	}

	allowMethods := strings.Join(opts.AllowMethods, ", ")
	allowHeaders := strings.Join(opts.AllowHeaders, ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(c *gin.Context) {
		req := c.Request
		origin := req.Header.Get("Origin")

		allowedOrigin := ""
		for _, o := range opts.AllowOrigins {
			if o == "*" || o == origin {
				allowedOrigin = o
				break
			}
		}

		if allowedOrigin == "" || origin == "" {
			c.Next()
			return
		}

		// 具体 origin 回显时需要 Vary，避免缓存串用
		if allowedOrigin != "*" {
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Origin", allowedOrigin)

		if opts.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if exposeHeaders != "" {
			c.Header("Access-Control-Expose-Headers", exposeHeaders)
		}

		if req.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			if allowHeaders != "" {
				c.Header("Access-Control-Allow-Headers", allowHeaders)
			}
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}, nil
}
