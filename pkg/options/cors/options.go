// Package cors provides CORS middleware options.
package cors

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options defines CORS middleware options.
type Options struct {
	AllowOrigins     []string `json:"allow-origins" mapstructure:"allow-origins"`
	AllowMethods     []string `json:"allow-methods" mapstructure:"allow-methods"`
	AllowHeaders     []string `json:"allow-headers" mapstructure:"allow-headers"`
	ExposeHeaders    []string `json:"expose-headers" mapstructure:"expose-headers"`
	AllowCredentials bool     `json:"allow-credentials" mapstructure:"allow-credentials"`
	MaxAge           int      `json:"max-age" mapstructure:"max-age"`
}

// NewOptions creates default CORS options.
func NewOptions() *Options {
	return &Options{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// AddFlags adds flags for CORS options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cors."
	fs.StringSliceVar(&o.AllowOrigins, p+"allow-origins", o.AllowOrigins, "CORS allowed origins.")
	fs.StringSliceVar(&o.AllowMethods, p+"allow-methods", o.AllowMethods, "CORS allowed methods.")
	fs.StringSliceVar(&o.AllowHeaders, p+"allow-headers", o.AllowHeaders, "CORS allowed headers.")
	fs.StringSliceVar(&o.ExposeHeaders, p+"expose-headers", o.ExposeHeaders, "CORS exposed headers.")
	fs.BoolVar(&o.AllowCredentials, p+"allow-credentials", o.AllowCredentials, "CORS allow credentials.")
	fs.IntVar(&o.MaxAge, p+"max-age", o.MaxAge, "CORS preflight max age.")
}

// Validate validates the CORS options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if len(o.AllowOrigins) == 0 {
		errs = append(errs, errors.New("cors: allow-origins must be explicitly configured, empty list not allowed"))
	}
	if o.AllowCredentials {
		for _, origin := range o.AllowOrigins {
			if origin == "*" {
				errs = append(errs, errors.New("cors: wildcard origin cannot be combined with allow-credentials"))
				break
			}
		}
	}
	return errs
}

// Complete completes the CORS options with defaults.
func (o *Options) Complete() error {
	return nil
}
