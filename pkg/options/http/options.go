// Package http provides HTTP server configuration options.
package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains HTTP server configuration.
type Options struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`
	// APIPrefix is the route group all API endpoints are mounted under.
	APIPrefix string `json:"api-prefix" mapstructure:"api-prefix"`
	// Mode is the gin mode (debug, release, test).
	Mode string `json:"mode" mapstructure:"mode"`
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	// RequestTimeout bounds a single request, including model inference.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
	// EnableSwagger mounts /swagger/*any.
	EnableSwagger bool `json:"enable-swagger" mapstructure:"enable-swagger"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:            ":8000",
		APIPrefix:       "/api",
		Mode:            "release",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    150 * time.Second,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		EnableSwagger:   true,
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "server."
	fs.StringVar(&o.Addr, p+"addr", o.Addr, "HTTP server listen address.")
	fs.StringVar(&o.APIPrefix, p+"api-prefix", o.APIPrefix, "Route prefix of the API endpoints.")
	fs.StringVar(&o.Mode, p+"mode", o.Mode, "Gin mode (debug, release, test).")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "HTTP server read timeout.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "HTTP server write timeout.")
	fs.DurationVar(&o.IdleTimeout, p+"idle-timeout", o.IdleTimeout, "HTTP server idle timeout.")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Per request timeout, 0 disables.")
	fs.DurationVar(&o.ShutdownTimeout, p+"shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
	fs.BoolVar(&o.EnableSwagger, p+"enable-swagger", o.EnableSwagger, "Serve the swagger UI.")
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr cannot be empty"))
	}
	if o.APIPrefix != "" && !strings.HasPrefix(o.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("server.api-prefix must start with '/'"))
	}
	switch o.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be one of debug, release, test"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write-timeout must be positive"))
	}
	if o.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.request-timeout must not be negative"))
	}
	return errs
}

// Complete completes the HTTP options with defaults.
func (o *Options) Complete() error {
	o.APIPrefix = strings.TrimSuffix(o.APIPrefix, "/")
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	return nil
}
