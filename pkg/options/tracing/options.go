// Package tracing provides OpenTelemetry tracing options.
package tracing

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Exporter names.
const (
	ExporterNoop     = "noop"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlphttp"
	ExporterOTLPGRPC = "otlpgrpc"
)

// Options configures the tracer provider.
type Options struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	Exporter    string  `json:"exporter" mapstructure:"exporter"`
	Endpoint    string  `json:"endpoint" mapstructure:"endpoint"`
	Insecure    bool    `json:"insecure" mapstructure:"insecure"`
	SampleRatio float64 `json:"sample-ratio" mapstructure:"sample-ratio"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:     false,
		Exporter:    ExporterStdout,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		SampleRatio: 1.0,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "tracing."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable OpenTelemetry tracing.")
	fs.StringVar(&o.Exporter, p+"exporter", o.Exporter, "Trace exporter (noop, stdout, otlphttp, otlpgrpc).")
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "OTLP collector endpoint.")
	fs.BoolVar(&o.Insecure, p+"insecure", o.Insecure, "Disable TLS towards the collector.")
	fs.Float64Var(&o.SampleRatio, p+"sample-ratio", o.SampleRatio, "Trace sampling ratio in [0, 1].")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	var errs []error
	switch o.Exporter {
	case ExporterNoop, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not supported", o.Exporter))
	}
	if o.SampleRatio < 0 || o.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample-ratio must be in [0, 1]"))
	}
	return errs
}

// Complete completes the tracing options.
func (o *Options) Complete() error {
	return nil
}
