// Package options contains flags and options for initializing the NILM chat server.
package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/nilm-chat/internal/nilm"
	"github.com/kart-io/nilm-chat/pkg/infra/app"
	chatopts "github.com/kart-io/nilm-chat/pkg/options/chat"
	corsopts "github.com/kart-io/nilm-chat/pkg/options/cors"
	dbopts "github.com/kart-io/nilm-chat/pkg/options/database"
	httpopts "github.com/kart-io/nilm-chat/pkg/options/http"
	importopts "github.com/kart-io/nilm-chat/pkg/options/importer"
	llmopts "github.com/kart-io/nilm-chat/pkg/options/llm"
	logopts "github.com/kart-io/nilm-chat/pkg/options/logger"
	redisopts "github.com/kart-io/nilm-chat/pkg/options/redis"
	tracingopts "github.com/kart-io/nilm-chat/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server and the
// ingestion commands.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"server" mapstructure:"server"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// DatabaseOptions contains database configuration.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	// RedisOptions contains the device cache configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// LLMOptions contains language model configuration.
	LLMOptions *llmopts.Options `json:"llm" mapstructure:"llm"`

	// ChatOptions contains conversation configuration.
	ChatOptions *chatopts.Options `json:"chat" mapstructure:"chat"`

	// CORSOptions contains CORS middleware configuration.
	CORSOptions *corsopts.Options `json:"cors" mapstructure:"cors"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// ImportOptions contains bulk ingestion configuration.
	ImportOptions *importopts.Options `json:"import" mapstructure:"import"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:     httpopts.NewOptions(),
		LogOptions:      logopts.NewOptions(),
		DatabaseOptions: dbopts.NewOptions(),
		RedisOptions:    redisopts.NewOptions(),
		LLMOptions:      llmopts.NewOptions(),
		ChatOptions:     chatopts.NewOptions(),
		CORSOptions:     corsopts.NewOptions(),
		TracingOptions:  tracingopts.NewOptions(),
		ImportOptions:   importopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("server"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.LLMOptions.AddFlags(fss.FlagSet("llm"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.CORSOptions.AddFlags(fss.FlagSet("cors"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.ImportOptions.AddFlags(fss.FlagSet("import"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	for _, c := range []interface{ Complete() error }{
		o.HTTPOptions, o.LogOptions, o.DatabaseOptions, o.RedisOptions,
		o.LLMOptions, o.ChatOptions, o.CORSOptions, o.TracingOptions,
		o.ImportOptions,
	} {
		if err := c.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.DatabaseOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.CORSOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.ImportOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a nilm.Config based on ServerOptions.
func (o *ServerOptions) Config() (*nilm.Config, error) {
	return &nilm.Config{
		HTTPOptions:     o.HTTPOptions,
		LogOptions:      o.LogOptions,
		DatabaseOptions: o.DatabaseOptions,
		RedisOptions:    o.RedisOptions,
		LLMOptions:      o.LLMOptions,
		ChatOptions:     o.ChatOptions,
		CORSOptions:     o.CORSOptions,
		TracingOptions:  o.TracingOptions,
	}, nil
}
