// Package importer provides options of the CSV import and seed commands.
package importer

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures bulk ingestion.
type Options struct {
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
	Workers   int `json:"workers" mapstructure:"workers"`
}

// NewOptions creates default import options.
func NewOptions() *Options {
	return &Options{
		BatchSize: 1000,
		Workers:   4,
	}
}

// AddFlags adds flags for import options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "import."
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Rows per insert batch.")
	fs.IntVar(&o.Workers, p+"workers", o.Workers, "Concurrent insert workers.")
}

// Validate validates the import options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("import.batch-size must be positive"))
	}
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("import.workers must be positive"))
	}
	return errs
}

// Complete completes the import options.
func (o *Options) Complete() error {
	return nil
}
