// Package chat provides options of the chat pipeline.
package chat

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures history handling, the device window and session retention.
type Options struct {
	// MaxHistory is the number of prior turns included in a prompt.
	MaxHistory int `json:"max-history" mapstructure:"max-history"`
	// DeviceWindow is the trailing window, anchored at the newest record, used
	// to aggregate device readings.
	DeviceWindow time.Duration `json:"device-window" mapstructure:"device-window"`
	// MaxMessageLength bounds the user message length in characters.
	MaxMessageLength int `json:"max-message-length" mapstructure:"max-message-length"`
	// SessionRetention removes idle sessions older than this. 0 disables.
	SessionRetention time.Duration `json:"session-retention" mapstructure:"session-retention"`
	// RetentionSchedule is the cron spec of the retention sweep.
	RetentionSchedule string `json:"retention-schedule" mapstructure:"retention-schedule"`
}

// NewOptions creates default chat options.
func NewOptions() *Options {
	return &Options{
		MaxHistory:        10,
		DeviceWindow:      24 * time.Hour,
		MaxMessageLength:  4000,
		SessionRetention:  720 * time.Hour,
		RetentionSchedule: "0 * * * *",
	}
}

// AddFlags adds flags for chat options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "chat."
	fs.IntVar(&o.MaxHistory, p+"max-history", o.MaxHistory, "Number of prior turns included in the prompt.")
	fs.DurationVar(&o.DeviceWindow, p+"device-window", o.DeviceWindow, "Trailing window used to aggregate device readings.")
	fs.IntVar(&o.MaxMessageLength, p+"max-message-length", o.MaxMessageLength, "Maximum user message length.")
	fs.DurationVar(&o.SessionRetention, p+"session-retention", o.SessionRetention, "Delete sessions idle for longer than this, 0 disables.")
	fs.StringVar(&o.RetentionSchedule, p+"retention-schedule", o.RetentionSchedule, "Cron schedule of the retention sweep.")
}

// Validate validates the chat options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("chat.max-history must not be negative"))
	}
	if o.DeviceWindow <= 0 {
		errs = append(errs, fmt.Errorf("chat.device-window must be positive"))
	}
	if o.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("chat.max-message-length must be positive"))
	}
	if o.SessionRetention < 0 {
		errs = append(errs, fmt.Errorf("chat.session-retention must not be negative"))
	}
	if o.SessionRetention > 0 {
		if _, err := cron.ParseStandard(o.RetentionSchedule); err != nil {
			errs = append(errs, fmt.Errorf("chat.retention-schedule: %w", err))
		}
	}
	return errs
}

// Complete completes the chat options.
func (o *Options) Complete() error {
	return nil
}
