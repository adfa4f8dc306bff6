// Package database provides relational database options shared by the
// sqlite, mysql and postgres drivers.
package database

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options defines configuration options for the database.
type Options struct {
	// Driver selects the gorm dialector.
	Driver string `json:"driver" mapstructure:"driver"`
	// DSN is the driver specific connection string. For sqlite it is a file path.
	DSN                   string        `json:"-" mapstructure:"dsn"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	// LogLevel follows gorm: 1 silent, 2 error, 3 warn, 4 info.
	LogLevel      int           `json:"log-level" mapstructure:"log-level"`
	SlowThreshold time.Duration `json:"slow-threshold" mapstructure:"slow-threshold"`
	// AutoMigrate runs the schema migration when the server starts.
	AutoMigrate bool `json:"auto-migrate" mapstructure:"auto-migrate"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Driver:                DriverSQLite,
		DSN:                   "./nilm_chat.db",
		MaxIdleConnections:    10,
		MaxOpenConnections:    100,
		MaxConnectionLifeTime: time.Hour,
		LogLevel:              2,
		SlowThreshold:         200 * time.Millisecond,
		AutoMigrate:           true,
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "database."
	fs.StringVar(&o.Driver, p+"driver", o.Driver, "Database driver (sqlite, mysql, postgres).")
	fs.StringVar(&o.DSN, p+"dsn", o.DSN, "Database DSN or sqlite file path (prefer DATABASE_DSN env var for secrets).")
	fs.IntVar(&o.MaxIdleConnections, p+"max-idle-connections", o.MaxIdleConnections, "Max idle connections.")
	fs.IntVar(&o.MaxOpenConnections, p+"max-open-connections", o.MaxOpenConnections, "Max open connections.")
	fs.DurationVar(&o.MaxConnectionLifeTime, p+"max-connection-life-time", o.MaxConnectionLifeTime, "Max connection life time.")
	fs.IntVar(&o.LogLevel, p+"log-level", o.LogLevel, "Gorm log level (1 silent, 2 error, 3 warn, 4 info).")
	fs.DurationVar(&o.SlowThreshold, p+"slow-threshold", o.SlowThreshold, "Queries slower than this are logged as warnings.")
	fs.BoolVar(&o.AutoMigrate, p+"auto-migrate", o.AutoMigrate, "Migrate the schema on start.")
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	switch o.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", o.Driver))
	}
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn is required"))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("database.log-level must be between 1 and 4"))
	}
	return errs
}

// Complete fills the DSN from DATABASE_DSN when set.
func (o *Options) Complete() error {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		o.DSN = dsn
	}
	return nil
}
