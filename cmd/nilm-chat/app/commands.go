package app

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/spf13/pflag"

	"github.com/kart-io/nilm-chat/cmd/nilm-chat/app/options"
	"github.com/kart-io/nilm-chat/internal/nilm"
	"github.com/kart-io/nilm-chat/internal/nilm/importer"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/infra/app"
)

// withStore initializes logging and the database, migrates the schema and
// runs fn against the store.
func withStore(opts *options.ServerOptions, fn func(ctx context.Context, f store.Factory) error) error {
	if err := nilm.InitLogger(opts.LogOptions); err != nil {
		return err
	}

	ctx := setupSignalContext()
	client, factory, err := nilm.OpenDatabase(ctx, opts.DatabaseOptions)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warnw("Failed to close database", "error", err.Error())
		}
	}()

	if err := factory.AutoMigrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return fn(ctx, factory)
}

// printRowCount reports how many measurements the table holds.
func printRowCount(ctx context.Context, f store.Factory) error {
	total, err := f.Measurements().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count measurements: %w", err)
	}
	fmt.Printf("electrical_data now holds %d rows\n", total)
	return nil
}

func migrateCommand(opts *options.ServerOptions) app.Command {
	var reset bool
	return app.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		AddFlags: func(fs *pflag.FlagSet) {
			fs.BoolVar(&reset, "reset", false, "Drop and recreate the electrical_data table (chat history is kept)")
		},
		Run: func([]string) error {
			return withStore(opts, func(ctx context.Context, f store.Factory) error {
				if reset {
					if err := f.ResetMeasurements(ctx); err != nil {
						return fmt.Errorf("failed to reset electrical_data: %w", err)
					}
					logger.Warnw("Measurement table reset", "table", "electrical_data")
				}
				logger.Infow("Database migration completed", "driver", opts.DatabaseOptions.Driver)
				return printRowCount(ctx, f)
			})
		},
	}
}

func importCommand(opts *options.ServerOptions) app.Command {
	var file string
	return app.Command{
		Use:   "import",
		Short: "Import measurements from a CSV export",
		AddFlags: func(fs *pflag.FlagSet) {
			fs.StringVarP(&file, "file", "f", "", "CSV file to import (required)")
		},
		Run: func([]string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			return withStore(opts, func(ctx context.Context, f store.Factory) error {
				im, err := importer.New(f.Measurements(), opts.ImportOptions, nil)
				if err != nil {
					return err
				}
				defer im.Close()

				report, err := im.ImportFile(ctx, file)
				if err != nil {
					return err
				}
				fmt.Printf("Import complete: %d read, %d imported, %d skipped, %d failed\n",
					report.Read, report.Imported, report.Skipped, report.Failed)
				return printRowCount(ctx, f)
			})
		},
	}
}

func seedCommand(opts *options.ServerOptions) app.Command {
	var (
		count int
		seed  uint64
	)
	return app.Command{
		Use:   "seed",
		Short: "Insert synthetic measurements covering the last 24 hours",
		AddFlags: func(fs *pflag.FlagSet) {
			fs.IntVar(&count, "count", 1000, "Number of rows to generate")
			fs.Uint64Var(&seed, "random-seed", 1, "Seed of the generator; equal seeds give equal data")
		},
		Run: func([]string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			return withStore(opts, func(ctx context.Context, f store.Factory) error {
				im, err := importer.New(f.Measurements(), opts.ImportOptions, nil)
				if err != nil {
					return err
				}
				defer im.Close()

				report, err := im.Seed(ctx, count, seed)
				if err != nil {
					return err
				}
				fmt.Printf("Seed complete: %d rows inserted\n", report.Imported)
				return printRowCount(ctx, f)
			})
		},
	}
}
