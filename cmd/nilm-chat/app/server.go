// Package app provides the NILM chat application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/nilm-chat/cmd/nilm-chat/app/options"
	"github.com/kart-io/nilm-chat/internal/nilm"
	"github.com/kart-io/nilm-chat/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `NILM Chat Service

Conversational access to non-intrusive load monitoring data.

This server provides:
  - Chat answers grounded on the devices active in the latest readings
  - Power metrics, device summaries and raw measurement access
  - CSV import and synthetic data seeding for the measurement store`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(nilm.Name),
		app.WithShortDescription(nilm.Title),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
		app.WithCommand(serveCommand(opts)),
		app.WithCommand(migrateCommand(opts)),
		app.WithCommand(importCommand(opts)),
		app.WithCommand(seedCommand(opts)),
	)
}

func serveCommand(opts *options.ServerOptions) app.Command {
	return app.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Run: func([]string) error {
			return run(opts)()
		},
	}
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		// Run the server with signal context for graceful shutdown
		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
