package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/nextact/pkg/app"
	"github.com/harrisonrobin/nextact/pkg/config"
	"github.com/harrisonrobin/nextact/pkg/logging"
)

// version is set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nextact",
		Short: "Lists the next actions of every project in your task manager",
		Long: `nextact reads ~/.config/nextact/config.json, authenticates against the
configured task service and prints, for every list whose name carries the
project prefix, the tasks due soonest plus every task tagged as a next action.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE:          runReport,
	}
	root.SetVersionTemplate(`{{printf "nextact version %s\n" .Version}}`)

	root.AddCommand(
		&cobra.Command{
			Use:   "report",
			Short: "Print next actions per project (default)",
			Args:  cobra.NoArgs,
			RunE:  runReport,
		},
		&cobra.Command{
			Use:   "auth",
			Short: "Discard the cached token and authorize again",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, sync, err := loadApp()
				if err != nil {
					return err
				}
				defer sync()
				return a.Reauthenticate(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "snapshot",
			Short: "Dump the fetched projects, tasks and selection as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, sync, err := loadApp()
				if err != nil {
					return err
				}
				defer sync()
				return a.Snapshot(cmd.Context())
			},
		},
	)
	return root
}

func runReport(cmd *cobra.Command, args []string) error {
	a, sync, err := loadApp()
	if err != nil {
		return err
	}
	defer sync()
	return a.Run(cmd.Context())
}

// loadApp reads the configuration before anything touches the network.
func loadApp() (*app.App, func(), error) {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return nil, nil, fmt.Errorf("could not find path to configuration file: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	cachePath, err := config.GetCachePath()
	if err != nil {
		return nil, nil, fmt.Errorf("could not find path to cache file: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	sync := func() { _ = logger.Sync() }

	a, err := app.New(cfg, cachePath, os.Stdout, os.Stderr, logger)
	if err != nil {
		sync()
		return nil, nil, err
	}
	return a, sync, nil
}
