package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/engine"
	"github.com/leapstack-labs/leaplineage/internal/scheduler"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lineage jobs on their schedules",
		Long: `Open both graphs and run the buffer sync and incremental update jobs at
their configured intervals until interrupted.

A job whose previous run is still active when its timer fires skips that
tick. On SIGINT or SIGTERM no new runs start and running ones are allowed to
finish.`,
		Example: `  # Run with leaplineage.yaml from the current directory
  leaplineage serve

  # Buffer sync only, every 30 seconds
  LEAPLINEAGE_INCREMENTAL_UPDATE__ENABLED=false \
  LEAPLINEAGE_BUFFER_SYNC__INTERVAL=30s leaplineage serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.IncrementalUpdate.Enabled {
		if err := cfg.ValidateIncrementalUpdate(); err != nil {
			return fmt.Errorf("%w\nHint: Set incremental_update.enabled to false to run only the buffer sync", err)
		}
	}
	if !cfg.BufferSync.Enabled && !cfg.IncrementalUpdate.Enabled {
		return errors.New("no jobs enabled: enable buffer_sync or incremental_update")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cmdCtx.Logger
	s := scheduler.New(logger)
	n, err := cmdCtx.Engine.Schedule(s,
		engine.Schedule{
			Enabled:    cfg.BufferSync.Enabled,
			Interval:   cfg.BufferSync.Interval,
			RunOnStart: cfg.BufferSync.RunOnStart,
		},
		engine.Schedule{
			Enabled:    cfg.IncrementalUpdate.Enabled,
			Interval:   cfg.IncrementalUpdate.Interval,
			RunOnStart: cfg.IncrementalUpdate.RunOnStart,
		})
	if err != nil {
		return err
	}

	logger.Info("lineage service started",
		"jobs", n,
		"buffer_graph", cfg.BufferGraph.Backend,
		"main_graph", cfg.MainGraph.Backend)
	if err := s.Run(ctx); err != nil {
		return err
	}
	logger.Info("lineage service stopped")
	return nil
}
