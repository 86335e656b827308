package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/catalog"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/engine"
	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close graphs", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}, cleanup, nil
}

// getConfig returns the configuration loaded by the root command, loading
// defaults when the command runs on its own.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return config.Load("", nil)
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	for _, g := range []core.GraphConfig{cfg.BufferGraph, cfg.MainGraph} {
		if err := ensureGraphDir(g); err != nil {
			return nil, err
		}
	}

	engineCfg := engine.Config{
		BufferGraph:   cfg.BufferGraph,
		MainGraph:     cfg.MainGraph,
		MaxChainDepth: cfg.BufferSync.MaxChainDepth,
		Update: engine.UpdateConfig{
			ServerName:    cfg.IncrementalUpdate.ServerName,
			UserID:        cfg.IncrementalUpdate.UserID,
			EntityType:    cfg.IncrementalUpdate.EntityType,
			CheckpointKey: cfg.IncrementalUpdate.CheckpointKey,
		},
		Logger: logger,
	}

	// The catalog client is only wired when the update settings are complete;
	// commands that need it validate first and report what is missing.
	if cfg.ValidateIncrementalUpdate() == nil {
		client, err := catalog.NewHTTPClient(catalog.Config{
			BaseURL: cfg.Catalog.BaseURL,
			Token:   cfg.Catalog.Token,
			Timeout: cfg.Catalog.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		engineCfg.Catalog = client
	}

	return engine.New(ctx, engineCfg)
}

// ensureGraphDir creates the parent directory of a file-based graph.
func ensureGraphDir(g core.GraphConfig) error {
	switch strings.ToLower(g.Backend) {
	case "sqlite", "duckdb":
	default:
		return nil
	}
	if g.IsMemory() {
		return nil
	}
	dir := filepath.Dir(g.Path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s graph directory: %w", g.Name, err)
	}
	return nil
}
