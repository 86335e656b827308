package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Validate checks the settings every command depends on.
// Catalog settings are checked separately by ValidateIncrementalUpdate
// so that commands not talking to the catalog work without them.
func (c *Config) Validate() error {
	var errs []error
	if err := validateGraph("buffer_graph", c.BufferGraph); err != nil {
		errs = append(errs, err)
	}
	if err := validateGraph("main_graph", c.MainGraph); err != nil {
		errs = append(errs, err)
	}
	if c.BufferSync.Enabled && c.BufferSync.Interval <= 0 {
		errs = append(errs, fmt.Errorf("buffer_sync.interval must be positive, got %s", c.BufferSync.Interval))
	}
	if c.BufferSync.MaxChainDepth < 0 {
		errs = append(errs, fmt.Errorf("buffer_sync.max_chain_depth must not be negative"))
	}
	if c.IncrementalUpdate.Enabled && c.IncrementalUpdate.Interval <= 0 {
		errs = append(errs, fmt.Errorf("incremental_update.interval must be positive, got %s", c.IncrementalUpdate.Interval))
	}
	if core.IsReservedLabel(c.IncrementalUpdate.EntityType) {
		errs = append(errs, fmt.Errorf("incremental_update.entity_type %q: %w", c.IncrementalUpdate.EntityType, core.ErrReservedLabel))
	}
	switch strings.ToLower(c.Output) {
	case "", "auto", "text", "markdown", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q (expected auto, text, markdown or json)", c.Output))
	}
	return errors.Join(errs...)
}

// ValidateIncrementalUpdate checks the settings the incremental update job needs.
func (c *Config) ValidateIncrementalUpdate() error {
	var missing []string
	if c.Catalog.BaseURL == "" {
		missing = append(missing, "catalog.base_url")
	}
	if c.IncrementalUpdate.ServerName == "" {
		missing = append(missing, "incremental_update.server_name")
	}
	if c.IncrementalUpdate.UserID == "" {
		missing = append(missing, "incremental_update.user_id")
	}
	if c.IncrementalUpdate.EntityType == "" {
		missing = append(missing, "incremental_update.entity_type")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incremental update is not configured: missing %s\nHint: Set them in %s or via %s* environment variables",
			strings.Join(missing, ", "), DefaultConfigFileName, EnvPrefix)
	}
	return nil
}

func validateGraph(key string, g core.GraphConfig) error {
	if g.Backend == "" {
		return fmt.Errorf("%s.backend is required", key)
	}
	if !graph.IsRegistered(g.Backend) {
		return fmt.Errorf("%s.backend: %w", key, &graph.UnknownBackendError{
			Backend:   g.Backend,
			Available: graph.ListBackends(),
		})
	}
	return nil
}
