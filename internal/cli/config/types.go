// Package config provides configuration types and loading for the leaplineage CLI.
package config

import (
	"time"

	"github.com/leapstack-labs/leaplineage/internal/catalog"
	"github.com/leapstack-labs/leaplineage/internal/lineage"
	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Default values for configuration.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultOutput            = "auto"
	DefaultBackend           = "sqlite"
	DefaultBufferPath        = ".leaplineage/buffer.db"
	DefaultMainPath          = ".leaplineage/main.db"
	DefaultSyncInterval      = time.Minute
	DefaultUpdateInterval    = 5 * time.Minute
	DefaultEntityType        = "GlossaryTerm"
	DefaultConfigFileName    = "leaplineage.yaml"
	DefaultConfigFileNameAlt = "leaplineage.yml"
	EnvPrefix                = "LEAPLINEAGE_"
)

// Config holds all configuration for the leaplineage CLI.
type Config struct {
	Log               LogConfig               `koanf:"log"`
	BufferGraph       core.GraphConfig        `koanf:"buffer_graph"`
	MainGraph         core.GraphConfig        `koanf:"main_graph"`
	BufferSync        BufferSyncConfig        `koanf:"buffer_sync"`
	IncrementalUpdate IncrementalUpdateConfig `koanf:"incremental_update"`
	Catalog           CatalogConfig           `koanf:"catalog"`
	Output            string                  `koanf:"output"`

	// ConfigFile is the file that was loaded, empty when none was found.
	ConfigFile string `koanf:"-"`
}

// LogConfig controls the slog handler built by the root command.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// BufferSyncConfig schedules the buffer-to-main sync job.
type BufferSyncConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Interval      time.Duration `koanf:"interval"`
	RunOnStart    bool          `koanf:"run_on_start"`
	MaxChainDepth int           `koanf:"max_chain_depth"`
}

// IncrementalUpdateConfig schedules the catalog incremental update job.
type IncrementalUpdateConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Interval      time.Duration `koanf:"interval"`
	RunOnStart    bool          `koanf:"run_on_start"`
	ServerName    string        `koanf:"server_name"`
	UserID        string        `koanf:"user_id"`
	EntityType    string        `koanf:"entity_type"`
	CheckpointKey string        `koanf:"checkpoint_key"`
}

// CatalogConfig points at the asset catalog REST API.
type CatalogConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	Token   string        `koanf:"token"`
}

// defaults returns the lowest-priority configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"log.level":                         DefaultLogLevel,
		"log.format":                        DefaultLogFormat,
		"output":                            DefaultOutput,
		"buffer_graph.backend":              DefaultBackend,
		"buffer_graph.path":                 DefaultBufferPath,
		"main_graph.backend":                DefaultBackend,
		"main_graph.path":                   DefaultMainPath,
		"buffer_sync.enabled":               true,
		"buffer_sync.interval":              DefaultSyncInterval.String(),
		"buffer_sync.run_on_start":          true,
		"buffer_sync.max_chain_depth":       lineage.DefaultMaxDepth,
		"incremental_update.enabled":        true,
		"incremental_update.interval":       DefaultUpdateInterval.String(),
		"incremental_update.run_on_start":   true,
		"incremental_update.entity_type":    DefaultEntityType,
		"incremental_update.checkpoint_key": "",
		"catalog.timeout":                   catalog.DefaultTimeout.String(),
	}
}
