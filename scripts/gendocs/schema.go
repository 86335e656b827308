package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/leaplineage/internal/catalog"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
	"github.com/leapstack-labs/leaplineage/internal/lineage"
)

// generateConfigDocs writes configuration.md into outDir.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writePage(outDir, "configuration.md", configurationPage())
}

// ConfigField documents one configuration key.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Description string
	Section     string
}

// Section names, in page order.
const (
	sectionLog     = "log"
	sectionGraph   = "graph"
	sectionSync    = "buffer_sync"
	sectionUpdate  = "incremental_update"
	sectionCatalog = "catalog"
)

// configSchema mirrors config.Config. Graph keys apply to both buffer_graph and main_graph.
func configSchema() []ConfigField {
	return []ConfigField{
		{Key: "log.level", Type: "string", Default: config.DefaultLogLevel, Description: "Log level: debug, info, warn, error", Section: sectionLog},
		{Key: "log.format", Type: "string", Default: config.DefaultLogFormat, Description: "Log handler: text or json", Section: sectionLog},
		{Key: "output", Type: "string", Default: config.DefaultOutput, Description: "Command output: auto, text, markdown, json", Section: sectionLog},

		{Key: "backend", Type: "string", Default: config.DefaultBackend, Description: "Graph backend: sqlite, duckdb, postgres, neo4j", Section: sectionGraph},
		{Key: "path", Type: "string", Description: "Database file for sqlite and duckdb. Empty or `:memory:` opens an in-memory graph. Relative paths resolve against the config file", Section: sectionGraph},
		{Key: "dsn", Type: "string", Description: "Connection string for postgres", Section: sectionGraph},
		{Key: "uri", Type: "string", Description: "Bolt URI for neo4j", Section: sectionGraph},
		{Key: "username", Type: "string", Description: "neo4j user", Section: sectionGraph},
		{Key: "password", Type: "string", Description: "neo4j password", Section: sectionGraph},
		{Key: "database", Type: "string", Description: "neo4j database, server default when empty", Section: sectionGraph},

		{Key: "buffer_sync.enabled", Type: "bool", Default: "true", Description: "Schedule the buffer sync in `serve`", Section: sectionSync},
		{Key: "buffer_sync.interval", Type: "duration", Default: config.DefaultSyncInterval.String(), Description: "Delay between sync runs", Section: sectionSync},
		{Key: "buffer_sync.run_on_start", Type: "bool", Default: "true", Description: "Run once immediately when `serve` starts", Section: sectionSync},
		{Key: "buffer_sync.max_chain_depth", Type: "int", Default: strconv.Itoa(lineage.DefaultMaxDepth), Description: "Hop limit of the path finder, 0 for unlimited", Section: sectionSync},

		{Key: "incremental_update.enabled", Type: "bool", Default: "true", Description: "Schedule the catalog update in `serve`", Section: sectionUpdate},
		{Key: "incremental_update.interval", Type: "duration", Default: config.DefaultUpdateInterval.String(), Description: "Delay between update runs", Section: sectionUpdate},
		{Key: "incremental_update.run_on_start", Type: "bool", Default: "true", Description: "Run once immediately when `serve` starts", Section: sectionUpdate},
		{Key: "incremental_update.server_name", Type: "string", Description: "Server name sent with every catalog request", Section: sectionUpdate},
		{Key: "incremental_update.user_id", Type: "string", Description: "User id sent with every catalog request", Section: sectionUpdate},
		{Key: "incremental_update.entity_type", Type: "string", Default: config.DefaultEntityType, Description: "Entity type queried for changes", Section: sectionUpdate},
		{Key: "incremental_update.checkpoint_key", Type: "string", Description: "Checkpoint row name, derived from server and entity type when empty", Section: sectionUpdate},

		{Key: "catalog.base_url", Type: "string", Description: "Base URL of the catalog REST API", Section: sectionCatalog},
		{Key: "catalog.timeout", Type: "duration", Default: catalog.DefaultTimeout.String(), Description: "Per-request timeout", Section: sectionCatalog},
		{Key: "catalog.token", Type: "string", Description: "Bearer token, supports `${VAR}` expansion", Section: sectionCatalog},
	}
}

func sectionRows(section string) [][]string {
	var rows [][]string
	for _, f := range configSchema() {
		if f.Section != section {
			continue
		}
		def := "-"
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, f.Description})
	}
	return rows
}

func configurationPage() *MarkdownWriter {
	headers := []string{"Key", "Type", "Default", "Description"}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Reference for leaplineage.yaml")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("LeapLineage reads " + InlineCode(config.DefaultConfigFileName) + " (or " +
		InlineCode(config.DefaultConfigFileNameAlt) + ") from the working directory, or the file passed with " +
		InlineCode("--config") + ". Values are layered in this order, later layers winning:")
	w.BulletList([]string{
		"Built-in defaults",
		"The config file",
		"Environment variables with the " + InlineCode(config.EnvPrefix) + " prefix",
		"Command-line flags",
	})

	w.Header(2, "Example")
	w.CodeBlock("yaml", `log:
  level: info
buffer_graph:
  backend: sqlite
  path: `+config.DefaultBufferPath+`
main_graph:
  backend: neo4j
  uri: bolt://localhost:7687
  username: neo4j
  password: ${NEO4J_PASSWORD}
buffer_sync:
  interval: `+config.DefaultSyncInterval.String()+`
incremental_update:
  server_name: prod
  user_id: lineage-bot
catalog:
  base_url: https://catalog.example.com/api
  token: ${CATALOG_TOKEN}`)

	w.Header(2, "Logging and Output")
	w.Table(headers, sectionRows(sectionLog))

	w.Header(2, "Graphs")
	w.Paragraph(InlineCode("buffer_graph") + " holds raw process and port lineage. " + InlineCode("main_graph") +
		" receives the resolved column mappings. Both take the same keys. The buffer defaults to " +
		InlineCode(config.DefaultBufferPath) + " and the main graph to " + InlineCode(config.DefaultMainPath) + ".")
	w.Table(headers, sectionRows(sectionGraph))
	w.Paragraph("Credentials in " + InlineCode("dsn") + ", " + InlineCode("uri") + ", " + InlineCode("username") +
		" and " + InlineCode("password") + " may reference environment variables as " + InlineCode("${VAR}") + ".")

	w.Header(2, "Buffer Sync")
	w.Table(headers, sectionRows(sectionSync))

	w.Header(2, "Incremental Update")
	w.Paragraph("The update job needs " + InlineCode("catalog.base_url") + ", " + InlineCode("server_name") +
		", " + InlineCode("user_id") + " and " + InlineCode("entity_type") + ". Commands that do not talk to the catalog ignore this section.")
	w.Table(headers, sectionRows(sectionUpdate))

	w.Header(2, "Catalog")
	w.Table(headers, sectionRows(sectionCatalog))

	w.Header(2, "Environment Variables")
	w.Paragraph("Nested keys use a double underscore, for example " + InlineCode(envName("buffer_sync.interval")) + ".")
	return w
}

// configDocPath is where configuration.md lands under the project root.
func configDocPath(projectRoot string) string {
	return filepath.Join(projectRoot, "docs", "concepts")
}
