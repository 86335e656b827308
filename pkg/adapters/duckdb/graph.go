// Package duckdb provides a DuckDB graph backend.
//
// goose has no DuckDB dialect, so the schema is created from an embedded
// script written with IF NOT EXISTS clauses.
package duckdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

//go:embed schema.sql
var schemaSQL string

// Graph is a property graph stored in a DuckDB database.
type Graph struct {
	graph.BaseSQLGraph
}

// Open opens the DuckDB database at cfg.Path (in-memory when empty).
func Open(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path := cfg.Path
	if cfg.IsMemory() {
		path = ""
	}

	logger.Debug("opening duckdb graph", "path", path)

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}

	return &Graph{
		BaseSQLGraph: graph.BaseSQLGraph{
			DB:          db,
			GraphName:   cfg.Name,
			Placeholder: graph.PlaceholderQuestion,
			Logger:      logger,
		},
	}, nil
}
