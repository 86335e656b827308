// Package sqlite provides the SQLite graph backend. It is the default
// backend for both the buffer and the main graph.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Graph is a property graph stored in a SQLite database.
type Graph struct {
	graph.BaseSQLGraph
	path string
}

// Open opens (or creates) the SQLite database at cfg.Path and migrates the
// graph schema. An empty path or ":memory:" opens a private in-memory graph.
func Open(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := ":memory:?_pragma=foreign_keys(1)"
	if !cfg.IsMemory() {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	}

	logger.Debug("opening sqlite graph", "path", cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every new connection to ":memory:" is a new empty database.
	if cfg.IsMemory() {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := graph.Migrate(ctx, db, goose.DialectSQLite3); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Graph{
		BaseSQLGraph: graph.BaseSQLGraph{
			DB:          db,
			GraphName:   cfg.Name,
			Placeholder: graph.PlaceholderQuestion,
			Logger:      logger,
		},
		path: cfg.Path,
	}, nil
}

// Path returns the database file path ("" for in-memory graphs).
func (g *Graph) Path() string {
	return g.path
}
