// Package postgres provides a PostgreSQL graph backend.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Graph is a property graph stored in PostgreSQL tables.
type Graph struct {
	graph.BaseSQLGraph
}

// Open connects to cfg.DSN and migrates the graph schema.
func Open(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres graph requires a dsn")
	}

	logger.Debug("connecting to postgres graph")

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := graph.Migrate(ctx, db, goose.DialectPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Graph{
		BaseSQLGraph: graph.BaseSQLGraph{
			DB:          db,
			GraphName:   cfg.Name,
			Placeholder: graph.PlaceholderDollar,
			Logger:      logger,
		},
	}, nil
}
