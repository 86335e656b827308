package duckdb

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

func init() {
	graph.Register("duckdb", func(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (graph.Graph, error) {
		return Open(ctx, cfg, logger)
	})
}
