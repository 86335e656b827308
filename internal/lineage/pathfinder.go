package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// DefaultMaxDepth bounds the number of LineageMapping hops of one chain.
const DefaultMaxDepth = 64

// IsChainError reports whether err is a structural chain failure that
// should skip the candidate rather than fail the pass.
func IsChainError(err error) bool {
	return core.IsChainError(err)
}

// PathFinder resolves the output column at the end of a derivation chain.
type PathFinder struct {
	maxDepth int
	logger   *slog.Logger
}

// NewPathFinder creates a path finder. A maxDepth below 1 uses DefaultMaxDepth.
func NewPathFinder(maxDepth int, logger *slog.Logger) *PathFinder {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PathFinder{maxDepth: maxDepth, logger: logger}
}

// Resolve walks the chain from start and returns the target of the first
// SchemaAttributeType edge found. Failures wrap core.ErrBrokenChain,
// core.ErrCyclicChain or core.ErrChainTooDeep; storage errors are returned
// as they are.
func (f *PathFinder) Resolve(ctx context.Context, tx graph.Tx, start *core.Vertex) (*core.Vertex, error) {
	if start == nil {
		return nil, fmt.Errorf("%w: no start vertex", core.ErrBrokenChain)
	}

	visited := make(map[string]bool)
	current := start
	for hops := 0; ; hops++ {
		if hops > f.maxDepth {
			return nil, fmt.Errorf("%w: %d hops from %s", core.ErrChainTooDeep, f.maxDepth, start.Ref())
		}
		if visited[current.ID] {
			return nil, fmt.Errorf("%w: %s revisited from %s", core.ErrCyclicChain, current.Ref(), start.Ref())
		}
		visited[current.ID] = true

		terminal, err := f.first(ctx, tx, current, core.EdgeSchemaAttributeType)
		if err != nil {
			return nil, err
		}
		if terminal != nil {
			f.logger.Debug("derivation chain resolved",
				"from", start.Ref(),
				"to", terminal.Ref(),
				"hops", hops)
			return terminal, nil
		}

		next, err := f.first(ctx, tx, current, core.EdgeLineageMapping)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %s has neither %s nor %s edge",
				core.ErrBrokenChain, current.Ref(), core.EdgeSchemaAttributeType, core.EdgeLineageMapping)
		}
		current = next
	}
}

// first returns the target of v's first outgoing edge with the label, or nil.
func (f *PathFinder) first(ctx context.Context, tx graph.Tx, v *core.Vertex, label string) (*core.Vertex, error) {
	targets, err := tx.Neighbors(ctx, v, label, graph.Out)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s edges of %s: %w", label, v.Ref(), err)
	}
	if len(targets) == 0 {
		return nil, nil
	}
	if len(targets) > 1 {
		f.logger.Debug("multiple outgoing edges, using the first",
			"vertex", v.Ref(),
			"edge", label,
			"count", len(targets))
	}
	return targets[0], nil
}
