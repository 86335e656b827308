package lineage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Process identifies a buffer graph process to mirror into the main graph.
type Process struct {
	GUID string
	Name string
}

// ResolveResult is the outcome of resolving one triple.
type ResolveResult int

const (
	// ResolveSkipped means an endpoint column is missing from the main graph
	// and nothing was written.
	ResolveSkipped ResolveResult = iota
	// ResolveUnchanged means the triple already existed.
	ResolveUnchanged
	// ResolveCreated means the Process vertex or at least one edge was written.
	ResolveCreated
)

func (r ResolveResult) String() string {
	switch r {
	case ResolveCreated:
		return "created"
	case ResolveUnchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

// Resolver materializes derived lineage triples in the main graph.
type Resolver struct {
	graph  graph.Graph
	logger *slog.Logger
}

// NewResolver creates a resolver writing to the given main graph.
func NewResolver(main graph.Graph, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{graph: main, logger: logger}
}

// Resolve writes input -> process -> output in one transaction. Any error
// rolls the transaction back; the caller decides whether to continue.
func (r *Resolver) Resolve(ctx context.Context, inputGUID string, proc Process, outputGUID string) (ResolveResult, error) {
	if inputGUID == "" || outputGUID == "" || proc.GUID == "" {
		return ResolveSkipped, fmt.Errorf("incomplete triple (%q, %q, %q)", inputGUID, proc.GUID, outputGUID)
	}

	log := r.logger.With(
		"process_guid", proc.GUID,
		"input_guid", inputGUID,
		"output_guid", outputGUID)

	tx, err := r.graph.Begin(ctx, graph.TxOptions{})
	if err != nil {
		return ResolveSkipped, fmt.Errorf("failed to begin main graph transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	input, err := findColumn(ctx, tx, inputGUID)
	if err != nil {
		return ResolveSkipped, err
	}
	output, err := findColumn(ctx, tx, outputGUID)
	if err != nil {
		return ResolveSkipped, err
	}
	if input == nil || output == nil {
		log.Debug("endpoint column not in main graph, skipping",
			"input_found", input != nil,
			"output_found", output != nil)
		return ResolveSkipped, nil
	}

	process, created, err := findOrCreateProcess(ctx, tx, proc)
	if err != nil {
		return ResolveSkipped, err
	}
	inCreated, err := ensureEdge(ctx, tx, core.EdgeLineageMapping, input, process)
	if err != nil {
		return ResolveSkipped, err
	}
	outCreated, err := ensureEdge(ctx, tx, core.EdgeLineageMapping, process, output)
	if err != nil {
		return ResolveSkipped, err
	}

	if !created && !inCreated && !outCreated {
		log.Debug("lineage triple already present")
		return ResolveUnchanged, nil
	}
	if err := tx.Commit(); err != nil {
		return ResolveSkipped, fmt.Errorf("failed to commit lineage for process %s: %w", proc.GUID, err)
	}
	log.Debug("lineage triple created",
		"process_created", created,
		"input_edge_created", inCreated,
		"output_edge_created", outCreated)
	return ResolveCreated, nil
}

// findColumn looks a column up by GUID under any label; nil when absent.
func findColumn(ctx context.Context, tx graph.Tx, guid string) (*core.Vertex, error) {
	v, err := tx.FindVertex(ctx, "", core.Properties{core.PropGUID: guid})
	if errors.Is(err, core.ErrVertexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up column %s: %w", guid, err)
	}
	return v, nil
}

func findOrCreateProcess(ctx context.Context, tx graph.Tx, proc Process) (*core.Vertex, bool, error) {
	v, err := tx.FindVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: proc.GUID})
	if err == nil {
		return v, false, nil
	}
	if !errors.Is(err, core.ErrVertexNotFound) {
		return nil, false, fmt.Errorf("failed to look up process %s: %w", proc.GUID, err)
	}

	v, err = tx.CreateVertex(ctx, core.LabelProcess, core.Properties{
		core.PropGUID: proc.GUID,
		core.PropName: proc.Name,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create process %s: %w", proc.GUID, err)
	}
	return v, true, nil
}

func ensureEdge(ctx context.Context, tx graph.Tx, label string, from, to *core.Vertex) (bool, error) {
	exists, err := tx.HasEdge(ctx, label, from, to)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := tx.CreateEdge(ctx, label, from, to); err != nil {
		return false, fmt.Errorf("failed to create %s edge %s -> %s: %w", label, from.Ref(), to.Ref(), err)
	}
	return true, nil
}
