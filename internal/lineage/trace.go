package lineage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// TraceDirection selects which side of a vertex a trace explores.
type TraceDirection int

const (
	Upstream TraceDirection = 1 << iota
	Downstream
	Both = Upstream | Downstream
)

// TraceNode is a vertex reached by a trace.
type TraceNode struct {
	GUID  string `json:"guid"`
	Label string `json:"label"`
	Name  string `json:"name,omitempty"`
	// Depth is the hop distance from the root; negative upstream.
	Depth int `json:"depth"`
}

// TraceEdge is a LineageMapping edge between two traced vertices.
type TraceEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Trace is the lineage neighbourhood of one vertex.
type Trace struct {
	Root  TraceNode   `json:"root"`
	Nodes []TraceNode `json:"nodes"`
	Edges []TraceEdge `json:"edges"`
}

// Tracer queries lineage in the main graph.
type Tracer struct {
	graph  graph.Graph
	logger *slog.Logger
}

// NewTracer creates a tracer over the main graph.
func NewTracer(main graph.Graph, logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracer{graph: main, logger: logger}
}

// Trace walks LineageMapping edges from the vertex with the GUID, breadth
// first, up to maxDepth hops in each requested direction (0 means unbounded).
func (t *Tracer) Trace(ctx context.Context, guid string, dir TraceDirection, maxDepth int) (*Trace, error) {
	tx, err := t.graph.Begin(ctx, graph.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin main graph transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	root, err := tx.FindVertex(ctx, "", core.Properties{core.PropGUID: guid})
	if err != nil {
		if errors.Is(err, core.ErrVertexNotFound) {
			return nil, fmt.Errorf("vertex %s: %w", guid, err)
		}
		return nil, fmt.Errorf("failed to look up vertex %s: %w", guid, err)
	}

	tr := &Trace{Root: nodeOf(root, 0)}
	seenEdges := make(map[TraceEdge]bool)
	addEdge := func(from, to *core.Vertex) {
		e := TraceEdge{From: from.GUID(), To: to.GUID()}
		if !seenEdges[e] {
			seenEdges[e] = true
			tr.Edges = append(tr.Edges, e)
		}
	}

	if dir&Upstream != 0 {
		if err := t.walk(ctx, tx, root, graph.In, maxDepth, -1, tr, addEdge); err != nil {
			return nil, err
		}
	}
	if dir&Downstream != 0 {
		if err := t.walk(ctx, tx, root, graph.Out, maxDepth, 1, tr, addEdge); err != nil {
			return nil, err
		}
	}

	t.logger.Debug("lineage traced",
		"guid", guid,
		"nodes", len(tr.Nodes),
		"edges", len(tr.Edges))
	return tr, nil
}

func (t *Tracer) walk(ctx context.Context, tx graph.Tx, root *core.Vertex, dir graph.Direction,
	maxDepth, sign int, tr *Trace, addEdge func(from, to *core.Vertex)) error {
	visited := map[string]bool{root.ID: true}
	frontier := []*core.Vertex{root}
	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var next []*core.Vertex
		for _, v := range frontier {
			neighbors, err := tx.Neighbors(ctx, v, core.EdgeLineageMapping, dir)
			if err != nil {
				return fmt.Errorf("failed to read lineage of %s: %w", v.Ref(), err)
			}
			for _, n := range neighbors {
				if dir == graph.Out {
					addEdge(v, n)
				} else {
					addEdge(n, v)
				}
				if visited[n.ID] {
					continue
				}
				visited[n.ID] = true
				tr.Nodes = append(tr.Nodes, nodeOf(n, sign*depth))
				next = append(next, n)
			}
		}
		frontier = next
	}
	return nil
}

func nodeOf(v *core.Vertex, depth int) TraceNode {
	return TraceNode{GUID: v.GUID(), Label: v.Label, Name: v.Name(), Depth: depth}
}
