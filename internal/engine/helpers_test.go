package engine_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/testutil"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// mainColumns is the part of the main graph populated by other subsystems.
const mainColumns = `
vertices:
  - {ref: colIn, label: SchemaAttribute, properties: {name: customer_id}}
  - {ref: colOut, label: SchemaAttribute, properties: {name: customer_key}}
`

func scenarioBuffer(t *testing.T) *testGraph {
	t.Helper()
	data, err := os.ReadFile("testdata/buffer_scenario.yaml")
	require.NoError(t, err)
	g := testutil.NewMemoryGraph(t, "buffer")
	testutil.Seed(t, g, string(data))
	return &testGraph{Graph: g}
}

// testGraph wraps a graph so tests can block or fail transactions.
type testGraph struct {
	graph.Graph

	mu sync.Mutex
	// block, when set, makes Begin wait until it is closed; entered is
	// closed by the first blocked Begin.
	block   chan struct{}
	entered chan struct{}
	// failNeighbors makes Neighbors fail inside transactions.
	failNeighbors error
	// failCreate makes vertex creation fail inside transactions.
	failCreate error
}

func (g *testGraph) blockBegin() (entered chan struct{}, release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.block = make(chan struct{})
	g.entered = make(chan struct{})
	var once sync.Once
	return g.entered, func() { once.Do(func() { close(g.block) }) }
}

func (g *testGraph) Begin(ctx context.Context, opts graph.TxOptions) (graph.Tx, error) {
	g.mu.Lock()
	block, entered := g.block, g.entered
	if entered != nil {
		close(entered)
		g.entered = nil
	}
	failN, failC := g.failNeighbors, g.failCreate
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-time.After(5 * time.Second):
		}
	}

	tx, err := g.Graph.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &testTx{Tx: tx, failNeighbors: failN, failCreate: failC}, nil
}

type testTx struct {
	graph.Tx
	failNeighbors error
	failCreate    error
}

func (tx *testTx) Neighbors(ctx context.Context, v *core.Vertex, label string, dir graph.Direction) ([]*core.Vertex, error) {
	if tx.failNeighbors != nil {
		return nil, tx.failNeighbors
	}
	return tx.Tx.Neighbors(ctx, v, label, dir)
}

func (tx *testTx) CreateVertex(ctx context.Context, label string, props core.Properties) (*core.Vertex, error) {
	if tx.failCreate != nil {
		return nil, tx.failCreate
	}
	return tx.Tx.CreateVertex(ctx, label, props)
}
