// Package graphtest provides a behavioural test suite shared by all graph
// backends.
package graphtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Opener returns a fresh, empty graph. The suite closes it.
type Opener func(t *testing.T) graph.Graph

// RunConformance runs the storage capability suite against a backend.
func RunConformance(t *testing.T, open Opener) {
	cases := []struct {
		name string
		fn   func(t *testing.T, g graph.Graph)
	}{
		{"CreateAndFind", testCreateAndFind},
		{"Neighbors", testNeighbors},
		{"RollbackDiscards", testRollbackDiscards},
		{"ReadOnlyRejectsWrites", testReadOnly},
		{"SetProperties", testSetProperties},
		{"Traverse", testTraverse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := open(t)
			// registered first so it runs after the transaction cleanups
			t.Cleanup(func() { _ = g.Close() })
			tc.fn(t, g)
		})
	}
}

func begin(t *testing.T, g graph.Graph, readOnly bool) graph.Tx {
	t.Helper()
	tx, err := g.Begin(context.Background(), graph.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func testCreateAndFind(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, false)
	p, err := tx.CreateVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: "p1", core.PropName: "load"})
	require.NoError(t, err)
	_, err = tx.CreateVertex(ctx, core.LabelSchemaAttribute, core.Properties{core.PropGUID: "c1", "position": 2})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, g, true)
	found, err := tx.FindVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, core.LabelProcess, found.Label)
	assert.Equal(t, "load", found.Name())

	anyLabel, err := tx.FindVertex(ctx, "", core.Properties{core.PropGUID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, core.LabelSchemaAttribute, anyLabel.Label)
	assert.True(t, graph.ValuesEqual(2, anyLabel.Properties["position"]))

	byNumber, err := tx.FindVertices(ctx, "", core.Properties{"position": 2})
	require.NoError(t, err)
	assert.Len(t, byNumber, 1)

	_, err = tx.FindVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: "missing"})
	assert.True(t, errors.Is(err, core.ErrVertexNotFound))

	all, err := tx.FindVertices(ctx, core.LabelProcess, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testNeighbors(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, false)
	a := mustVertex(t, tx, "A", "a")
	b := mustVertex(t, tx, "B", "b")
	c := mustVertex(t, tx, "B", "c")
	_, err := tx.CreateEdge(ctx, "rel", a, b)
	require.NoError(t, err)
	_, err = tx.CreateEdge(ctx, "rel", a, c)
	require.NoError(t, err)
	_, err = tx.CreateEdge(ctx, "other", b, a)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, g, true)
	out, err := tx.Neighbors(ctx, a, "rel", graph.Out)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, guids(out))

	in, err := tx.Neighbors(ctx, b, "rel", graph.In)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, guids(in))

	none, err := tx.Neighbors(ctx, c, "rel", graph.Out)
	require.NoError(t, err)
	assert.Empty(t, none)

	has, err := tx.HasEdge(ctx, "rel", a, b)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = tx.HasEdge(ctx, "rel", b, a)
	require.NoError(t, err)
	assert.False(t, has)

	count, err := tx.CountEdges(ctx, "rel")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = tx.CountEdges(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testRollbackDiscards(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, false)
	mustVertex(t, tx, core.LabelProcess, "gone")
	require.NoError(t, tx.Rollback())

	tx = begin(t, g, true)
	_, err := tx.FindVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: "gone"})
	assert.True(t, errors.Is(err, core.ErrVertexNotFound))
}

func testReadOnly(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, true)
	_, err := tx.CreateVertex(ctx, core.LabelProcess, core.Properties{core.PropGUID: "x"})
	assert.ErrorIs(t, err, graph.ErrReadOnlyTx)
}

func testSetProperties(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, false)
	v := mustVertex(t, tx, core.LabelCheckpoint, "cp")
	require.NoError(t, tx.SetProperties(ctx, v, core.Properties{core.PropTimestamp: "t1"}))
	require.NoError(t, tx.SetProperties(ctx, v, core.Properties{core.PropTimestamp: "t2"}))
	require.NoError(t, tx.Commit())

	tx = begin(t, g, true)
	got, err := tx.FindVertex(ctx, core.LabelCheckpoint, core.Properties{core.PropGUID: "cp"})
	require.NoError(t, err)
	assert.Equal(t, "t2", got.String(core.PropTimestamp))
	assert.Equal(t, "cp", got.GUID())
}

func testTraverse(t *testing.T, g graph.Graph) {
	ctx := context.Background()

	tx := begin(t, g, false)
	proc := mustVertex(t, tx, core.LabelProcess, "proc")
	in, err := tx.CreateVertex(ctx, core.LabelPort, core.Properties{core.PropGUID: "in", core.PropPortType: core.PortTypeInput})
	require.NoError(t, err)
	out, err := tx.CreateVertex(ctx, core.LabelPort, core.Properties{core.PropGUID: "out", core.PropPortType: core.PortTypeOutput})
	require.NoError(t, err)
	_, err = tx.CreateEdge(ctx, core.EdgeProcessPort, proc, in)
	require.NoError(t, err)
	_, err = tx.CreateEdge(ctx, core.EdgeProcessPort, proc, out)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx = begin(t, g, true)
	ports, err := graph.Traverse(ctx, tx, []*core.Vertex{proc},
		graph.Step{Edge: core.EdgeProcessPort, Dir: graph.Out, Where: core.Properties{core.PropPortType: core.PortTypeInput}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, guids(ports))

	back, err := graph.Traverse(ctx, tx, ports, graph.Step{Edge: core.EdgeProcessPort, Dir: graph.In})
	require.NoError(t, err)
	assert.Equal(t, []string{"proc"}, guids(back))

	nothing, err := graph.Traverse(ctx, tx, ports, graph.OutE(core.EdgePortSchema), graph.OutE(core.EdgeAttributeForSchema))
	require.NoError(t, err)
	assert.Empty(t, nothing)
}

func mustVertex(t *testing.T, tx graph.Tx, label, guid string) *core.Vertex {
	t.Helper()
	v, err := tx.CreateVertex(context.Background(), label, core.Properties{core.PropGUID: guid})
	require.NoError(t, err)
	return v
}

func guids(vs []*core.Vertex) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.GUID())
	}
	return out
}
