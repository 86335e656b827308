package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/seed"
	"github.com/leapstack-labs/leaplineage/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// NewMemoryGraph opens an empty in-memory SQLite graph that is closed when
// the test ends.
func NewMemoryGraph(t testing.TB, name string) *sqlite.Graph {
	t.Helper()
	g, err := sqlite.Open(context.Background(), core.GraphConfig{Name: name, Backend: "sqlite"}, NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

// Seed applies a YAML fixture and returns the created vertices by ref.
func Seed(t testing.TB, g graph.Graph, doc string) map[string]*core.Vertex {
	t.Helper()
	f, err := seed.Parse([]byte(doc))
	require.NoError(t, err)
	res, err := seed.Apply(context.Background(), g, f)
	require.NoError(t, err)
	return res.Vertices
}

// CountVertices counts vertices with the label ("" for any).
func CountVertices(t testing.TB, g graph.Graph, label string) int {
	t.Helper()
	return len(FindVertices(t, g, label, nil))
}

// FindVertices returns the vertices matching label and filter.
func FindVertices(t testing.TB, g graph.Graph, label string, filter core.Properties) []*core.Vertex {
	t.Helper()
	var vs []*core.Vertex
	View(t, g, func(tx graph.Tx) {
		var err error
		vs, err = tx.FindVertices(context.Background(), label, filter)
		require.NoError(t, err)
	})
	return vs
}

// CountEdges counts edges with the label ("" for any).
func CountEdges(t testing.TB, g graph.Graph, label string) int {
	t.Helper()
	var n int
	View(t, g, func(tx graph.Tx) {
		var err error
		n, err = tx.CountEdges(context.Background(), label)
		require.NoError(t, err)
	})
	return n
}

// View runs fn in a read-only transaction. The transaction is released
// before View returns since in-memory graphs hold a single connection.
func View(t testing.TB, g graph.Graph, fn func(tx graph.Tx)) {
	t.Helper()
	tx, err := g.Begin(context.Background(), graph.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	fn(tx)
}
