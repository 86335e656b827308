package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", "INPUT_PORT", "INPUT_PORT", true},
		{"different string", "INPUT_PORT", "OUTPUT_PORT", false},
		{"int vs float64", 3, float64(3), true},
		{"int64 vs int", int64(7), 7, true},
		{"number vs string", 1, "1", false},
		{"slices", []any{"a", "b"}, []any{"a", "b"}, true},
		{"maps", map[string]any{"k": "v"}, map[string]any{"k": "v"}, true},
		{"nil vs nil", nil, nil, true},
		{"nil vs string", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, graph.ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestMatches(t *testing.T) {
	v := &core.Vertex{Label: core.LabelPort, Properties: core.Properties{
		core.PropGUID:     "p1",
		core.PropPortType: core.PortTypeInput,
	}}

	assert.True(t, graph.Matches(v, nil))
	assert.True(t, graph.Matches(v, core.Properties{core.PropPortType: core.PortTypeInput}))
	assert.False(t, graph.Matches(v, core.Properties{core.PropPortType: core.PortTypeOutput}))
	assert.False(t, graph.Matches(v, core.Properties{core.PropName: "x"}))
}

// stubTx serves Neighbors from an adjacency map; other methods are unused.
type stubTx struct {
	graph.Tx
	out map[string][]*core.Vertex
	err error
}

func (s *stubTx) Neighbors(_ context.Context, v *core.Vertex, label string, dir graph.Direction) ([]*core.Vertex, error) {
	if s.err != nil {
		return nil, s.err
	}
	if dir != graph.Out {
		return nil, nil
	}
	return s.out[v.ID+"/"+label], nil
}

func vtx(id string, props core.Properties) *core.Vertex {
	return &core.Vertex{ID: id, Label: "V", Properties: props}
}

func TestTraverse(t *testing.T) {
	proc := vtx("proc", nil)
	in := vtx("in", core.Properties{core.PropPortType: core.PortTypeInput})
	out := vtx("out", core.Properties{core.PropPortType: core.PortTypeOutput})
	schema := vtx("schema", nil)

	tx := &stubTx{out: make(map[string][]*core.Vertex)}
	tx.out["proc/"+core.EdgeProcessPort] = []*core.Vertex{in, out}
	tx.out["in/"+core.EdgePortDelegation] = []*core.Vertex{schema}
	tx.out["out/"+core.EdgePortDelegation] = []*core.Vertex{schema}
	ctx := context.Background()

	t.Run("filters by where", func(t *testing.T) {
		got, err := graph.Traverse(ctx, tx, []*core.Vertex{proc},
			graph.Step{Edge: core.EdgeProcessPort, Dir: graph.Out, Where: core.Properties{core.PropPortType: core.PortTypeInput}},
		)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "in", got[0].ID)
	})

	t.Run("dedupes within a step", func(t *testing.T) {
		got, err := graph.Traverse(ctx, tx, []*core.Vertex{proc},
			graph.OutE(core.EdgeProcessPort),
			graph.OutE(core.EdgePortDelegation),
		)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "schema", got[0].ID)
	})

	t.Run("empty frontier", func(t *testing.T) {
		got, err := graph.Traverse(ctx, tx, []*core.Vertex{proc},
			graph.OutE(core.EdgeProcessPort),
			graph.OutE(core.EdgePortDelegation),
			graph.OutE(core.EdgePortSchema),
			graph.OutE(core.EdgeAttributeForSchema),
		)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("neighbor error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := graph.Traverse(ctx, &stubTx{err: boom}, []*core.Vertex{proc}, graph.OutE(core.EdgeProcessPort))
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "traversal step 1")
	})
}
