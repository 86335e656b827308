package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/seed"
	"github.com/leapstack-labs/leaplineage/internal/testutil"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

func TestLoadFile_Scenario(t *testing.T) {
	f, err := seed.LoadFile("testdata/scenario.yaml")
	require.NoError(t, err)
	assert.Len(t, f.Vertices, 8)
	assert.Len(t, f.Edges, 7)

	g := testutil.NewMemoryGraph(t, "buffer")
	res, err := seed.Apply(context.Background(), g, f)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Edges)
	assert.Equal(t, "pA", res.Vertices["pA"].GUID())
	assert.Equal(t, "P1", res.Vertices["pA"].Name())

	assert.Equal(t, 8, testutil.CountVertices(t, g, ""))
	assert.Equal(t, 1, testutil.CountEdges(t, g, core.EdgeLineageMapping))

	testutil.View(t, g, func(tx graph.Tx) {
		ports, err := tx.Neighbors(context.Background(), res.Vertices["pA"], core.EdgeProcessPort, graph.Out)
		require.NoError(t, err)
		require.Len(t, ports, 1)
		assert.Equal(t, core.PortTypeInput, ports[0].String(core.PropPortType))
	})
}

func TestParse_ExplicitGUID(t *testing.T) {
	f, err := seed.Parse([]byte(`
vertices:
  - label: SchemaAttribute
    properties: {guid: 9f1c-col, name: amount, precision: 2}
`))
	require.NoError(t, err)

	g := testutil.NewMemoryGraph(t, "main")
	res, err := seed.Apply(context.Background(), g, f)
	require.NoError(t, err)

	v := res.Vertices["9f1c-col"]
	require.NotNil(t, v)
	assert.Equal(t, "amount", v.Name())
	assert.True(t, graph.ValuesEqual(2, testutil.FindVertices(t, g, "", nil)[0].Properties["precision"]))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "vertices: [", "failed to parse fixture"},
		{"missing label", "vertices:\n  - {ref: a}", "label is required"},
		{"missing ref", "vertices:\n  - {label: Process}", "ref or guid is required"},
		{"duplicate ref", "vertices:\n  - {ref: a, label: A}\n  - {ref: a, label: B}", `duplicate ref "a"`},
		{"unknown edge ref", "vertices:\n  - {ref: a, label: A}\nedges:\n  - {label: E, from: a, to: b}", `unknown vertex ref "b"`},
		{"edge without label", "vertices:\n  - {ref: a, label: A}\nedges:\n  - {from: a, to: a}", "label is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := seed.LoadFile("testdata/does-not-exist.yaml")
	assert.ErrorContains(t, err, "failed to read fixture")
}
