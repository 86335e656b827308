package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVertex_Accessors(t *testing.T) {
	v := &Vertex{ID: "7", Label: LabelProcess, Properties: Properties{
		PropGUID: "pA",
		PropName: "P1",
		"count":  float64(3),
	}}

	assert.Equal(t, "pA", v.GUID())
	assert.Equal(t, "P1", v.Name())
	assert.Equal(t, "", v.String("count"), "non-string values read as empty")
	assert.Equal(t, "Process(pA)", v.Ref())

	var nilVertex *Vertex
	assert.Equal(t, "", nilVertex.GUID())
	assert.Equal(t, "<nil>", nilVertex.Ref())
	assert.Equal(t, "Port[9]", (&Vertex{ID: "9", Label: LabelPort}).Ref())
}

func TestEntity_VertexProperties(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	e := Entity{
		GUID:       "term-1",
		TypeName:   "GlossaryTerm",
		Properties: Properties{PropName: "Revenue", PropGUID: "spoofed"},
		UpdatedAt:  ts,
	}

	props := e.VertexProperties()
	assert.Equal(t, "term-1", props[PropGUID])
	assert.Equal(t, "Revenue", props[PropName])
	assert.Equal(t, "2024-03-01T11:00:00Z", props[PropUpdatedAt])
	assert.Equal(t, "spoofed", e.Properties[PropGUID], "source bag must not be mutated")
}

func TestIsChainError(t *testing.T) {
	assert.True(t, IsChainError(fmt.Errorf("at v1: %w", ErrBrokenChain)))
	assert.True(t, IsChainError(ErrCyclicChain))
	assert.True(t, IsChainError(ErrChainTooDeep))
	assert.False(t, IsChainError(ErrVertexNotFound))
	assert.False(t, IsChainError(nil))
}

func TestIsReservedLabel(t *testing.T) {
	assert.True(t, IsReservedLabel(LabelProcess))
	assert.True(t, IsReservedLabel(LabelCheckpoint))
	assert.False(t, IsReservedLabel(LabelSchemaAttribute))
	assert.False(t, IsReservedLabel("GlossaryTerm"))
	assert.False(t, IsReservedLabel(""))
}
