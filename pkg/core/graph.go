package core

import "fmt"

// Vertex labels written by the ingestion pipeline into the buffer graph and
// by the lineage resolver into the main graph.
const (
	LabelProcess         = "Process"
	LabelPort            = "Port"
	LabelSchemaType      = "SchemaType"
	LabelSchemaAttribute = "SchemaAttribute"
	LabelCheckpoint      = "Checkpoint"
)

// IsReservedLabel reports whether label belongs to vertices the engine
// writes itself. Catalog entities never take these labels.
func IsReservedLabel(label string) bool {
	return label == LabelProcess || label == LabelCheckpoint
}

// Edge labels.
const (
	EdgeProcessPort         = "ProcessPort"
	EdgePortDelegation      = "PortDelegation"
	EdgePortSchema          = "PortSchema"
	EdgeAttributeForSchema  = "AttributeForSchema"
	EdgeSchemaAttributeType = "SchemaAttributeType"
	EdgeLineageMapping      = "LineageMapping"
)

// Property keys.
const (
	PropGUID      = "guid"
	PropName      = "name"
	PropPortType  = "portType"
	PropKey       = "key"
	PropTimestamp = "timestamp"
	PropUpdatedAt = "updatedAt"
)

// Port types carried in the portType property of Port vertices.
const (
	PortTypeInput  = "INPUT_PORT"
	PortTypeOutput = "OUTPUT_PORT"
)

// Properties is a vertex property bag. Values are scalars (string, bool,
// numbers); backends that round-trip through JSON return numbers as float64.
type Properties map[string]any

// Clone returns a shallow copy of the property bag.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Vertex is a graph node.
type Vertex struct {
	// ID is the backend's own element identifier. It is only meaningful
	// inside the graph instance that produced it.
	ID         string
	Label      string
	Properties Properties
}

// String returns the string property with the given key, or "" when it is
// absent or not a string.
func (v *Vertex) String(key string) string {
	if v == nil || v.Properties == nil {
		return ""
	}
	s, _ := v.Properties[key].(string)
	return s
}

// GUID returns the entity GUID, the cross-graph correlation key.
func (v *Vertex) GUID() string { return v.String(PropGUID) }

// Name returns the display name of the vertex.
func (v *Vertex) Name() string { return v.String(PropName) }

// Ref formats the vertex for log lines.
func (v *Vertex) Ref() string {
	if v == nil {
		return "<nil>"
	}
	if guid := v.GUID(); guid != "" {
		return fmt.Sprintf("%s(%s)", v.Label, guid)
	}
	return fmt.Sprintf("%s[%s]", v.Label, v.ID)
}

// Edge is a directed, labelled relation between two vertices of the same graph.
type Edge struct {
	ID    string
	Label string
	From  string
	To    string
}
