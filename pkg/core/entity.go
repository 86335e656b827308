package core

import "time"

// Entity is a metadata entity reported as changed by the asset catalog.
type Entity struct {
	GUID       string     `json:"guid"`
	TypeName   string     `json:"typeName"`
	Properties Properties `json:"properties,omitempty"`
	UpdatedAt  time.Time  `json:"updateTime"`
}

// VertexProperties returns the properties to store on the main graph vertex
// mirroring the entity. The GUID and update time always win over same-named
// entries in the entity's own property bag.
func (e Entity) VertexProperties() Properties {
	props := e.Properties.Clone()
	props[PropGUID] = e.GUID
	if !e.UpdatedAt.IsZero() {
		props[PropUpdatedAt] = e.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return props
}
