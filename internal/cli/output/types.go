package output

import "time"

// LineageOutput is the JSON shape of the lineage command.
type LineageOutput struct {
	Root  LineageNode   `json:"root"`
	Nodes []LineageNode `json:"nodes"`
	Edges []LineageEdge `json:"edges"`
	Stats LineageStats  `json:"stats"`
}

// LineageNode is one vertex in a lineage listing.
type LineageNode struct {
	GUID  string `json:"guid"`
	Label string `json:"label"`
	Name  string `json:"name,omitempty"`
	Depth int    `json:"depth"`
}

// LineageEdge is one LineageMapping edge.
type LineageEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LineageStats counts the nodes of a lineage listing.
type LineageStats struct {
	TotalNodes      int `json:"total_nodes"`
	UpstreamCount   int `json:"upstream_count"`
	DownstreamCount int `json:"downstream_count"`
}

// SeedOutput is the JSON shape of the seed command.
type SeedOutput struct {
	Graph    string `json:"graph"`
	File     string `json:"file"`
	Reset    bool   `json:"reset"`
	Vertices int    `json:"vertices"`
	Edges    int    `json:"edges"`
}

// CheckpointOutput is the JSON shape of the checkpoint command.
type CheckpointOutput struct {
	Key       string     `json:"key"`
	Timestamp *time.Time `json:"timestamp"`
}
