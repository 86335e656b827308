// Package core defines the shared language of the lineage engine.
//
// This package contains:
//   - Graph data (Vertex, Edge, Properties) and the vertex/edge label vocabulary
//   - Catalog entities fetched by the incremental update job
//   - Graph backend configuration (GraphConfig)
//   - Sentinel errors shared by the storage, lineage and engine layers
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
