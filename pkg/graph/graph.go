// Package graph defines the property-graph storage capability used by the
// lineage engine and the registry of storage backends.
//
// Two independent graph instances are opened through this package: the
// buffer graph written by the ingestion pipeline and the main graph written
// by the lineage resolver. Every read and write goes through a Tx so that
// backends can give each unit of work its own isolation.
package graph

import (
	"context"
	"errors"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// ErrReadOnlyTx is returned when a mutation is attempted in a read-only transaction.
var ErrReadOnlyTx = errors.New("graph: mutation in read-only transaction")

// Direction selects which edges of a vertex are followed.
type Direction int

const (
	// Out follows edges leaving the vertex.
	Out Direction = iota
	// In follows edges arriving at the vertex.
	In
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// TxOptions configures a transaction.
type TxOptions struct {
	ReadOnly bool
}

// Graph is one named graph instance.
type Graph interface {
	// Name identifies the instance in logs ("buffer", "main").
	Name() string
	// Begin starts a transaction.
	Begin(ctx context.Context, opts TxOptions) (Tx, error)
	// Close releases the underlying connection.
	Close() error
}

// Tx is a unit of work against a graph. A Tx is not safe for concurrent use.
type Tx interface {
	CreateVertex(ctx context.Context, label string, props core.Properties) (*core.Vertex, error)
	CreateEdge(ctx context.Context, label string, from, to *core.Vertex) (*core.Edge, error)

	// FindVertex returns the first vertex matching label and filter. An empty
	// label matches any label. Returns core.ErrVertexNotFound when nothing matches.
	FindVertex(ctx context.Context, label string, filter core.Properties) (*core.Vertex, error)
	// FindVertices returns every vertex matching label and filter.
	FindVertices(ctx context.Context, label string, filter core.Properties) ([]*core.Vertex, error)
	// Neighbors returns the vertices at the other end of v's edges with the
	// given label, in edge creation order.
	Neighbors(ctx context.Context, v *core.Vertex, edgeLabel string, dir Direction) ([]*core.Vertex, error)

	HasEdge(ctx context.Context, label string, from, to *core.Vertex) (bool, error)
	// CountEdges counts edges with the label, or all edges for "".
	CountEdges(ctx context.Context, label string) (int, error)
	// SetProperties overwrites the given keys on v, leaving other keys untouched.
	SetProperties(ctx context.Context, v *core.Vertex, props core.Properties) error

	Commit() error
	Rollback() error
}

// Resetter is implemented by backends that can drop all of their content.
type Resetter interface {
	Reset(ctx context.Context) error
}
