// Package seed loads YAML graph fixtures into a graph instance.
//
// A fixture lists vertices by reference and the edges between them:
//
//	vertices:
//	  - ref: pA
//	    label: Process
//	    properties: {name: P1}
//	  - ref: port1
//	    label: Port
//	    properties: {portType: INPUT_PORT}
//	edges:
//	  - {label: ProcessPort, from: pA, to: port1}
//
// A vertex without a guid property gets its ref as guid.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Fixture is a set of vertices and edges to create.
type Fixture struct {
	Vertices []VertexSpec `yaml:"vertices"`
	Edges    []EdgeSpec   `yaml:"edges"`
}

// VertexSpec describes one vertex of a fixture.
type VertexSpec struct {
	Ref        string         `yaml:"ref"`
	Label      string         `yaml:"label"`
	Properties map[string]any `yaml:"properties"`
}

// EdgeSpec describes one edge between two vertex refs.
type EdgeSpec struct {
	Label string `yaml:"label"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// Result reports what Apply created.
type Result struct {
	Vertices map[string]*core.Vertex
	Edges    int
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that refs are unique and that every edge names known refs.
func (f *Fixture) Validate() error {
	refs := make(map[string]bool, len(f.Vertices))
	for i, v := range f.Vertices {
		if v.Label == "" {
			return fmt.Errorf("vertex %d: label is required", i+1)
		}
		ref := v.ref()
		if ref == "" {
			return fmt.Errorf("vertex %d: ref or guid is required", i+1)
		}
		if refs[ref] {
			return fmt.Errorf("vertex %d: duplicate ref %q", i+1, ref)
		}
		refs[ref] = true
	}
	for i, e := range f.Edges {
		if e.Label == "" {
			return fmt.Errorf("edge %d: label is required", i+1)
		}
		for _, ref := range []string{e.From, e.To} {
			if !refs[ref] {
				return fmt.Errorf("edge %d (%s): unknown vertex ref %q", i+1, e.Label, ref)
			}
		}
	}
	return nil
}

func (v VertexSpec) ref() string {
	if v.Ref != "" {
		return v.Ref
	}
	guid, _ := v.Properties[core.PropGUID].(string)
	return guid
}

func (v VertexSpec) properties() core.Properties {
	props := core.Properties(v.Properties).Clone()
	if _, ok := props[core.PropGUID]; !ok {
		props[core.PropGUID] = v.Ref
	}
	return props
}

// Apply creates the fixture in a single write transaction.
func Apply(ctx context.Context, g graph.Graph, f *Fixture) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	tx, err := g.Begin(ctx, graph.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res := &Result{Vertices: make(map[string]*core.Vertex, len(f.Vertices))}
	for _, vs := range f.Vertices {
		v, err := tx.CreateVertex(ctx, vs.Label, vs.properties())
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex %q: %w", vs.ref(), err)
		}
		res.Vertices[vs.ref()] = v
	}
	for _, es := range f.Edges {
		if _, err := tx.CreateEdge(ctx, es.Label, res.Vertices[es.From], res.Vertices[es.To]); err != nil {
			return nil, fmt.Errorf("failed to create edge %s %s->%s: %w", es.Label, es.From, es.To, err)
		}
		res.Edges++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fixture: %w", err)
	}
	return res, nil
}
