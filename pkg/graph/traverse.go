package graph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Step is one hop of a traversal: follow edges with the label in the given
// direction and keep only the vertices whose properties match Where.
type Step struct {
	Edge  string
	Dir   Direction
	Where core.Properties
}

// OutE is a shorthand for an unfiltered outgoing step.
func OutE(label string) Step { return Step{Edge: label, Dir: Out} }

// Traverse walks the steps from the start vertices and returns the distinct
// vertices reached by the last step, in discovery order.
func Traverse(ctx context.Context, tx Tx, start []*core.Vertex, steps ...Step) ([]*core.Vertex, error) {
	frontier := start
	for i, step := range steps {
		seen := make(map[string]bool)
		var next []*core.Vertex
		for _, v := range frontier {
			neighbors, err := tx.Neighbors(ctx, v, step.Edge, step.Dir)
			if err != nil {
				return nil, fmt.Errorf("traversal step %d (%s %s) from %s: %w", i+1, step.Dir, step.Edge, v.Ref(), err)
			}
			for _, n := range neighbors {
				if seen[n.ID] || !Matches(n, step.Where) {
					continue
				}
				seen[n.ID] = true
				next = append(next, n)
			}
		}
		if len(next) == 0 {
			return nil, nil
		}
		frontier = next
	}
	return frontier, nil
}

// Matches reports whether every filter entry is present on v with an equal value.
func Matches(v *core.Vertex, filter core.Properties) bool {
	for k, want := range filter {
		got, ok := v.Properties[k]
		if !ok || !ValuesEqual(got, want) {
			return false
		}
	}
	return true
}

// ValuesEqual compares property values, treating all numeric kinds as float64
// so that values decoded from JSON compare equal to Go literals.
func ValuesEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
