package neo4j

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// storable converts a property bag into values Neo4j accepts as node
// properties. Maps, nested lists and lists of mixed types are stored as
// JSON strings.
func storable(props core.Properties) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		sv, err := storableValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		out[k] = sv
	}
	return out, nil
}

func storableValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, float32, float64, time.Time,
		int, int8, int16, int32, int64, uint8, uint16, uint32:
		return v, nil
	case []string, []bool, []int64, []float64:
		return v, nil
	case []any:
		if scalarList(val) {
			return val, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}

// scalarList reports whether all items are scalars of one type.
func scalarList(list []any) bool {
	var first string
	for i, item := range list {
		switch item.(type) {
		case string, bool, int64, float64:
		default:
			return false
		}
		kind := fmt.Sprintf("%T", item)
		if i == 0 {
			first = kind
		} else if kind != first {
			return false
		}
	}
	return true
}
