package value

import (
	"bytes"
	"encoding/json"
)

// Equal reports whether two JSON-shaped values are deeply equal.
//
// Values are compared by their canonical JSON encoding: encoding/json
// sorts map keys, so two structurally equal values always encode to the
// same bytes. This makes equality stable across values decoded from HTTP
// bodies, values decoded from disk, and values built in code (int(50)
// and float64(50) both encode as "50").
//
// Values that cannot be marshalled are never equal to anything.
func Equal(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// DeepCopy recursively copies a JSON-shaped value, cloning nested maps
// and slices. Primitives are copied by value.
func DeepCopy(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return DeepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = DeepCopy(elem)
		}
		return cpy
	default:
		return v
	}
}

// DeepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied. A nil map stays nil.
func DeepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = DeepCopy(v)
	}
	return cpy
}
