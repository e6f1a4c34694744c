package bus

import (
	"encoding/json"

	"github.com/noriffik/wirehome-core/internal/value"
)

// Privileged message keys. Every other key is opaque to the bus.
const (
	// KeyType is the routing key of a message.
	KeyType = "type"

	// KeyTimestamp is the publish time in Unix milliseconds, assigned by
	// the bus when absent. Timestamps are non-decreasing across the
	// publish sequence.
	KeyTimestamp = "timestamp"
)

// Message is an immutable JSON-shaped record carried by the bus.
// Publishers hand ownership to the bus; subscribers must not mutate
// received messages.
type Message map[string]any

// Type returns the routing key of the message, or "" if absent.
func (m Message) Type() string {
	t, _ := m[KeyType].(string) //nolint:errcheck // Absent or non-string type reads as ""
	return t
}

// Timestamp returns the publish time in Unix milliseconds, or 0 if the
// message has not been published yet. Handles both the int64 the bus
// assigns and the float64 a JSON round-trip produces.
func (m Message) Timestamp() int64 {
	switch ts := m[KeyTimestamp].(type) {
	case int64:
		return ts
	case float64:
		return int64(ts)
	case int:
		return int64(ts)
	case json.Number:
		n, err := ts.Int64()
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Filter is a mapping of required key/value equalities a message must
// satisfy to match. An empty filter matches every message.
type Filter map[string]any

// Matches reports whether the message satisfies every required equality.
func (f Filter) Matches(m Message) bool {
	for key, want := range f {
		got, ok := m[key]
		if !ok {
			return false
		}
		if !value.Equal(got, want) {
			return false
		}
	}
	return true
}

// matchesAny reports whether the message satisfies at least one filter of
// the disjunction. An empty filter list matches nothing.
func matchesAny(filters []Filter, m Message) bool {
	for _, f := range filters {
		if f.Matches(m) {
			return true
		}
	}
	return false
}
