package component

import "github.com/noriffik/wirehome-core/internal/value"

// Component represents a controllable device or logical unit in the hub.
//
// Configuration is loaded from disk and describes what the component is;
// settings are persisted user-facing key/values; status holds live,
// non-persisted readings pushed by adapters and scripts.
type Component struct {
	UID           string         `json:"uid"`
	Configuration map[string]any `json:"configuration"`
	Settings      map[string]any `json:"settings"`
	Status        map[string]any `json:"status"`
	Enabled       bool           `json:"enabled"`
}

// newComponent creates an enabled component with empty maps.
func newComponent(uid string) *Component {
	return &Component{
		UID:           uid,
		Configuration: map[string]any{},
		Settings:      map[string]any{},
		Status:        map[string]any{},
		Enabled:       true,
	}
}

// DeepCopy creates a complete independent copy of the Component.
// All maps are cloned so modifications to the copy do not affect the
// registry's entity. This is essential for snapshot isolation.
func (c *Component) DeepCopy() *Component {
	if c == nil {
		return nil
	}

	cpy := *c
	cpy.Configuration = value.DeepCopyMap(c.Configuration)
	cpy.Settings = value.DeepCopyMap(c.Settings)
	cpy.Status = value.DeepCopyMap(c.Status)
	return &cpy
}
