package componentgroup

import "github.com/noriffik/wirehome-core/internal/value"

// Association is a membership edge from a group to a component or macro.
// It carries per-edge settings and holds only the member's uid (the map
// key) — deleting the member does not cascade into the group.
type Association struct {
	Settings map[string]any `json:"settings"`
}

// newAssociation creates an association with empty settings.
func newAssociation() *Association {
	return &Association{Settings: map[string]any{}}
}

// DeepCopy creates an independent copy of the association.
func (a *Association) DeepCopy() *Association {
	if a == nil {
		return nil
	}
	return &Association{Settings: value.DeepCopyMap(a.Settings)}
}

// ComponentGroup is a named collection of components and macros with its
// own settings.
type ComponentGroup struct {
	UID           string                  `json:"uid"`
	Configuration map[string]any          `json:"configuration"`
	Settings      map[string]any          `json:"settings"`
	Components    map[string]*Association `json:"components"`
	Macros        map[string]*Association `json:"macros"`
}

// newComponentGroup creates a group with empty maps.
func newComponentGroup(uid string) *ComponentGroup {
	return &ComponentGroup{
		UID:           uid,
		Configuration: map[string]any{},
		Settings:      map[string]any{},
		Components:    map[string]*Association{},
		Macros:        map[string]*Association{},
	}
}

// DeepCopy creates a complete independent copy of the group, cloning all
// maps and associations.
func (g *ComponentGroup) DeepCopy() *ComponentGroup {
	if g == nil {
		return nil
	}

	cpy := *g
	cpy.Configuration = value.DeepCopyMap(g.Configuration)
	cpy.Settings = value.DeepCopyMap(g.Settings)
	cpy.Components = make(map[string]*Association, len(g.Components))
	for uid, a := range g.Components {
		cpy.Components[uid] = a.DeepCopy()
	}
	cpy.Macros = make(map[string]*Association, len(g.Macros))
	for uid, a := range g.Macros {
		cpy.Macros[uid] = a.DeepCopy()
	}
	return &cpy
}
