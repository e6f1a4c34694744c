package componentgroup

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/infrastructure/storage"
)

// recordingBus captures published messages for assertions.
type recordingBus struct {
	mu   sync.Mutex
	msgs []bus.Message
}

func (b *recordingBus) Publish(msg bus.Message) {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

func (b *recordingBus) messages() []bus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bus.Message(nil), b.msgs...)
}

func (b *recordingBus) types() []string {
	var types []string
	for _, m := range b.messages() {
		types = append(types, m.Type())
	}
	return types
}

func newTestRegistry(t *testing.T) (*Registry, *storage.Store, *recordingBus) {
	t.Helper()
	store := storage.New(t.TempDir())
	publisher := &recordingBus{}
	return NewRegistry(store, publisher), store, publisher
}

func TestRegisterAndGet(t *testing.T) {
	registry, store, publisher := newTestRegistry(t)

	g, err := registry.Register("room.kitchen", map[string]any{"floor": float64(1)})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if g.UID != "room.kitchen" {
		t.Errorf("UID = %q", g.UID)
	}

	var onDisk map[string]any
	found, err := store.TryRead(&onDisk, "ComponentGroups", "room.kitchen", "configuration.json")
	if err != nil || !found {
		t.Fatalf("configuration.json not persisted (found=%v err=%v)", found, err)
	}

	if got := publisher.types(); !reflect.DeepEqual(got, []string{EventGroupRegistered}) {
		t.Errorf("events = %v", got)
	}

	if _, err := registry.Get("nope"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Get(nope) error = %v, want ErrGroupNotFound", err)
	}
}

// Scenario: assigning the same component twice emits one event; same for
// unassigning.
func TestAssignUnassignIdempotence(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}

	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatalf("AssignComponent() error: %v", err)
	}
	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatalf("second AssignComponent() error: %v", err)
	}

	assignEvents := 0
	for _, typ := range publisher.types() {
		if typ == EventComponentAssigned {
			assignEvents++
		}
	}
	if assignEvents != 1 {
		t.Errorf("component_assigned events = %d, want 1", assignEvents)
	}

	if err := registry.UnassignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatalf("UnassignComponent() error: %v", err)
	}
	if err := registry.UnassignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatalf("second UnassignComponent() error: %v", err)
	}

	unassignEvents := 0
	for _, typ := range publisher.types() {
		if typ == EventComponentUnassigned {
			unassignEvents++
		}
	}
	if unassignEvents != 1 {
		t.Errorf("component_unassigned events = %d, want 1", unassignEvents)
	}
}

func TestAssignPersistsAssociationDirectory(t *testing.T) {
	registry, store, _ := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatal(err)
	}

	var settings map[string]any
	found, err := store.TryRead(&settings, "ComponentGroups", "room.kitchen", "Components", "lamp.1", "settings.json")
	if err != nil || !found {
		t.Fatalf("association settings.json not persisted (found=%v err=%v)", found, err)
	}

	// Unassign prunes the directory at save time.
	if err := registry.UnassignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatal(err)
	}
	dirs, err := store.EnumerateDirectories("*", "ComponentGroups", "room.kitchen", "Components")
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 0 {
		t.Errorf("stale association directories survive: %v", dirs)
	}
}

func TestAssignUnknownGroup(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	if err := registry.AssignComponent("nope", "lamp.1"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("AssignComponent() error = %v, want ErrGroupNotFound", err)
	}
}

// The corrected event payload: new_value carries the newly written value,
// not the old one.
func TestGroupSettingChangePublishesCorrectNewValue(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetSetting("room.kitchen", "scene", "dinner"); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetSetting("room.kitchen", "scene", "movie"); err != nil {
		t.Fatal(err)
	}

	msgs := publisher.messages()
	last := msgs[len(msgs)-1]
	if last.Type() != EventSettingChanged {
		t.Fatalf("last event = %v", last.Type())
	}
	if last["old_value"] != "dinner" {
		t.Errorf("old_value = %v, want dinner", last["old_value"])
	}
	if last["new_value"] != "movie" {
		t.Errorf("new_value = %v, want movie", last["new_value"])
	}
}

func TestGroupSettingCoalesce(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetSetting("room.kitchen", "scene", "dinner"); err != nil {
		t.Fatal(err)
	}
	before := len(publisher.messages())

	if err := registry.SetSetting("room.kitchen", "scene", "dinner"); err != nil {
		t.Fatal(err)
	}
	if len(publisher.messages()) != before {
		t.Error("equal-value group setting write published an event")
	}
}

func TestRemoveGroupSetting(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}

	// Absent key: silent no-op.
	before := len(publisher.messages())
	if err := registry.RemoveSetting("room.kitchen", "scene"); err != nil {
		t.Fatalf("RemoveSetting() on absent key error: %v", err)
	}
	if len(publisher.messages()) != before {
		t.Error("removing an absent group setting published an event")
	}

	if err := registry.SetSetting("room.kitchen", "scene", "dinner"); err != nil {
		t.Fatal(err)
	}
	if err := registry.RemoveSetting("room.kitchen", "scene"); err != nil {
		t.Fatalf("RemoveSetting() error: %v", err)
	}

	msgs := publisher.messages()
	last := msgs[len(msgs)-1]
	if last.Type() != EventSettingChanged || last["new_value"] != nil || last["old_value"] != "dinner" {
		t.Errorf("remove event = %v", last)
	}

	got, err := registry.GetSetting("room.kitchen", "scene")
	if err != nil || got != nil {
		t.Errorf("GetSetting() after remove = (%v, %v)", got, err)
	}
}

func TestAssociationSettings(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatal(err)
	}

	if err := registry.SetComponentAssociationSetting("room.kitchen", "lamp.1", "position", float64(3)); err != nil {
		t.Fatalf("SetComponentAssociationSetting() error: %v", err)
	}

	got, err := registry.GetComponentAssociationSetting("room.kitchen", "lamp.1", "position")
	if err != nil || got != float64(3) {
		t.Errorf("GetComponentAssociationSetting() = (%v, %v), want 3", got, err)
	}

	msgs := publisher.messages()
	last := msgs[len(msgs)-1]
	if last["component_uid"] != "lamp.1" || last["setting_uid"] != "position" || last["new_value"] != float64(3) {
		t.Errorf("association setting event = %v", last)
	}

	if err := registry.RemoveComponentAssociationSetting("room.kitchen", "lamp.1", "position"); err != nil {
		t.Fatal(err)
	}
	got, err = registry.GetComponentAssociationSetting("room.kitchen", "lamp.1", "position")
	if err != nil || got != nil {
		t.Errorf("association setting after remove = (%v, %v)", got, err)
	}
}

func TestAssociationSettingsMissingAssociation(t *testing.T) {
	registry, _, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	before := len(publisher.messages())

	// Mutations on a missing association are silent no-ops.
	if err := registry.SetComponentAssociationSetting("room.kitchen", "ghost.1", "x", 1); err != nil {
		t.Fatalf("SetComponentAssociationSetting() error: %v", err)
	}
	if err := registry.RemoveComponentAssociationSetting("room.kitchen", "ghost.1", "x"); err != nil {
		t.Fatalf("RemoveComponentAssociationSetting() error: %v", err)
	}
	if len(publisher.messages()) != before {
		t.Error("no-op association mutations published events")
	}

	// Reads yield nil.
	got, err := registry.GetComponentAssociationSetting("room.kitchen", "ghost.1", "x")
	if err != nil || got != nil {
		t.Errorf("GetComponentAssociationSetting() = (%v, %v), want (nil, nil)", got, err)
	}

	// A missing group is still an error.
	if _, err := registry.GetComponentAssociationSetting("nope", "lamp.1", "x"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("error = %v, want ErrGroupNotFound", err)
	}
}

func TestMacroAssociations(t *testing.T) {
	registry, store, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignMacro("room.kitchen", "macro.all_off"); err != nil {
		t.Fatalf("AssignMacro() error: %v", err)
	}

	msgs := publisher.messages()
	last := msgs[len(msgs)-1]
	if last.Type() != EventMacroAssigned || last["macro_uid"] != "macro.all_off" {
		t.Errorf("macro assign event = %v", last)
	}

	var settings map[string]any
	found, err := store.TryRead(&settings, "ComponentGroups", "room.kitchen", "Macros", "macro.all_off", "settings.json")
	if err != nil || !found {
		t.Errorf("macro association not persisted (found=%v err=%v)", found, err)
	}
}

// Round-trip: a fresh registry over the same data directory reproduces
// settings, configuration, components, and macros by deep equality.
func TestCrashRecoveryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(storage.New(dir), &recordingBus{})

	if _, err := registry.Register("room.kitchen", map[string]any{"floor": float64(1)}); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetSetting("room.kitchen", "scene", "dinner"); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatal(err)
	}
	if err := registry.SetComponentAssociationSetting("room.kitchen", "lamp.1", "position", float64(3)); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignMacro("room.kitchen", "macro.all_off"); err != nil {
		t.Fatal(err)
	}

	original, err := registry.Get("room.kitchen")
	if err != nil {
		t.Fatal(err)
	}

	reloaded := NewRegistry(storage.New(dir), &recordingBus{})
	if err := reloaded.InitializeAll(); err != nil {
		t.Fatalf("InitializeAll() error: %v", err)
	}

	g, err := reloaded.Get("room.kitchen")
	if err != nil {
		t.Fatalf("Get() after reload error: %v", err)
	}
	if !reflect.DeepEqual(g.Settings, original.Settings) {
		t.Errorf("reloaded settings = %v, want %v", g.Settings, original.Settings)
	}
	if !reflect.DeepEqual(g.Configuration, original.Configuration) {
		t.Errorf("reloaded configuration = %v, want %v", g.Configuration, original.Configuration)
	}
	if !reflect.DeepEqual(g.Components, original.Components) {
		t.Errorf("reloaded components = %v, want %v", g.Components, original.Components)
	}
	if !reflect.DeepEqual(g.Macros, original.Macros) {
		t.Errorf("reloaded macros = %v, want %v", g.Macros, original.Macros)
	}
	if _, ok := g.Components["lamp.1"]; !ok {
		t.Error("reloaded group lost the lamp.1 association")
	}
}

func TestDeleteGroup(t *testing.T) {
	registry, store, publisher := newTestRegistry(t)

	if _, err := registry.Register("room.kitchen", nil); err != nil {
		t.Fatal(err)
	}
	if err := registry.AssignComponent("room.kitchen", "lamp.1"); err != nil {
		t.Fatal(err)
	}
	if err := registry.Delete("room.kitchen"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := registry.Get("room.kitchen"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
	dirs, err := store.EnumerateDirectories("*", "ComponentGroups")
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 0 {
		t.Errorf("group directory survived delete: %v", dirs)
	}

	types := publisher.types()
	if types[len(types)-1] != EventGroupDeleted {
		t.Errorf("last event = %v", types[len(types)-1])
	}

	if err := registry.Delete("room.kitchen"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("second Delete() error = %v, want ErrGroupNotFound", err)
	}
}
