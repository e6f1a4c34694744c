package componentgroup

import (
	"fmt"
	"sort"
	"sync"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/value"
)

// Bus event types published by the registry.
const (
	EventGroupRegistered     = "component_group_registry.event.component_group_registered"
	EventGroupDeleted        = "component_group_registry.event.component_group_deleted"
	EventGroupInitialized    = "component_group_registry.event.initialized"
	EventSettingChanged      = "component_group_registry.event.setting_changed"
	EventComponentAssigned   = "component_group_registry.event.component_assigned"
	EventComponentUnassigned = "component_group_registry.event.component_unassigned"
	EventMacroAssigned       = "component_group_registry.event.macro_assigned"
	EventMacroUnassigned     = "component_group_registry.event.macro_unassigned"
)

// Persisted document layout under the data directory.
const (
	dirGroups         = "ComponentGroups"
	dirComponents     = "Components"
	dirMacros         = "Macros"
	fileConfiguration = "configuration.json"
	fileSettings      = "settings.json"
)

// Store is the persistence interface the registry writes through.
// *storage.Store satisfies it.
type Store interface {
	TryRead(v any, path ...string) (bool, error)
	Write(v any, path ...string) error
	EnumerateDirectories(pattern string, path ...string) ([]string, error)
	DeleteDirectory(path ...string) error
}

// Publisher is the bus-facing side of the registry.
type Publisher interface {
	Publish(msg bus.Message)
}

// Logger defines the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Counter is the increment-only face of a diagnostics counter.
type Counter interface {
	Increment()
}

// noopCounter is a counter that does nothing.
type noopCounter struct{}

func (noopCounter) Increment() {}

// Registry is the authoritative in-memory table of component groups.
//
// The concurrency discipline matches the component registry: one lock
// over the table and all per-entity maps, held across state update,
// storage write, and bus publish. On any committed mutation the whole
// group is persisted — configuration, settings, and one settings
// document per association — and stale on-disk association directories
// are pruned.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*ComponentGroup

	store     Store
	publisher Publisher
	logger    Logger
	events    Counter
}

// NewRegistry creates a component group registry over the given store and bus.
func NewRegistry(store Store, publisher Publisher) *Registry {
	return &Registry{
		groups:    make(map[string]*ComponentGroup),
		store:     store,
		publisher: publisher,
		logger:    noopLogger{},
		events:    noopCounter{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetEventCounter wires the diagnostics counter incremented per published event.
func (r *Registry) SetEventCounter(counter Counter) {
	if counter != nil {
		r.events = counter
	}
}

// UIDs returns the uids of all registered groups, sorted.
func (r *Registry) UIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	uids := make([]string, 0, len(r.groups))
	for uid := range r.groups {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// Groups returns deep-copied snapshots of all groups, sorted by uid.
func (r *Registry) Groups() []*ComponentGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make([]*ComponentGroup, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, g.DeepCopy())
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].UID < groups[j].UID
	})
	return groups
}

// Count returns the number of registered groups.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// TryGet retrieves a deep-copied group snapshot by uid.
func (r *Registry) TryGet(uid string) (*ComponentGroup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return nil, false
	}
	return g.DeepCopy(), true
}

// Get retrieves a deep-copied group snapshot by uid.
// Returns ErrGroupNotFound if the group does not exist.
func (r *Registry) Get(uid string) (*ComponentGroup, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	g, ok := r.TryGet(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, uid)
	}
	return g, nil
}

// Register creates or overwrites a group, persists it, and publishes
// component_group_registered.
func (r *Registry) Register(uid string, configuration map[string]any) (*ComponentGroup, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	if configuration == nil {
		configuration = map[string]any{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.groups[uid]
	g := newComponentGroup(uid)
	g.Configuration = value.DeepCopyMap(configuration)
	r.groups[uid] = g

	if err := r.save(g); err != nil {
		if previous != nil {
			r.groups[uid] = previous
		} else {
			delete(r.groups, uid)
		}
		return nil, err
	}

	r.publish(bus.Message{
		bus.KeyType:           EventGroupRegistered,
		"component_group_uid": uid,
	})

	r.logger.Info("component group registered", "uid", uid)
	return g.DeepCopy(), nil
}

// Delete removes a group, deletes its directory, and publishes
// component_group_deleted. Returns ErrGroupNotFound for unknown uids.
func (r *Registry) Delete(uid string) error {
	if uid == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, uid)
	}

	delete(r.groups, uid)
	if err := r.store.DeleteDirectory(dirGroups, uid); err != nil {
		r.groups[uid] = g
		return fmt.Errorf("deleting directory for %s: %w", uid, err)
	}

	r.publish(bus.Message{
		bus.KeyType:           EventGroupDeleted,
		"component_group_uid": uid,
	})

	r.logger.Info("component group deleted", "uid", uid)
	return nil
}

// Initialize builds the in-memory group from its persisted tree:
// configuration, settings, and one association per existing
// Components/<uid> and Macros/<uid> directory.
func (r *Registry) Initialize(uid string) error {
	if uid == "" {
		return ErrInvalidUID
	}

	g := newComponentGroup(uid)
	if _, err := r.store.TryRead(&g.Configuration, dirGroups, uid, fileConfiguration); err != nil {
		return fmt.Errorf("reading configuration for %s: %w", uid, err)
	}
	if _, err := r.store.TryRead(&g.Settings, dirGroups, uid, fileSettings); err != nil {
		return fmt.Errorf("reading settings for %s: %w", uid, err)
	}

	if err := r.loadAssociations(g.Components, uid, dirComponents); err != nil {
		return err
	}
	if err := r.loadAssociations(g.Macros, uid, dirMacros); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups[uid] = g

	r.publish(bus.Message{
		bus.KeyType:           EventGroupInitialized,
		"component_group_uid": uid,
	})

	r.logger.Debug("component group initialized",
		"uid", uid,
		"components", len(g.Components),
		"macros", len(g.Macros),
	)
	return nil
}

// loadAssociations fills the association map from the persisted
// sub-directory tree of a group.
func (r *Registry) loadAssociations(into map[string]*Association, groupUID, kind string) error {
	memberUIDs, err := r.store.EnumerateDirectories("*", dirGroups, groupUID, kind)
	if err != nil {
		return fmt.Errorf("enumerating %s of %s: %w", kind, groupUID, err)
	}
	for _, memberUID := range memberUIDs {
		a := newAssociation()
		if _, err := r.store.TryRead(&a.Settings, dirGroups, groupUID, kind, memberUID, fileSettings); err != nil {
			return fmt.Errorf("reading %s association %s of %s: %w", kind, memberUID, groupUID, err)
		}
		into[memberUID] = a
	}
	return nil
}

// InitializeAll loads every group found on disk. Per-group failures are
// logged and skipped.
func (r *Registry) InitializeAll() error {
	uids, err := r.store.EnumerateDirectories("*", dirGroups)
	if err != nil {
		return fmt.Errorf("enumerating component groups: %w", err)
	}

	for _, uid := range uids {
		if err := r.Initialize(uid); err != nil {
			r.logger.Error("component group initialization failed", "uid", uid, "error", err)
		}
	}

	r.logger.Info("component group registry initialized", "groups", r.Count())
	return nil
}

// AssignComponent inserts a default association for the component.
// Idempotent: assigning an existing member changes nothing and publishes
// nothing. Commits publish component_assigned.
func (r *Registry) AssignComponent(groupUID, componentUID string) error {
	return r.assign(groupUID, componentUID, dirComponents)
}

// UnassignComponent removes the component's association. Idempotent.
// Commits publish component_unassigned.
func (r *Registry) UnassignComponent(groupUID, componentUID string) error {
	return r.unassign(groupUID, componentUID, dirComponents)
}

// AssignMacro inserts a default association for the macro. Idempotent.
func (r *Registry) AssignMacro(groupUID, macroUID string) error {
	return r.assign(groupUID, macroUID, dirMacros)
}

// UnassignMacro removes the macro's association. Idempotent.
func (r *Registry) UnassignMacro(groupUID, macroUID string) error {
	return r.unassign(groupUID, macroUID, dirMacros)
}

func (r *Registry) assign(groupUID, memberUID, kind string) error {
	if groupUID == "" || memberUID == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupUID)
	}

	members := g.associations(kind)
	if _, exists := members[memberUID]; exists {
		return nil
	}

	members[memberUID] = newAssociation()
	if err := r.save(g); err != nil {
		delete(members, memberUID)
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           assignEvent(kind),
		"component_group_uid": groupUID,
		memberKey(kind):       memberUID,
	})

	r.logger.Debug("member assigned", "group", groupUID, "member", memberUID, "kind", kind)
	return nil
}

func (r *Registry) unassign(groupUID, memberUID, kind string) error {
	if groupUID == "" || memberUID == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupUID)
	}

	members := g.associations(kind)
	a, exists := members[memberUID]
	if !exists {
		return nil
	}

	delete(members, memberUID)
	if err := r.save(g); err != nil {
		members[memberUID] = a
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           unassignEvent(kind),
		"component_group_uid": groupUID,
		memberKey(kind):       memberUID,
	})

	r.logger.Debug("member unassigned", "group", groupUID, "member", memberUID, "kind", kind)
	return nil
}

// GetSetting returns the value of a group setting, or nil when the key
// is absent.
func (r *Registry) GetSetting(uid, key string) (any, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, uid)
	}
	return value.DeepCopy(g.Settings[key]), nil
}

// SetSetting updates a group setting. Equal-value writes are coalesced;
// commits persist the group and publish setting_changed carrying the old
// value and the newly written value.
func (r *Registry) SetSetting(uid, key string, v any) error {
	if uid == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, uid)
	}

	old, hadOld := g.Settings[key]
	if hadOld && value.Equal(old, v) {
		return nil
	}

	g.Settings[key] = value.DeepCopy(v)
	if err := r.save(g); err != nil {
		if hadOld {
			g.Settings[key] = old
		} else {
			delete(g.Settings, key)
		}
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           EventSettingChanged,
		"component_group_uid": uid,
		"setting_uid":         key,
		"old_value":           old,
		"new_value":           value.DeepCopy(v),
	})
	return nil
}

// RemoveSetting deletes a group setting. Removing an absent key is a
// silent no-op; otherwise the group is persisted and setting_changed
// published with a null new value.
func (r *Registry) RemoveSetting(uid, key string) error {
	if uid == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, uid)
	}

	old, hadOld := g.Settings[key]
	if !hadOld {
		return nil
	}

	delete(g.Settings, key)
	if err := r.save(g); err != nil {
		g.Settings[key] = old
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           EventSettingChanged,
		"component_group_uid": uid,
		"setting_uid":         key,
		"old_value":           old,
		"new_value":           nil,
	})
	return nil
}

// GetComponentAssociationSetting reads a setting on the
// (group, component) edge. A missing association reads as nil; a missing
// group is an error.
func (r *Registry) GetComponentAssociationSetting(groupUID, componentUID, key string) (any, error) {
	return r.getAssociationSetting(groupUID, componentUID, dirComponents, key)
}

// SetComponentAssociationSetting writes a setting on the
// (group, component) edge. A missing association is a silent no-op.
func (r *Registry) SetComponentAssociationSetting(groupUID, componentUID, key string, v any) error {
	return r.setAssociationSetting(groupUID, componentUID, dirComponents, key, v)
}

// RemoveComponentAssociationSetting removes a setting on the
// (group, component) edge. Missing association or key is a silent no-op.
func (r *Registry) RemoveComponentAssociationSetting(groupUID, componentUID, key string) error {
	return r.removeAssociationSetting(groupUID, componentUID, dirComponents, key)
}

// GetMacroAssociationSetting reads a setting on the (group, macro) edge.
func (r *Registry) GetMacroAssociationSetting(groupUID, macroUID, key string) (any, error) {
	return r.getAssociationSetting(groupUID, macroUID, dirMacros, key)
}

// SetMacroAssociationSetting writes a setting on the (group, macro) edge.
func (r *Registry) SetMacroAssociationSetting(groupUID, macroUID, key string, v any) error {
	return r.setAssociationSetting(groupUID, macroUID, dirMacros, key, v)
}

// RemoveMacroAssociationSetting removes a setting on the (group, macro) edge.
func (r *Registry) RemoveMacroAssociationSetting(groupUID, macroUID, key string) error {
	return r.removeAssociationSetting(groupUID, macroUID, dirMacros, key)
}

func (r *Registry) getAssociationSetting(groupUID, memberUID, kind, key string) (any, error) {
	if groupUID == "" || memberUID == "" {
		return nil, ErrInvalidUID
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, groupUID)
	}
	a, ok := g.associations(kind)[memberUID]
	if !ok {
		return nil, nil
	}
	return value.DeepCopy(a.Settings[key]), nil
}

func (r *Registry) setAssociationSetting(groupUID, memberUID, kind, key string, v any) error {
	if groupUID == "" || memberUID == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupUID)
	}
	a, ok := g.associations(kind)[memberUID]
	if !ok {
		return nil
	}

	old, hadOld := a.Settings[key]
	if hadOld && value.Equal(old, v) {
		return nil
	}

	a.Settings[key] = value.DeepCopy(v)
	if err := r.save(g); err != nil {
		if hadOld {
			a.Settings[key] = old
		} else {
			delete(a.Settings, key)
		}
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           EventSettingChanged,
		"component_group_uid": groupUID,
		memberKey(kind):       memberUID,
		"setting_uid":         key,
		"old_value":           old,
		"new_value":           value.DeepCopy(v),
	})
	return nil
}

func (r *Registry) removeAssociationSetting(groupUID, memberUID, kind, key string) error {
	if groupUID == "" || memberUID == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupUID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupUID)
	}
	a, ok := g.associations(kind)[memberUID]
	if !ok {
		return nil
	}

	old, hadOld := a.Settings[key]
	if !hadOld {
		return nil
	}

	delete(a.Settings, key)
	if err := r.save(g); err != nil {
		a.Settings[key] = old
		return err
	}

	r.publish(bus.Message{
		bus.KeyType:           EventSettingChanged,
		"component_group_uid": groupUID,
		memberKey(kind):       memberUID,
		"setting_uid":         key,
		"old_value":           old,
		"new_value":           nil,
	})
	return nil
}

// save persists the full group tree and reconciles stale association
// directories. Called with the registry lock held.
func (r *Registry) save(g *ComponentGroup) error {
	if err := r.store.Write(g.Configuration, dirGroups, g.UID, fileConfiguration); err != nil {
		return fmt.Errorf("persisting configuration for %s: %w", g.UID, err)
	}
	if err := r.store.Write(g.Settings, dirGroups, g.UID, fileSettings); err != nil {
		return fmt.Errorf("persisting settings for %s: %w", g.UID, err)
	}

	if err := r.saveAssociations(g.UID, dirComponents, g.Components); err != nil {
		return err
	}
	return r.saveAssociations(g.UID, dirMacros, g.Macros)
}

// saveAssociations writes each association's settings document and prunes
// directories of members no longer in the map.
func (r *Registry) saveAssociations(groupUID, kind string, members map[string]*Association) error {
	for memberUID, a := range members {
		if err := r.store.Write(a.Settings, dirGroups, groupUID, kind, memberUID, fileSettings); err != nil {
			return fmt.Errorf("persisting %s association %s of %s: %w", kind, memberUID, groupUID, err)
		}
	}

	onDisk, err := r.store.EnumerateDirectories("*", dirGroups, groupUID, kind)
	if err != nil {
		return fmt.Errorf("enumerating %s of %s: %w", kind, groupUID, err)
	}
	for _, memberUID := range onDisk {
		if _, ok := members[memberUID]; ok {
			continue
		}
		if err := r.store.DeleteDirectory(dirGroups, groupUID, kind, memberUID); err != nil {
			return fmt.Errorf("pruning stale %s association %s of %s: %w", kind, memberUID, groupUID, err)
		}
	}
	return nil
}

// publish sends an event to the bus and counts it. Called with the
// registry lock held so state and event order stay aligned.
func (r *Registry) publish(msg bus.Message) {
	r.publisher.Publish(msg)
	r.events.Increment()
}

// associations selects the member map for a persistence kind.
func (g *ComponentGroup) associations(kind string) map[string]*Association {
	if kind == dirMacros {
		return g.Macros
	}
	return g.Components
}

// memberKey returns the event payload key for a persistence kind.
func memberKey(kind string) string {
	if kind == dirMacros {
		return "macro_uid"
	}
	return "component_uid"
}

// assignEvent returns the assignment event type for a persistence kind.
func assignEvent(kind string) string {
	if kind == dirMacros {
		return EventMacroAssigned
	}
	return EventComponentAssigned
}

// unassignEvent returns the unassignment event type for a persistence kind.
func unassignEvent(kind string) string {
	if kind == dirMacros {
		return EventMacroUnassigned
	}
	return EventComponentUnassigned
}
