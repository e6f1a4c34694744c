package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/value"
)

// Bus event types published by the registry.
const (
	EventComponentRegistered  = "component_registry.event.component_registered"
	EventComponentDeleted     = "component_registry.event.component_deleted"
	EventComponentInitialized = "component_registry.event.initialized"
	EventSettingChanged       = "component_registry.event.setting_changed"
	EventStatusChanged        = "component_registry.event.status_changed"
	EventComponentEnabled     = "component_registry.event.component_enabled"
	EventComponentDisabled    = "component_registry.event.component_disabled"
)

// Persisted document layout under the data directory.
const (
	dirComponents     = "Components"
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

// Registry is the authoritative in-memory table of components.
//
// A single lock protects the table and every per-entity map. Read paths
// hold it long enough to copy state out; write paths hold it across the
// in-memory update, the storage write, and the bus publish, so observers
// never see events out of order with state. Settings are persisted on
// every committed change; status is RAM-only.
type Registry struct {
	mu         sync.Mutex
	components map[string]*Component

	store     Store
	publisher Publisher
	logger    Logger
	events    Counter
}

// NewRegistry creates a component registry over the given store and bus.
func NewRegistry(store Store, publisher Publisher) *Registry {
	return &Registry{
		components: make(map[string]*Component),
		store:      store,
		publisher:  publisher,
		logger:     noopLogger{},
		events:     noopCounter{},
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

// UIDs returns the uids of all registered components, sorted.
func (r *Registry) UIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	uids := make([]string, 0, len(r.components))
	for uid := range r.components {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// Components returns deep-copied snapshots of all components, sorted by uid.
func (r *Registry) Components() []*Component {
	r.mu.Lock()
	defer r.mu.Unlock()

	components := make([]*Component, 0, len(r.components))
	for _, c := range r.components {
		components = append(components, c.DeepCopy())
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i].UID < components[j].UID
	})
	return components
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.components)
}

// TryGet retrieves a deep-copied component snapshot by uid.
func (r *Registry) TryGet(uid string) (*Component, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return nil, false
	}
	return c.DeepCopy(), true
}

// Get retrieves a deep-copied component snapshot by uid.
// Returns ErrComponentNotFound if the component does not exist.
func (r *Registry) Get(uid string) (*Component, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	c, ok := r.TryGet(uid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}
	return c, nil
}

// Register creates or overwrites a component with the given configuration,
// persists the configuration, and publishes component_registered. Settings
// and status start empty.
func (r *Registry) Register(uid string, configuration map[string]any) (*Component, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	if configuration == nil {
		configuration = map[string]any{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.components[uid]
	c := newComponent(uid)
	c.Configuration = value.DeepCopyMap(configuration)
	r.components[uid] = c

	if err := r.store.Write(c.Configuration, dirComponents, uid, fileConfiguration); err != nil {
		// Roll back so observers never see an unpersisted component.
		if previous != nil {
			r.components[uid] = previous
		} else {
			delete(r.components, uid)
		}
		return nil, fmt.Errorf("persisting configuration for %s: %w", uid, err)
	}
	if err := r.store.Write(c.Settings, dirComponents, uid, fileSettings); err != nil {
		if previous != nil {
			r.components[uid] = previous
		} else {
			delete(r.components, uid)
		}
		return nil, fmt.Errorf("persisting settings for %s: %w", uid, err)
	}

	r.publish(bus.Message{
		bus.KeyType:     EventComponentRegistered,
		"component_uid": uid,
	})

	r.logger.Info("component registered", "uid", uid)
	return c.DeepCopy(), nil
}

// Delete removes a component, deletes its directory, and publishes
// component_deleted. Returns ErrComponentNotFound for unknown uids.
func (r *Registry) Delete(uid string) error {
	if uid == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}

	delete(r.components, uid)
	if err := r.store.DeleteDirectory(dirComponents, uid); err != nil {
		r.components[uid] = c
		return fmt.Errorf("deleting directory for %s: %w", uid, err)
	}

	r.publish(bus.Message{
		bus.KeyType:     EventComponentDeleted,
		"component_uid": uid,
	})

	r.logger.Info("component deleted", "uid", uid)
	return nil
}

// Initialize builds the in-memory entity for a component from its
// persisted configuration and settings, then publishes initialized.
// Failures leave the entity absent.
func (r *Registry) Initialize(uid string) error {
	if uid == "" {
		return ErrInvalidUID
	}

	configuration := map[string]any{}
	if _, err := r.store.TryRead(&configuration, dirComponents, uid, fileConfiguration); err != nil {
		return fmt.Errorf("reading configuration for %s: %w", uid, err)
	}

	settings := map[string]any{}
	if _, err := r.store.TryRead(&settings, dirComponents, uid, fileSettings); err != nil {
		return fmt.Errorf("reading settings for %s: %w", uid, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := newComponent(uid)
	c.Configuration = configuration
	for k, v := range settings {
		c.Settings[k] = v
	}
	r.components[uid] = c

	r.publish(bus.Message{
		bus.KeyType:     EventComponentInitialized,
		"component_uid": uid,
	})

	r.logger.Debug("component initialized", "uid", uid, "settings", len(settings))
	return nil
}

// InitializeAll loads every component found on disk. Per-component
// failures are logged and skipped so one corrupt entry cannot prevent
// the hub from booting.
func (r *Registry) InitializeAll() error {
	uids, err := r.store.EnumerateDirectories("*", dirComponents)
	if err != nil {
		return fmt.Errorf("enumerating components: %w", err)
	}

	for _, uid := range uids {
		if err := r.Initialize(uid); err != nil {
			r.logger.Error("component initialization failed", "uid", uid, "error", err)
		}
	}

	r.logger.Info("component registry initialized", "components", r.Count())
	return nil
}

// GetSetting returns the value of a component setting, or nil when the
// key is absent. Unknown components return ErrComponentNotFound.
func (r *Registry) GetSetting(uid, key string) (any, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}
	return value.DeepCopy(c.Settings[key]), nil
}

// SetSetting updates a component setting.
//
// Writes of a value deeply equal to the current one are coalesced: no
// storage write, no event. Otherwise the in-memory map is updated, the
// settings document persisted, and setting_changed published with the
// old and new values. On a storage failure the in-memory value is rolled
// back and no event is published.
func (r *Registry) SetSetting(uid, key string, v any) error {
	if uid == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}

	old, hadOld := c.Settings[key]
	if hadOld && value.Equal(old, v) {
		return nil
	}

	c.Settings[key] = value.DeepCopy(v)
	if err := r.store.Write(c.Settings, dirComponents, uid, fileSettings); err != nil {
		if hadOld {
			c.Settings[key] = old
		} else {
			delete(c.Settings, key)
		}
		return fmt.Errorf("persisting settings for %s: %w", uid, err)
	}

	r.publish(bus.Message{
		bus.KeyType:     EventSettingChanged,
		"component_uid": uid,
		"setting_uid":   key,
		"old_value":     old,
		"new_value":     value.DeepCopy(v),
	})

	r.logger.Debug("component setting changed", "uid", uid, "setting", key)
	return nil
}

// RemoveSetting deletes a component setting. Removing an absent key is a
// silent no-op; otherwise the document is persisted and setting_changed
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

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}

	old, hadOld := c.Settings[key]
	if !hadOld {
		return nil
	}

	delete(c.Settings, key)
	if err := r.store.Write(c.Settings, dirComponents, uid, fileSettings); err != nil {
		c.Settings[key] = old
		return fmt.Errorf("persisting settings for %s: %w", uid, err)
	}

	r.publish(bus.Message{
		bus.KeyType:     EventSettingChanged,
		"component_uid": uid,
		"setting_uid":   key,
		"old_value":     old,
		"new_value":     nil,
	})
	return nil
}

// GetStatus returns the value of a live status reading, or nil when the
// key is absent. Unknown components return ErrComponentNotFound.
func (r *Registry) GetStatus(uid, key string) (any, error) {
	if uid == "" {
		return nil, ErrInvalidUID
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}
	return value.DeepCopy(c.Status[key]), nil
}

// SetStatus updates a live status reading. Status is never persisted.
// Equal-value writes are coalesced; changes publish status_changed.
func (r *Registry) SetStatus(uid, key string, v any) error {
	if uid == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}

	old, hadOld := c.Status[key]
	if hadOld && value.Equal(old, v) {
		return nil
	}

	c.Status[key] = value.DeepCopy(v)

	r.publish(bus.Message{
		bus.KeyType:     EventStatusChanged,
		"component_uid": uid,
		"status_uid":    key,
		"old_value":     old,
		"new_value":     value.DeepCopy(v),
	})

	r.logger.Debug("component status changed", "uid", uid, "status", key)
	return nil
}

// RemoveStatus deletes a live status reading. Removing an absent key is
// a silent no-op; otherwise status_changed is published with a null new
// value.
func (r *Registry) RemoveStatus(uid, key string) error {
	if uid == "" {
		return ErrInvalidUID
	}
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}

	old, hadOld := c.Status[key]
	if !hadOld {
		return nil
	}

	delete(c.Status, key)

	r.publish(bus.Message{
		bus.KeyType:     EventStatusChanged,
		"component_uid": uid,
		"status_uid":    key,
		"old_value":     old,
		"new_value":     nil,
	})
	return nil
}

// SetEnabled flips the logical enabled flag, publishing
// component_enabled or component_disabled on an actual change.
func (r *Registry) SetEnabled(uid string, enabled bool) error {
	if uid == "" {
		return ErrInvalidUID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.components[uid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, uid)
	}
	if c.Enabled == enabled {
		return nil
	}

	c.Enabled = enabled
	eventType := EventComponentEnabled
	if !enabled {
		eventType = EventComponentDisabled
	}
	r.publish(bus.Message{
		bus.KeyType:     eventType,
		"component_uid": uid,
	})
	return nil
}

// publish sends an event to the bus and counts it. Called with the
// registry lock held so state and event order stay aligned.
func (r *Registry) publish(msg bus.Message) {
	r.publisher.Publish(msg)
	r.events.Increment()
}
