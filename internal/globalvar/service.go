// Package globalvar implements the global variables service: a single
// persisted uid → value map shared by scripts and automations, surfaced
// at /api/v1/global_variables.
//
// The service follows the registry discipline — one lock held across
// state update, storage write, and bus publish, equal-value writes
// coalesced, rollback on persistence failure.
package globalvar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/value"
)

// Bus event types published by the service.
const (
	EventValueSet     = "global_variables_service.event.value_set"
	EventValueDeleted = "global_variables_service.event.value_deleted"
)

// Persisted document layout under the data directory.
const (
	dirGlobalVariables = "GlobalVariables"
	fileVariables      = "variables.json"
)

// ErrInvalidUID is returned when a variable uid is empty.
var ErrInvalidUID = errors.New("global variables: invalid uid")

// Store is the persistence interface the service writes through.
type Store interface {
	TryRead(v any, path ...string) (bool, error)
	Write(v any, path ...string) error
}

// Publisher is the bus-facing side of the service.
type Publisher interface {
	Publish(msg bus.Message)
}

// Service holds the global variables map.
//
// Thread Safety: all methods are safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	variables map[string]any

	store     Store
	publisher Publisher
}

// NewService creates a global variables service over the given store and bus.
func NewService(store Store, publisher Publisher) *Service {
	return &Service{
		variables: make(map[string]any),
		store:     store,
		publisher: publisher,
	}
}

// Initialize loads the persisted variables document. A missing document
// leaves the map empty.
func (s *Service) Initialize() error {
	variables := map[string]any{}
	if _, err := s.store.TryRead(&variables, dirGlobalVariables, fileVariables); err != nil {
		return fmt.Errorf("reading global variables: %w", err)
	}

	s.mu.Lock()
	s.variables = variables
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of all variables.
func (s *Service) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return value.DeepCopyMap(s.variables)
}

// Get returns the value of a variable, or nil when absent.
func (s *Service) Get(uid string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return value.DeepCopy(s.variables[uid])
}

// Set writes a variable. Equal-value writes are coalesced; commits
// persist the document and publish value_set with old and new values.
func (s *Service) Set(uid string, v any) error {
	if uid == "" {
		return ErrInvalidUID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, hadOld := s.variables[uid]
	if hadOld && value.Equal(old, v) {
		return nil
	}

	s.variables[uid] = value.DeepCopy(v)
	if err := s.store.Write(s.variables, dirGlobalVariables, fileVariables); err != nil {
		if hadOld {
			s.variables[uid] = old
		} else {
			delete(s.variables, uid)
		}
		return fmt.Errorf("persisting global variables: %w", err)
	}

	s.publisher.Publish(bus.Message{
		bus.KeyType:    EventValueSet,
		"variable_uid": uid,
		"old_value":    old,
		"new_value":    value.DeepCopy(v),
	})
	return nil
}

// Delete removes a variable. Deleting an absent uid is a silent no-op;
// commits persist the document and publish value_deleted.
func (s *Service) Delete(uid string) error {
	if uid == "" {
		return ErrInvalidUID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, hadOld := s.variables[uid]
	if !hadOld {
		return nil
	}

	delete(s.variables, uid)
	if err := s.store.Write(s.variables, dirGlobalVariables, fileVariables); err != nil {
		s.variables[uid] = old
		return fmt.Errorf("persisting global variables: %w", err)
	}

	s.publisher.Publish(bus.Message{
		bus.KeyType:    EventValueDeleted,
		"variable_uid": uid,
		"old_value":    old,
	})
	return nil
}
