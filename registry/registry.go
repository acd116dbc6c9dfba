package registry

import (
	"fmt"
	"maps"
	"sync"

	"github.com/c360/flowmesh/ferrors"
)

// Entity is anything a Registry can hold: a value that may or may not
// carry a name. component.Component and component.Strategy both
// implement this.
type Entity interface {
	EntityName() (string, bool)
}

// Registry is a name -> Entity lookup table. Reads never block behind a
// write in progress longer than the write itself takes (sync.RWMutex);
// All returns a defensive copy so callers can range over it without
// holding the lock.
type Registry[T Entity] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// New returns an empty Registry.
func New[T Entity]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// PutIfNamed registers entity under its own name. An entity with no name
// (EntityName's second return false) is a no-op: anonymous entities are
// never registered. A name that already exists is replaced, not
// rejected — PutIfNamed is last-write-wins, not a one-time claim.
func (r *Registry[T]) PutIfNamed(entity T) error {
	name, ok := entity.EntityName()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = entity
	return nil
}

// Get returns the entity registered under name, or the zero value and
// ErrUnknownName if none is registered.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entries[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, ferrors.ErrUnknownName)
	}
	return entity, nil
}

// All returns a snapshot copy of every registered entity, keyed by name.
func (r *Registry[T]) All() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]T, len(r.entries))
	maps.Copy(out, r.entries)
	return out
}
