package sharekit

import (
	"context"
	"fmt"
	"sync"
)

// LookupFunc fetches one entity by its opaque ID. It must return an error
// wrapping ErrNotFound when the entity does not exist. Lookup is a single
// keyed fetch, never a query.
type LookupFunc func(ctx context.Context, id string) (Entity, error)

// Registry holds all shareable entity type definitions for the application.
// It is created at startup and should be treated as immutable after
// initialization. Types are bound explicitly; there is no runtime type
// introspection.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*EntityDefinition
}

// EntityDefinition binds an entity type tag to its lookup function.
type EntityDefinition struct {
	name     string
	lookup   LookupFunc
	registry *Registry
}

// NewRegistry creates a new entity type registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*EntityDefinition),
	}
}

// DefineEntity starts defining a new shareable entity type.
// Returns an EntityDefinition builder for fluent configuration.
//
// Example:
//
//	registry.DefineEntity("document").
//	    Lookup(documentLookup).
//	    DefineEntity("event").
//	    Lookup(eventLookup)
func (r *Registry) DefineEntity(name string) *EntityDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	def := &EntityDefinition{
		name:     name,
		registry: r,
	}
	r.types[name] = def
	return def
}

// GetEntity returns the definition for an entity type.
// Returns nil if the type is not defined.
func (r *Registry) GetEntity(name string) *EntityDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[name]
}

// Types returns all registered entity type tags.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}

// ValidateType checks if an entity type is registered.
func (r *Registry) ValidateType(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.types[name]; !exists {
		return fmt.Errorf("%w: entity type %q not registered", ErrInvalidEntityType, name)
	}
	return nil
}

// LookupEntity resolves an entity reference through the registered lookup
// function. Resolution fails closed: an unregistered type, an unset lookup,
// a lookup fault, or a nil entity all surface as NotFound, never as a raw
// fault or implicit access.
func (r *Registry) LookupEntity(ctx context.Context, ref EntityRef) (Entity, error) {
	r.mu.RLock()
	def := r.types[ref.Type]
	r.mu.RUnlock()

	if def == nil || def.lookup == nil {
		return nil, NewError(ErrNotFound, "entity type not registered").WithEntity(ref)
	}

	entity, err := def.lookup(ctx, ref.ID)
	if err != nil {
		return nil, NewError(ErrNotFound, "entity lookup failed").WithEntity(ref)
	}
	if entity == nil {
		return nil, NewError(ErrNotFound, "entity does not exist").WithEntity(ref)
	}
	return entity, nil
}

// Lookup sets the lookup function for this entity type.
func (d *EntityDefinition) Lookup(fn LookupFunc) *EntityDefinition {
	d.lookup = fn
	return d
}

// Name returns the entity type tag.
func (d *EntityDefinition) Name() string {
	return d.name
}

// DefineEntity continues defining types on the registry (fluent API).
func (d *EntityDefinition) DefineEntity(name string) *EntityDefinition {
	return d.registry.DefineEntity(name)
}
