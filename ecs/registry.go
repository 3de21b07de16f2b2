package ecs

import "reflect"

// ComponentRegistry manages component type registration for an ECS instance.
// Each World has its own registry, so multiple independent worlds can coexist
// without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() componentColumn
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() componentColumn),
	}
}

// RegisterComponent registers a component type with the given registry.
// This must be called for each component type before it can be used.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	r.factories[t] = func() componentColumn {
		return &genericColumn[T]{}
	}
}

// getFactory returns the column factory for a component type, or nil if the
// type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() componentColumn {
	return r.factories[t]
}

// Registered reports whether a component type has been registered.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}
