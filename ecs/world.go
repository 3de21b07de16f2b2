package ecs

import (
	"fmt"
	"reflect"
)

// World owns entity slots, per-type component columns, and the resource store.
// It is the single mutation surface used by scene loading and bootstrap code;
// systems mutate it only through the deferred Commands buffer.
type World struct {
	registry    *ComponentRegistry
	generations []uint32
	alive       []bool
	freeIndices []uint32
	columns     map[reflect.Type]componentColumn
	resources   map[reflect.Type]any
}

// NewWorld creates an empty world backed by the given component registry.
func NewWorld(registry *ComponentRegistry) *World {
	return &World{
		registry:  registry,
		columns:   make(map[reflect.Type]componentColumn),
		resources: make(map[reflect.Type]any),
	}
}

// Spawn allocates a fresh entity, reusing a freed slot index when one is
// available. The returned handle stays valid until Despawn.
func (w *World) Spawn() Entity {
	if n := len(w.freeIndices); n > 0 {
		index := w.freeIndices[n-1]
		w.freeIndices = w.freeIndices[:n-1]
		w.alive[index] = true
		return newEntity(index, w.generations[index])
	}

	index := uint32(len(w.generations))
	w.generations = append(w.generations, 1)
	w.alive = append(w.alive, true)
	return newEntity(index, 1)
}

// Despawn removes all components of the entity, invalidates its handle by
// bumping the slot generation, and frees the index for reuse. Despawning a
// stale handle is a no-op and returns false.
func (w *World) Despawn(e Entity) bool {
	if !w.Alive(e) {
		return false
	}

	index := e.Index()
	for _, column := range w.columns {
		column.clear(index)
	}
	w.generations[index]++
	w.alive[index] = false
	w.freeIndices = append(w.freeIndices, index)
	return true
}

// Alive reports whether the handle refers to a live entity.
func (w *World) Alive(e Entity) bool {
	index := e.Index()
	return index < uint32(len(w.generations)) &&
		w.alive[index] &&
		w.generations[index] == e.Generation()
}

// CheckAlive returns nil for a live handle and ErrInvalidEntity otherwise.
func (w *World) CheckAlive(e Entity) error {
	if !w.Alive(e) {
		return fmt.Errorf("entity %d (gen %d): %w", e.Index(), e.Generation(), ErrInvalidEntity)
	}
	return nil
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return len(w.generations) - len(w.freeIndices)
}

// column returns the column for a component type, creating it on first use.
// Panics if the type was never registered, mirroring registration being a
// bootstrap-time concern.
func (w *World) column(t reflect.Type) componentColumn {
	if column, ok := w.columns[t]; ok {
		return column
	}
	factory := w.registry.getFactory(t)
	if factory == nil {
		panic("component type " + t.String() + " not registered")
	}
	column := factory()
	w.columns[t] = column
	return column
}

func (w *World) columnIfExists(t reflect.Type) componentColumn {
	return w.columns[t]
}

// insertBoxed adds a component carried as an interface value (possibly a
// pointer) to a live entity. Used by the Commands flush path.
func (w *World) insertBoxed(e Entity, component any) {
	if !w.Alive(e) {
		return
	}
	t := reflect.TypeOf(component)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	w.column(t).set(e.Index(), component)
}

// removeByType removes a component by reflected type, returning whether one
// was present. Used by the Commands flush path.
func (w *World) removeByType(e Entity, t reflect.Type) bool {
	if !w.Alive(e) {
		return false
	}
	column := w.columnIfExists(t)
	if column == nil {
		return false
	}
	_, ok := column.take(e.Index())
	return ok
}

// Insert adds or overwrites component T for the entity. Overwriting is not an
// error; inserting on a stale handle is a no-op.
func Insert[T any](w *World, e Entity, value T) {
	if !w.Alive(e) {
		return
	}
	w.column(reflect.TypeFor[T]()).set(e.Index(), value)
}

// Remove removes component T from the entity and returns the prior value.
// Absence, like a stale handle, yields the zero value and false.
func Remove[T any](w *World, e Entity) (T, bool) {
	var zero T
	if !w.Alive(e) {
		return zero, false
	}
	column := w.columnIfExists(reflect.TypeFor[T]())
	if column == nil {
		return zero, false
	}
	value, ok := column.take(e.Index())
	if !ok {
		return zero, false
	}
	return value.(T), true
}

// Get returns a pointer to component T of the entity, or nil and false when
// the component is absent or the handle is stale.
func Get[T any](w *World, e Entity) (*T, bool) {
	if !w.Alive(e) {
		return nil, false
	}
	column := w.columnIfExists(reflect.TypeFor[T]())
	if column == nil {
		return nil, false
	}
	boxed := column.get(e.Index())
	if boxed == nil {
		return nil, false
	}
	return boxed.(*T), true
}

// Has reports whether the entity currently has component T.
func Has[T any](w *World, e Entity) bool {
	if !w.Alive(e) {
		return false
	}
	column := w.columnIfExists(reflect.TypeFor[T]())
	return column != nil && column.has(e.Index())
}

// InsertResource sets the single instance of resource T, overwriting any
// previous value in place so cached accessors stay valid.
func InsertResource[T any](w *World, value T) {
	t := reflect.TypeFor[T]()
	if existing, ok := w.resources[t]; ok {
		*existing.(*T) = value
		return
	}
	w.resources[t] = &value
}

// Resource returns the resource of type T, or nil and false when it was never
// inserted. Absence is recoverable, not a crash.
func Resource[T any](w *World) (*T, bool) {
	boxed, ok := w.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return boxed.(*T), true
}

// ResourceErr is the error-reporting variant of Resource, failing with
// ErrMissingResource for defensive callers.
func ResourceErr[T any](w *World) (*T, error) {
	value, ok := Resource[T](w)
	if !ok {
		return nil, fmt.Errorf("%s: %w", reflect.TypeFor[T]().String(), ErrMissingResource)
	}
	return value, nil
}

// RemoveResource drops the resource of type T, returning whether it existed.
func RemoveResource[T any](w *World) bool {
	t := reflect.TypeFor[T]()
	if _, ok := w.resources[t]; !ok {
		return false
	}
	delete(w.resources, t)
	return true
}
