package ecs

import "reflect"

// Res provides shared read access to a single resource instance that is not
// associated with any entity. Declaring a Res field on a system contributes a
// Read entry for T to the system's access declaration; the mode is checked at
// registration, not on every call, keeping the hot path a cached pointer
// dereference.
type Res[T any] struct {
	world     *World
	cachedPtr *T
}

// Init binds the accessor to a world. Called automatically by the Scheduler
// during system registration.
func (r *Res[T]) Init(w *World) {
	r.world = w
	r.cachedPtr = nil
	r.refresh()
}

// Get returns the resource, or nil if it was never inserted. The value must
// be treated as read-only; the scheduler admits concurrent readers based on
// this declaration.
func (r *Res[T]) Get() *T {
	if r.cachedPtr == nil {
		r.refresh()
	}
	return r.cachedPtr
}

// Exists reports whether the resource has been inserted.
func (r *Res[T]) Exists() bool {
	return r.Get() != nil
}

func (r *Res[T]) refresh() {
	if r.world == nil {
		return
	}
	if ptr, ok := Resource[T](r.world); ok {
		r.cachedPtr = ptr
	}
}

func (r *Res[T]) appendAccess(a *Access) {
	a.ReadsResource(reflect.TypeFor[T]())
}

// ResMut provides exclusive write access to a single resource instance.
// Declaring a ResMut field contributes a Write entry for T, serializing the
// system against every other reader or writer of T.
type ResMut[T any] struct {
	world     *World
	cachedPtr *T
}

// Init binds the accessor to a world. Called automatically by the Scheduler
// during system registration.
func (r *ResMut[T]) Init(w *World) {
	r.world = w
	r.cachedPtr = nil
	r.refresh()
}

// Get returns the resource for mutation, or nil if it was never inserted.
func (r *ResMut[T]) Get() *T {
	if r.cachedPtr == nil {
		r.refresh()
	}
	return r.cachedPtr
}

// Set inserts or overwrites the resource.
func (r *ResMut[T]) Set(value T) {
	if r.world == nil {
		return
	}
	InsertResource(r.world, value)
	r.refresh()
}

// Exists reports whether the resource has been inserted.
func (r *ResMut[T]) Exists() bool {
	return r.Get() != nil
}

func (r *ResMut[T]) refresh() {
	if r.world == nil {
		return
	}
	if ptr, ok := Resource[T](r.world); ok {
		r.cachedPtr = ptr
	}
}

func (r *ResMut[T]) appendAccess(a *Access) {
	a.WritesResource(reflect.TypeFor[T]())
}
