package ecs

import (
	"reflect"
	"sync"

	"github.com/kamstrup/intmap"
)

type commandKind uint8

const (
	commandSpawn commandKind = iota
	commandDespawn
	commandInsert
	commandRemove
	commandDefer
)

type command struct {
	kind       commandKind
	entity     Entity
	components []any
	compType   reflect.Type
	fn         func(*World)
}

// Commands buffers structural changes requested from inside running systems.
// Mutating the world mid-group would race with concurrent readers and produce
// stale query matches, so changes queue here and apply in submission order at
// the sync point after the group that submitted them, before the next group
// starts.
//
// Safe for concurrent use by the systems of one execution group.
type Commands struct {
	mu  sync.Mutex
	ops []command
}

func newCommands() *Commands {
	return &Commands{}
}

// Spawn queues creation of an entity carrying the given components.
func (c *Commands) Spawn(components ...any) {
	c.push(command{kind: commandSpawn, components: components})
}

// Despawn queues destruction of an entity. Queued changes targeting the same
// entity later in the buffer become no-ops.
func (c *Commands) Despawn(e Entity) {
	c.push(command{kind: commandDespawn, entity: e})
}

// Insert queues adding or overwriting a component on an entity.
func (c *Commands) Insert(e Entity, component any) {
	c.push(command{kind: commandInsert, entity: e, components: []any{component}})
}

// Remove queues removal of a component type from an entity.
func (c *Commands) Remove(e Entity, compType reflect.Type) {
	c.push(command{kind: commandRemove, entity: e, compType: compType})
}

// Defer queues an arbitrary world mutation to run at the sync point.
func (c *Commands) Defer(fn func(w *World)) {
	c.push(command{kind: commandDefer, fn: fn})
}

func (c *Commands) push(op command) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// Flush applies all queued operations to the world in submission order and
// resets the buffer. Operations against an entity despawned earlier in the
// same buffer, or against a handle gone stale since submission, are skipped.
func (c *Commands) Flush(w *World) {
	c.mu.Lock()
	ops := c.ops
	c.ops = nil
	c.mu.Unlock()

	if len(ops) == 0 {
		return
	}

	despawned := intmap.New[Entity, bool](len(ops))

	for _, op := range ops {
		switch op.kind {
		case commandSpawn:
			e := w.Spawn()
			for _, component := range op.components {
				w.insertBoxed(e, component)
			}
		case commandDespawn:
			if w.Despawn(op.entity) {
				despawned.Put(op.entity, true)
			}
		case commandInsert:
			if _, gone := despawned.Get(op.entity); gone {
				continue
			}
			w.insertBoxed(op.entity, op.components[0])
		case commandRemove:
			if _, gone := despawned.Get(op.entity); gone {
				continue
			}
			w.removeByType(op.entity, op.compType)
		case commandDefer:
			op.fn(w)
		}
	}
}
