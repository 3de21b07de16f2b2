package ecs

import (
	"iter"
	"unsafe"
)

// iface represents the internal memory layout of an interface{}.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// componentColumn is a type-erased sparse column of one component type,
// addressed by entity slot index.
type componentColumn interface {
	set(index uint32, component any)
	get(index uint32) any
	take(index uint32) (any, bool)
	has(index uint32) bool
	clear(index uint32)
	count() int
	// indices yields occupied slot indices in ascending order. The sequence is
	// stable as long as no structural change happens, which the scheduler
	// guarantees for the duration of an execution group.
	indices() iter.Seq[uint32]
}

const columnBlockSize = 64

// genericColumn stores components of type T in fixed-size blocks indexed by
// entity slot. Slots stay put for an entity's whole lifetime, so iteration
// order is ascending entity index.
type genericColumn[T any] struct {
	blocks [][columnBlockSize]T
	filled [][columnBlockSize]bool
	live   int
	bound  uint32 // one past the highest index ever set
}

func (c *genericColumn[T]) set(index uint32, component any) {
	var value T
	switch v := component.(type) {
	case *T:
		value = *v
	case T:
		value = v
	default:
		return
	}

	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	for blockIdx >= len(c.blocks) {
		c.blocks = append(c.blocks, [columnBlockSize]T{})
		c.filled = append(c.filled, [columnBlockSize]bool{})
	}

	if !c.filled[blockIdx][slotIdx] {
		c.live++
	}
	c.blocks[blockIdx][slotIdx] = value
	c.filled[blockIdx][slotIdx] = true
	if index+1 > c.bound {
		c.bound = index + 1
	}
}

func (c *genericColumn[T]) get(index uint32) any {
	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	if blockIdx >= len(c.blocks) || !c.filled[blockIdx][slotIdx] {
		return nil
	}
	return &c.blocks[blockIdx][slotIdx]
}

func (c *genericColumn[T]) take(index uint32) (any, bool) {
	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize

	if blockIdx >= len(c.blocks) || !c.filled[blockIdx][slotIdx] {
		return nil, false
	}

	value := c.blocks[blockIdx][slotIdx]
	var zero T
	c.blocks[blockIdx][slotIdx] = zero
	c.filled[blockIdx][slotIdx] = false
	c.live--
	return value, true
}

func (c *genericColumn[T]) has(index uint32) bool {
	blockIdx := int(index) / columnBlockSize
	slotIdx := int(index) % columnBlockSize
	return blockIdx < len(c.blocks) && c.filled[blockIdx][slotIdx]
}

func (c *genericColumn[T]) clear(index uint32) {
	c.take(index)
}

func (c *genericColumn[T]) count() int {
	return c.live
}

func (c *genericColumn[T]) indices() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for i := uint32(0); i < c.bound; i++ {
			blockIdx := int(i) / columnBlockSize
			slotIdx := int(i) % columnBlockSize
			if c.filled[blockIdx][slotIdx] {
				if !yield(i) {
					return
				}
			}
		}
	}
}
