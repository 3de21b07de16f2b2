package ecs

// Entity encodes both the slot generation (upper 32 bits) and the slot index (lower 32 bits).
// A handle is live only while the World's generation at its index matches; despawning bumps
// the generation, so handles held across a despawn go stale instead of aliasing the reused slot.
type Entity uint64

// NoEntity is the zero handle. Generations start at 1, so no live entity ever equals it.
const NoEntity Entity = 0

func newEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the handle.
func (e Entity) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the generation from the handle.
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}
