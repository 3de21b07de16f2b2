package ecs

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

// With is a zero-size query filter: the entity must currently have component T,
// without borrowing it. Declare it as a blank struct field on the view.
type With[T any] struct{}

func (With[T]) filterEntry() (reflect.Type, bool) { return reflect.TypeFor[T](), true }

// Without is a zero-size query filter: the entity must currently lack
// component T.
type Without[T any] struct{}

func (Without[T]) filterEntry() (reflect.Type, bool) { return reflect.TypeFor[T](), false }

type queryFilter interface {
	filterEntry() (typ reflect.Type, include bool)
}

var queryFilterType = reflect.TypeOf((*queryFilter)(nil)).Elem()

// Query is a declarative access pattern over the world. The type T is a view
// struct whose pointer fields name the component types to borrow; the struct
// is filled via precomputed field offsets on the hot path, no reflection per
// entity.
//
// Pointer fields borrow at Write mode by default. Struct tags refine the
// declaration:
//
//	*Position                 // required, exclusive write
//	*Velocity `ecs:"readonly"` // required, shared read
//	*Label    `ecs:"optional"` // nil when absent
//	_ With[Player]             // presence filter, no borrow
//	_ Without[Frozen]          // absence filter
//
// Each call to Iter produces one finite pass over the entities that satisfy
// the pattern at that moment, in ascending entity index order of the first
// required component's column.
type Query[T any] struct {
	world       *World
	types       []reflect.Type
	modes       []Mode
	optional    []bool
	fieldOffset []uintptr
	with        []reflect.Type
	without     []reflect.Type
}

// NewQuery creates a query bound to the given world.
func NewQuery[T any](w *World) *Query[T] {
	q := &Query[T]{}
	q.Init(w)
	return q
}

// Init parses the view struct and binds the query to a world. Called
// automatically by the Scheduler during system registration.
func (q *Query[T]) Init(w *World) {
	var zero T
	structType := reflect.TypeOf(zero)
	if structType.Kind() != reflect.Struct {
		panic("Query type parameter must be a struct")
	}

	q.world = w
	q.types = q.types[:0]
	q.modes = q.modes[:0]
	q.optional = q.optional[:0]
	q.fieldOffset = q.fieldOffset[:0]
	q.with = q.with[:0]
	q.without = q.without[:0]

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type.Implements(queryFilterType) {
			typ, include := reflect.Zero(field.Type).Interface().(queryFilter).filterEntry()
			if include {
				q.with = append(q.with, typ)
			} else {
				q.without = append(q.without, typ)
			}
			continue
		}

		if field.Type.Kind() != reflect.Ptr {
			panic("Query struct fields must be pointer types or With/Without filters")
		}

		mode := Write
		isOptional := false
		if tag := field.Tag.Get("ecs"); tag != "" {
			for _, part := range strings.Split(tag, ",") {
				switch strings.TrimSpace(part) {
				case "readonly":
					mode = Read
				case "optional":
					isOptional = true
				default:
					panic("invalid ecs tag value: \"" + part + "\" (supported: \"readonly\", \"optional\")")
				}
			}
		}

		q.types = append(q.types, field.Type.Elem())
		q.modes = append(q.modes, mode)
		q.optional = append(q.optional, isOptional)
		q.fieldOffset = append(q.fieldOffset, field.Offset)
	}
}

func (q *Query[T]) appendAccess(a *Access) {
	for i, typ := range q.types {
		if q.modes[i] == Write {
			a.WritesComponent(typ)
		} else {
			a.ReadsComponent(typ)
		}
	}
}

// drivingIndices picks the iteration driver: the column of the first required
// component, falling back to all live entity slots for patterns made of only
// optional fields and filters.
func (q *Query[T]) drivingIndices() iter.Seq[uint32] {
	for i, typ := range q.types {
		if q.optional[i] {
			continue
		}
		column := q.world.columnIfExists(typ)
		if column == nil {
			return func(yield func(uint32) bool) {}
		}
		return column.indices()
	}

	return func(yield func(uint32) bool) {
		for index := range q.world.generations {
			if q.world.alive[index] {
				if !yield(uint32(index)) {
					return
				}
			}
		}
	}
}

func (q *Query[T]) matchesFilters(index uint32) bool {
	for _, typ := range q.with {
		column := q.world.columnIfExists(typ)
		if column == nil || !column.has(index) {
			return false
		}
	}
	for _, typ := range q.without {
		column := q.world.columnIfExists(typ)
		if column != nil && column.has(index) {
			return false
		}
	}
	return true
}

// fill writes component pointers into the view struct's fields using the
// precomputed offsets, avoiding per-entity reflection.
func (q *Query[T]) fill(resultPtr unsafe.Pointer, index uint32) bool {
	for i, typ := range q.types {
		fieldPtr := unsafe.Pointer(uintptr(resultPtr) + q.fieldOffset[i])

		var boxed any
		if column := q.world.columnIfExists(typ); column != nil {
			boxed = column.get(index)
		}

		if boxed == nil {
			if !q.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		componentPtr := (*iface)(unsafe.Pointer(&boxed)).data
		*(*unsafe.Pointer)(fieldPtr) = componentPtr
	}
	return true
}

// Iter returns a one-pass iterator over (entity, view) pairs matching the
// pattern against the live world.
func (q *Query[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		var result T
		resultPtr := unsafe.Pointer(&result)

		for index := range q.drivingIndices() {
			if !q.matchesFilters(index) {
				continue
			}
			if !q.fill(resultPtr, index) {
				continue
			}
			entity := newEntity(index, q.world.generations[index])
			if !yield(entity, result) {
				return
			}
		}
	}
}

// Values returns a one-pass iterator over just the view structs.
func (q *Query[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range q.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Get fills a view for a single entity. Returns false when the handle is
// stale or the entity does not satisfy the pattern.
func (q *Query[T]) Get(e Entity) (T, bool) {
	var result T
	if !q.world.Alive(e) {
		return result, false
	}
	index := e.Index()
	if !q.matchesFilters(index) {
		return result, false
	}
	if !q.fill(unsafe.Pointer(&result), index) {
		return result, false
	}
	return result, true
}

// Count returns the number of entities currently matching the pattern.
func (q *Query[T]) Count() int {
	count := 0
	var result T
	resultPtr := unsafe.Pointer(&result)
	for index := range q.drivingIndices() {
		if q.matchesFilters(index) && q.fill(resultPtr, index) {
			count++
		}
	}
	return count
}
