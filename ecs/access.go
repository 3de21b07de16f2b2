package ecs

import "reflect"

// Mode distinguishes shared reads from exclusive writes in an access
// declaration.
type Mode uint8

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

type accessEntry struct {
	typ  reflect.Type
	mode Mode
}

// Access is a system's static data-access summary: which component and
// resource types it reads and writes. It is assembled once at registration,
// from the system's Query/Res/ResMut fields plus any explicit declaration,
// and never mutated afterwards. The scheduler uses it for conflict analysis
// only; actual entities touched are never inspected.
type Access struct {
	components []accessEntry
	resources  []accessEntry
}

// NewAccess creates an empty access declaration for explicit builder-style
// construction.
func NewAccess() *Access {
	return &Access{}
}

// ReadsComponent declares a shared read of a component type.
func (a *Access) ReadsComponent(t reflect.Type) *Access {
	a.components = mergeEntry(a.components, t, Read)
	return a
}

// WritesComponent declares an exclusive write of a component type.
func (a *Access) WritesComponent(t reflect.Type) *Access {
	a.components = mergeEntry(a.components, t, Write)
	return a
}

// ReadsResource declares a shared read of a resource type.
func (a *Access) ReadsResource(t reflect.Type) *Access {
	a.resources = mergeEntry(a.resources, t, Read)
	return a
}

// WritesResource declares an exclusive write of a resource type.
func (a *Access) WritesResource(t reflect.Type) *Access {
	a.resources = mergeEntry(a.resources, t, Write)
	return a
}

// merge folds another declaration into this one. Write wins over Read for a
// type declared by both.
func (a *Access) merge(other *Access) {
	if other == nil {
		return
	}
	for _, e := range other.components {
		a.components = mergeEntry(a.components, e.typ, e.mode)
	}
	for _, e := range other.resources {
		a.resources = mergeEntry(a.resources, e.typ, e.mode)
	}
}

func mergeEntry(entries []accessEntry, t reflect.Type, mode Mode) []accessEntry {
	for i, e := range entries {
		if e.typ == t {
			if mode == Write {
				entries[i].mode = Write
			}
			return entries
		}
	}
	return append(entries, accessEntry{typ: t, mode: mode})
}

// ConflictsWith reports whether two declarations cannot run concurrently:
// they share a component or resource type and at least one side writes it.
// Deliberately conservative; overlap of actual entities is never considered.
func (a *Access) ConflictsWith(other *Access) bool {
	return entriesConflict(a.components, other.components) ||
		entriesConflict(a.resources, other.resources)
}

func entriesConflict(left, right []accessEntry) bool {
	for _, l := range left {
		for _, r := range right {
			if l.typ == r.typ && (l.mode == Write || r.mode == Write) {
				return true
			}
		}
	}
	return false
}

// ComponentModes returns the declared component access as a type-to-mode map.
// Intended for tests and diagnostics.
func (a *Access) ComponentModes() map[reflect.Type]Mode {
	return entryModes(a.components)
}

// ResourceModes returns the declared resource access as a type-to-mode map.
func (a *Access) ResourceModes() map[reflect.Type]Mode {
	return entryModes(a.resources)
}

func entryModes(entries []accessEntry) map[reflect.Type]Mode {
	modes := make(map[reflect.Type]Mode, len(entries))
	for _, e := range entries {
		modes[e.typ] = e.mode
	}
	return modes
}

// AccessDeclarer lets a system contribute access entries that cannot be
// inferred from its Query/Res/ResMut fields, such as direct Commands spawns
// of specific component types.
type AccessDeclarer interface {
	DeclaredAccess() *Access
}
