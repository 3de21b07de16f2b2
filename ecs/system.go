package ecs

// System represents a behavior that runs once per frame. User-defined systems
// implement this interface as structs whose exported Query, Res, and ResMut
// fields both get initialized at registration and define the system's access
// declaration; any other fields are state that persists between frames.
type System interface {
	Execute(frame *UpdateFrame)
}

// SystemFunc adapts a plain function and an explicit access declaration into
// a registrable system, for callers that build descriptors by hand instead of
// declaring fields.
func SystemFunc(name string, access *Access, fn func(frame *UpdateFrame)) System {
	return &funcSystem{name: name, access: access, fn: fn}
}

type funcSystem struct {
	name   string
	access *Access
	fn     func(frame *UpdateFrame)
}

func (s *funcSystem) Execute(frame *UpdateFrame) { s.fn(frame) }

func (s *funcSystem) DeclaredAccess() *Access { return s.access }

func (s *funcSystem) SystemName() string { return s.name }

// systemParam is implemented by the field types (Query, Res, ResMut) that the
// scheduler binds to the world and folds into the system's Access at
// registration.
type systemParam interface {
	Init(w *World)
	appendAccess(a *Access)
}

// UpdateFrame is the per-frame context handed to every system: the frame's
// delta time, the live world for reads, and the Commands buffer for deferred
// structural changes.
type UpdateFrame struct {
	DeltaTime float64
	Commands  *Commands
	World     *World
}

func newUpdateFrame(dt float64, world *World) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  newCommands(),
		World:     world,
	}
}
