package main

import (
	"math/rand"

	"github.com/pulsar-engine/pulsar/ecs"
)

// Stress components
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current, Max int
}

type Lifetime struct {
	Remaining float64
}

type Burning struct{}

// WorldBounds is the arena the movement system wraps positions into.
type WorldBounds struct {
	Width, Height float32
}

func registerStressComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Burning](registry)
}

func spawnStressEntity(w *ecs.World, rng *rand.Rand) {
	e := w.Spawn()
	ecs.Insert(w, e, Position{X: rng.Float32() * 1000, Y: rng.Float32() * 1000})
	ecs.Insert(w, e, Velocity{DX: rng.Float32()*20 - 10, DY: rng.Float32()*20 - 10})
	if rng.Intn(2) == 0 {
		ecs.Insert(w, e, Health{Current: 100, Max: 100})
	}
	if rng.Intn(4) == 0 {
		ecs.Insert(w, e, Burning{})
	}
	if rng.Intn(3) == 0 {
		ecs.Insert(w, e, Lifetime{Remaining: 1 + rng.Float64()*10})
	}
}

// movementSystem integrates velocities and wraps positions into the arena.
type movementSystem struct {
	Bounds ecs.Res[WorldBounds]
	Bodies ecs.Query[struct {
		*Position
		Vel *Velocity `ecs:"readonly"`
	}]
}

func (s *movementSystem) Execute(frame *ecs.UpdateFrame) {
	bounds := s.Bounds.Get()
	dt := float32(frame.DeltaTime)
	for item := range s.Bodies.Values() {
		item.Position.X += item.Vel.DX * dt
		item.Position.Y += item.Vel.DY * dt
		if item.Position.X < 0 {
			item.Position.X += bounds.Width
		} else if item.Position.X > bounds.Width {
			item.Position.X -= bounds.Width
		}
		if item.Position.Y < 0 {
			item.Position.Y += bounds.Height
		} else if item.Position.Y > bounds.Height {
			item.Position.Y -= bounds.Height
		}
	}
}

// burnSystem drains health of burning entities and despawns the dead.
type burnSystem struct {
	Victims ecs.Query[struct {
		*Health
		_ ecs.With[Burning]
	}]
}

func (s *burnSystem) Execute(frame *ecs.UpdateFrame) {
	for e, item := range s.Victims.Iter() {
		item.Health.Current -= 1
		if item.Health.Current <= 0 {
			frame.Commands.Despawn(e)
		}
	}
}

// lifetimeSystem expires entities and respawns replacements to keep the
// population churning through the command buffer.
type lifetimeSystem struct {
	rng *rand.Rand

	Doomed ecs.Query[struct {
		*Lifetime
	}]
}

func (s *lifetimeSystem) Execute(frame *ecs.UpdateFrame) {
	for e, item := range s.Doomed.Iter() {
		item.Lifetime.Remaining -= frame.DeltaTime
		if item.Lifetime.Remaining <= 0 {
			frame.Commands.Despawn(e)
			frame.Commands.Spawn(
				Position{X: s.rng.Float32() * 1000, Y: s.rng.Float32() * 1000},
				Velocity{DX: s.rng.Float32()*20 - 10, DY: s.rng.Float32()*20 - 10},
				Lifetime{Remaining: 1 + s.rng.Float64()*10},
			)
		}
	}
}

// observerSystem is a pure reader sharing a group with other readers.
type observerSystem struct {
	Bodies ecs.Query[struct {
		Pos *Position `ecs:"readonly"`
	}]
	LastCount int
}

func (s *observerSystem) Execute(frame *ecs.UpdateFrame) {
	count := 0
	for range s.Bodies.Iter() {
		count++
	}
	s.LastCount = count
}
