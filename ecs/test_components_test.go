package ecs_test

import "github.com/pulsar-engine/pulsar/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

type Label struct {
	Text string
}

type Player struct{}

type Frozen struct{}

type AI struct {
	State int
}

// Common test resource types
type Clock struct {
	Delta float64
}

type Score struct {
	Points int
}

type GameState int

const (
	StateMainMenu GameState = iota
	StatePlaying
	StatePaused
)

type Inventory struct {
	Items    []string
	Capacity int
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Label](registry)
	ecs.RegisterComponent[Player](registry)
	ecs.RegisterComponent[Frozen](registry)
	ecs.RegisterComponent[AI](registry)
	return registry
}

func newTestWorld() *ecs.World {
	return ecs.NewWorld(newTestRegistry())
}
