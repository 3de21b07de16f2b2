package ecs_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pulsar-engine/pulsar/ecs"
)

// PhysicsSystem reads the Clock resource and writes Position.
type PhysicsSystem struct {
	Clock  ecs.Res[Clock]
	Bodies ecs.Query[struct {
		*Position
		Vel *Velocity `ecs:"readonly"`
	}]
	ExecuteCount int
}

func (s *PhysicsSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	clock := s.Clock.Get()
	if clock == nil {
		return
	}
	for item := range s.Bodies.Values() {
		item.Position.X += item.Vel.DX * float32(clock.Delta)
		item.Position.Y += item.Vel.DY * float32(clock.Delta)
	}
}

// ScoringSystem reads Position and writes the Score resource, so it must run
// after PhysicsSystem within a frame.
type ScoringSystem struct {
	Score  ecs.ResMut[Score]
	Bodies ecs.Query[struct {
		Pos *Position `ecs:"readonly"`
	}]
	ExecuteCount int
}

func (s *ScoringSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	score := s.Score.Get()
	if score == nil {
		return
	}
	for item := range s.Bodies.Values() {
		score.Points += int(item.Pos.Y)
	}
}

func TestPlanSeparatesConflictingSystems(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})
	ecs.InsertResource(w, Score{})

	scheduler := ecs.NewScheduler(w)
	scheduler.Register(&PhysicsSystem{})
	scheduler.Register(&ScoringSystem{})

	groups, err := scheduler.Groups()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}

	want := [][]string{{"PhysicsSystem"}, {"ScoringSystem"}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("expected plan %v, got %v", want, groups)
	}
}

func TestFrameEndToEnd(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})
	ecs.InsertResource(w, Score{})

	scheduler := ecs.NewScheduler(w)
	physics := &PhysicsSystem{}
	scoring := &ScoringSystem{}
	scheduler.Register(physics)
	scheduler.Register(scoring)

	e := w.Spawn()
	ecs.Insert(w, e, Position{Y: 0})
	ecs.Insert(w, e, Velocity{DY: 5})

	if err := scheduler.RunFrame(1.0); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}

	pos, _ := ecs.Get[Position](w, e)
	if pos == nil || pos.Y != 5 {
		t.Fatalf("expected Position.Y=5 after one frame, got %v", pos)
	}

	// Scoring ran in the later group, so it saw the moved position
	score, _ := ecs.Resource[Score](w)
	if score.Points != 5 {
		t.Errorf("expected Score.Points=5, got %d", score.Points)
	}

	if physics.ExecuteCount != 1 || scoring.ExecuteCount != 1 {
		t.Errorf("expected both systems to run once, got %d and %d",
			physics.ExecuteCount, scoring.ExecuteCount)
	}
}

func TestNonConflictingSystemsShareGroup(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})

	scheduler := ecs.NewScheduler(w)
	scheduler.Register(&accessStubSystem{access: ecs.NewAccess().ReadsComponent(positionType)})
	scheduler.Register(&accessStubSystem{access: ecs.NewAccess().ReadsComponent(positionType)})
	scheduler.Register(&accessStubSystem{access: ecs.NewAccess().WritesComponent(velocityType)})

	groups, err := scheduler.Groups()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("expected one group for non-conflicting systems, got %v", groups)
	}
	if len(groups[0]) != 3 {
		t.Errorf("expected 3 members, got %v", groups[0])
	}
}

type spawnerSystem struct {
	spawned bool
}

func (s *spawnerSystem) Execute(frame *ecs.UpdateFrame) {
	if !s.spawned {
		s.spawned = true
		frame.Commands.Spawn(Position{X: 10}, Velocity{DX: 1})
	}
}

func (s *spawnerSystem) DeclaredAccess() *ecs.Access {
	return ecs.NewAccess().
		WritesComponent(reflect.TypeOf(Position{})).
		WritesComponent(reflect.TypeOf(Velocity{}))
}

// countingSystem conflicts with spawnerSystem (writes Position), forcing it
// into a later group, where it must observe the flushed spawn.
type countingSystem struct {
	Bodies ecs.Query[struct {
		*Position
	}]
	SeenPerFrame []int
}

func (s *countingSystem) Execute(frame *ecs.UpdateFrame) {
	count := 0
	for range s.Bodies.Iter() {
		count++
	}
	s.SeenPerFrame = append(s.SeenPerFrame, count)
}

func TestDeferredSpawnVisibleNextGroup(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)

	spawner := &spawnerSystem{}
	counter := &countingSystem{}
	scheduler.Register(spawner)
	scheduler.Register(counter)

	groups, err := scheduler.Groups()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected spawner and counter in separate groups, got %v", groups)
	}

	// The spawn queued in group 0 flushes before group 1 runs
	if err := scheduler.RunFrame(1.0); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if got := counter.SeenPerFrame[0]; got != 1 {
		t.Errorf("expected counter to see 1 entity in frame 1, got %d", got)
	}
}

// despawnerSystem queues a despawn mid-iteration; its own pass must not be
// disturbed, and the change lands at the group boundary.
type despawnerSystem struct {
	Bodies ecs.Query[struct {
		*Position
	}]
	SeenDuringFrame int
}

func (s *despawnerSystem) Execute(frame *ecs.UpdateFrame) {
	s.SeenDuringFrame = 0
	for e := range s.Bodies.Iter() {
		frame.Commands.Despawn(e)
		s.SeenDuringFrame++
	}
	// A second pass in the same invocation still sees every entity:
	// structural changes are deferred to the sync point.
	second := 0
	for range s.Bodies.Iter() {
		second++
	}
	if second != s.SeenDuringFrame {
		panic("deferred despawn became visible mid-group")
	}
}

func TestDespawnDeferredUntilGroupBoundary(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)

	for i := 0; i < 4; i++ {
		e := w.Spawn()
		ecs.Insert(w, e, Position{X: float32(i)})
	}

	despawner := &despawnerSystem{}
	scheduler.Register(despawner)

	if err := scheduler.RunFrame(1.0); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}

	if despawner.SeenDuringFrame != 4 {
		t.Errorf("expected 4 entities visible during the frame, got %d", despawner.SeenDuringFrame)
	}
	if w.EntityCount() != 0 {
		t.Errorf("expected all entities despawned after the frame, got %d", w.EntityCount())
	}
}

type panickingSystem struct{}

func (s *panickingSystem) Execute(frame *ecs.UpdateFrame) {
	panic("boom")
}

func (s *panickingSystem) DeclaredAccess() *ecs.Access {
	return ecs.NewAccess().WritesComponent(reflect.TypeOf(Health{}))
}

func TestSystemPanicDoesNotAbortFrame(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})
	ecs.InsertResource(w, Score{})

	scheduler := ecs.NewScheduler(w)
	physics := &PhysicsSystem{}
	scoring := &ScoringSystem{}
	scheduler.Register(physics)
	scheduler.Register(&panickingSystem{})
	scheduler.Register(scoring)

	err := scheduler.RunFrame(1.0)
	if err == nil {
		t.Fatal("expected a frame error")
	}

	var frameErr *ecs.FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if len(frameErr.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(frameErr.Failures))
	}
	if frameErr.Failures[0].System != "panickingSystem" {
		t.Errorf("expected panickingSystem failure, got %s", frameErr.Failures[0].System)
	}

	// Remaining systems in the frame still ran
	if physics.ExecuteCount != 1 || scoring.ExecuteCount != 1 {
		t.Errorf("expected surviving systems to run, got %d and %d",
			physics.ExecuteCount, scoring.ExecuteCount)
	}

	// The next frame runs normally
	if err := scheduler.RunFrame(1.0); err == nil {
		t.Error("expected the broken system to fail again")
	}
	if physics.ExecuteCount != 2 {
		t.Errorf("expected physics to keep running, got %d executions", physics.ExecuteCount)
	}
}

func TestReplanErrorOnUnregisteredComponent(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)

	type unregistered struct{ V int }
	scheduler.Register(&accessStubSystem{
		access: ecs.NewAccess().WritesComponent(reflect.TypeOf(unregistered{})),
	})

	err := scheduler.RunFrame(1.0)
	var replanErr *ecs.ReplanError
	if !errors.As(err, &replanErr) {
		t.Fatalf("expected *ReplanError, got %v", err)
	}

	if _, err := scheduler.Groups(); err == nil {
		t.Error("expected Groups to surface the plan failure")
	}
}

func TestUnregisterInvalidatesPlan(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})
	ecs.InsertResource(w, Score{})

	scheduler := ecs.NewScheduler(w)
	physics := &PhysicsSystem{}
	scoring := &ScoringSystem{}
	scheduler.Register(physics)
	scheduler.Register(scoring)

	groups, _ := scheduler.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}

	if !scheduler.Unregister(physics) {
		t.Fatal("expected Unregister to find the system")
	}
	if scheduler.Unregister(physics) {
		t.Fatal("expected second Unregister to fail")
	}

	groups, _ = scheduler.Groups()
	want := [][]string{{"ScoringSystem"}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("expected plan %v after unregister, got %v", want, groups)
	}
}

func TestWorkerLimitStillCorrect(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w, ecs.WithWorkerLimit(1))

	for i := 0; i < 4; i++ {
		e := w.Spawn()
		ecs.Insert(w, e, Position{X: float32(i)})
	}

	// Four read-only counters share one group but run sequentially
	counters := make([]*countingReadSystem, 4)
	for i := range counters {
		counters[i] = &countingReadSystem{}
		scheduler.Register(counters[i])
	}

	groups, err := scheduler.Groups()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected a single group, got %v", groups)
	}

	if err := scheduler.RunFrame(1.0); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	for i, c := range counters {
		if c.Seen != 4 {
			t.Errorf("counter %d saw %d entities, expected 4", i, c.Seen)
		}
	}
}

type countingReadSystem struct {
	Bodies ecs.Query[struct {
		Pos *Position `ecs:"readonly"`
	}]
	Seen int
}

func (s *countingReadSystem) Execute(frame *ecs.UpdateFrame) {
	s.Seen = 0
	for range s.Bodies.Iter() {
		s.Seen++
	}
}

func TestSystemFunc(t *testing.T) {
	w := newTestWorld()
	e := w.Spawn()
	ecs.Insert(w, e, Health{Current: 10, Max: 100})

	scheduler := ecs.NewScheduler(w)
	ran := 0
	scheduler.Register(ecs.SystemFunc("regen",
		ecs.NewAccess().WritesComponent(reflect.TypeOf(Health{})),
		func(frame *ecs.UpdateFrame) {
			ran++
			if h, ok := ecs.Get[Health](frame.World, e); ok {
				h.Current += 5
			}
		}))
	scheduler.Register(&accessStubSystem{access: ecs.NewAccess().ReadsComponent(reflect.TypeOf(Health{}))})

	groups, err := scheduler.Groups()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	want := [][]string{{"regen"}, {"accessStubSystem"}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("expected plan %v, got %v", want, groups)
	}

	if err := scheduler.RunFrame(1.0); err != nil {
		t.Fatalf("unexpected frame error: %v", err)
	}
	if ran != 1 {
		t.Errorf("expected function system to run once, got %d", ran)
	}
	h, _ := ecs.Get[Health](w, e)
	if h.Current != 15 {
		t.Errorf("expected Health.Current=15, got %d", h.Current)
	}
}

func TestSchedulerStats(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, Clock{Delta: 1.0})
	ecs.InsertResource(w, Score{})

	scheduler := ecs.NewScheduler(w)
	scheduler.Register(&PhysicsSystem{})
	scheduler.Register(&ScoringSystem{})

	scheduler.RunFrame(1.0)
	scheduler.RunFrame(1.0)

	stats := scheduler.GetStats()
	if stats.SystemCount != 2 {
		t.Errorf("expected 2 systems, got %d", stats.SystemCount)
	}
	if stats.GroupCount != 2 {
		t.Errorf("expected 2 groups, got %d", stats.GroupCount)
	}
	if stats.TotalExecutions != 4 {
		t.Errorf("expected 4 total executions, got %d", stats.TotalExecutions)
	}
	if stats.Systems[0].Name != "PhysicsSystem" || stats.Systems[0].Group != 0 {
		t.Errorf("unexpected stats for first system: %+v", stats.Systems[0])
	}
	if stats.Systems[1].Group != 1 {
		t.Errorf("expected ScoringSystem in group 1, got %d", stats.Systems[1].Group)
	}
}
