package ecs

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	GroupCount      int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	Group          int
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

type registeredSystem struct {
	system System
	name   string
	access *Access
	group  int
	stats  systemStatsInternal
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger used for system failures and plan rebuilds.
func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithWorkerLimit bounds how many systems of one execution group run
// concurrently. Zero means no limit; one degenerates to sequential execution,
// which is a valid conforming mode.
func WithWorkerLimit(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// Scheduler builds and executes a conflict-free execution plan over the
// registered systems. Systems are partitioned into ordered execution groups by
// greedy coloring of the static conflict graph: walking in registration order,
// each system lands in the earliest group containing no conflicting member.
// Registration order is the only tie-break, so the plan is deterministic.
//
// The plan is cached and replayed every frame; registering or unregistering a
// system invalidates it and the next frame rebuilds.
type Scheduler struct {
	world   *World
	logger  *zap.Logger
	workers int

	systems   []*registeredSystem
	plan      [][]*registeredSystem
	planDirty bool
}

// NewScheduler creates a new scheduler for the given world.
func NewScheduler(world *World, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		world:  world,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a system, binds its Query/Res/ResMut fields to the world, and
// derives its access declaration from them. The declaration is computed once
// here and never again.
func (s *Scheduler) Register(system System) {
	access := NewAccess()
	s.bindParams(system, access)
	if declarer, ok := system.(AccessDeclarer); ok {
		access.merge(declarer.DeclaredAccess())
	}

	s.systems = append(s.systems, &registeredSystem{
		system: system,
		name:   systemName(system),
		access: access,
		stats:  systemStatsInternal{minDuration: time.Duration(1<<63 - 1)},
	})
	s.planDirty = true
}

// Unregister removes a previously registered system and invalidates the
// cached plan. Returns false if the system was never registered.
func (s *Scheduler) Unregister(system System) bool {
	for i, rs := range s.systems {
		if rs.system == system {
			s.systems = append(s.systems[:i], s.systems[i+1:]...)
			s.planDirty = true
			return true
		}
	}
	return false
}

// bindParams walks the system struct's exported fields, initializing every
// Query, Res, and ResMut field with the world and folding its declared access
// into the system's summary.
func (s *Scheduler) bindParams(system System, access *Access) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}
	if systemValue.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}

		param, ok := field.Addr().Interface().(systemParam)
		if !ok {
			continue
		}
		param.Init(s.world)
		param.appendAccess(access)
	}
}

func systemName(system System) string {
	if named, ok := system.(interface{ SystemName() string }); ok {
		return named.SystemName()
	}
	t := reflect.TypeOf(system)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ensurePlan rebuilds the execution plan if a registration change invalidated
// it. A validation failure leaves the plan dirty and halts scheduling.
func (s *Scheduler) ensurePlan() error {
	if !s.planDirty {
		return nil
	}

	for _, rs := range s.systems {
		if rs.access == nil {
			return &ReplanError{System: rs.name, Reason: "missing access declaration"}
		}
		for _, entry := range rs.access.components {
			if !s.world.registry.Registered(entry.typ) {
				return &ReplanError{
					System: rs.name,
					Reason: fmt.Sprintf("component type %s not registered", entry.typ),
				}
			}
		}
	}

	plan := make([][]*registeredSystem, 0)
next:
	for _, rs := range s.systems {
		for gi, group := range plan {
			conflicts := false
			for _, member := range group {
				if rs.access.ConflictsWith(member.access) {
					conflicts = true
					break
				}
			}
			if !conflicts {
				rs.group = gi
				plan[gi] = append(plan[gi], rs)
				continue next
			}
		}
		rs.group = len(plan)
		plan = append(plan, []*registeredSystem{rs})
	}

	s.plan = plan
	s.planDirty = false
	s.logger.Debug("execution plan rebuilt",
		zap.Int("systems", len(s.systems)),
		zap.Int("groups", len(plan)))
	return nil
}

// Groups returns the planned execution groups as ordered system name lists,
// rebuilding the plan first if needed.
func (s *Scheduler) Groups() ([][]string, error) {
	if err := s.ensurePlan(); err != nil {
		return nil, err
	}
	groups := make([][]string, len(s.plan))
	for gi, group := range s.plan {
		names := make([]string, len(group))
		for i, rs := range group {
			names[i] = rs.name
		}
		groups[gi] = names
	}
	return groups, nil
}

// RunFrame executes one frame: each execution group in plan order, members
// concurrently within a group, with the deferred command buffer flushed after
// every group before the next one starts.
//
// A failing system never aborts the frame; the rest of its group and all later
// groups still run, and the failures come back aggregated in a *FrameError.
// Only a ReplanError prevents the frame from running at all.
func (s *Scheduler) RunFrame(dt float64) error {
	if err := s.ensurePlan(); err != nil {
		return err
	}

	frame := newUpdateFrame(dt, s.world)

	var mu sync.Mutex
	var failures []*SystemError

	for _, group := range s.plan {
		if len(group) == 1 {
			if serr := s.runSystem(group[0], frame); serr != nil {
				failures = append(failures, serr)
			}
		} else {
			var g errgroup.Group
			if s.workers > 0 {
				g.SetLimit(s.workers)
			}
			for _, rs := range group {
				g.Go(func() error {
					if serr := s.runSystem(rs, frame); serr != nil {
						mu.Lock()
						failures = append(failures, serr)
						mu.Unlock()
					}
					return nil
				})
			}
			g.Wait()
		}

		frame.Commands.Flush(s.world)
	}

	if len(failures) > 0 {
		return &FrameError{Failures: failures}
	}
	return nil
}

// runSystem invokes one system, recovering a panic into a SystemError so one
// broken system cannot take the frame down.
func (s *Scheduler) runSystem(rs *registeredSystem, frame *UpdateFrame) (serr *SystemError) {
	defer func() {
		if r := recover(); r != nil {
			serr = &SystemError{
				System: rs.name,
				Group:  rs.group,
				Err:    fmt.Errorf("panic: %v", r),
			}
			s.logger.Error("system panicked",
				zap.String("system", rs.name),
				zap.Int("group", rs.group),
				zap.Any("panic", r))
		}
	}()

	start := time.Now()
	rs.system.Execute(frame)
	duration := time.Since(start)

	stats := &rs.stats
	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration
	if duration < stats.minDuration {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}
	return nil
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		GroupCount:  len(s.plan),
		Systems:     make([]SystemStats, len(s.systems)),
	}

	var totalExecs int64
	for i, rs := range s.systems {
		internal := &rs.stats
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           rs.name,
			Group:          rs.group,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
