package ecs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Time is the clock resource the runtime maintains: seconds elapsed since the
// previous frame and since startup. Systems read it through Res[Time].
type Time struct {
	Delta   float64
	Elapsed float64
}

type startupEvent struct {
	name    string
	handler func(w *World) error
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger sets the logger for frame and startup-event failures.
func WithRuntimeLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = logger }
}

// WithFixedDelta makes every frame advance Time by a fixed number of seconds
// instead of wall-clock time. Deterministic runs and tests use this.
func WithFixedDelta(seconds float64) RuntimeOption {
	return func(r *Runtime) { r.fixedDelta = seconds }
}

// WithClock overrides the wall clock used for delta timing.
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) { r.now = now }
}

// Runtime drives frames. It exclusively owns the world for each frame's
// duration: one AdvanceFrame call updates the Time resource, runs the
// scheduler's plan once, and returns control to the outer application loop.
type Runtime struct {
	world     *World
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	fixedDelta float64
	lastFrame  time.Time
	started    bool
	startup    []startupEvent
}

// NewRuntime creates a runtime over the given world and scheduler and inserts
// the Time resource so systems can declare Res[Time] before the first frame.
func NewRuntime(world *World, scheduler *Scheduler, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		world:     world,
		scheduler: scheduler,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	InsertResource(world, Time{})
	return r
}

// World returns the world the runtime drives.
func (r *Runtime) World() *World {
	return r.world
}

// Scheduler returns the scheduler the runtime drives.
func (r *Runtime) Scheduler() *Scheduler {
	return r.scheduler
}

// InvokeStartupEvent registers a named one-shot handler, the begin_play
// contract: handlers registered before the first frame run exactly once,
// synchronously, in registration order, before any system executes. A handler
// registered after startup has already fired runs synchronously right here.
// Failures are reported but never fatal to subsequent frames.
func (r *Runtime) InvokeStartupEvent(name string, handler func(w *World) error) {
	if r.started {
		if err := r.runStartupEvent(startupEvent{name: name, handler: handler}); err != nil {
			r.logger.Warn("startup event failed", zap.String("event", name), zap.Error(err))
		}
		return
	}
	r.startup = append(r.startup, startupEvent{name: name, handler: handler})
}

func (r *Runtime) runStartupEvent(ev startupEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("startup event %s: panic: %v", ev.name, rec)
		}
	}()
	if e := ev.handler(r.world); e != nil {
		err = fmt.Errorf("startup event %s: %w", ev.name, e)
	}
	return err
}

// AdvanceFrame runs exactly one frame. The first call fires the registered
// startup events before anything else. The frame always runs to completion;
// the returned error aggregates startup and per-system failures (a
// *FrameError), or is a *ReplanError when no valid plan could be built.
func (r *Runtime) AdvanceFrame() error {
	var startupErrs []error

	if !r.started {
		r.started = true
		r.lastFrame = r.now()
		for _, ev := range r.startup {
			if err := r.runStartupEvent(ev); err != nil {
				r.logger.Warn("startup event failed", zap.String("event", ev.name), zap.Error(err))
				startupErrs = append(startupErrs, err)
			}
		}
		r.startup = nil
	}

	dt := r.fixedDelta
	if dt == 0 {
		now := r.now()
		dt = now.Sub(r.lastFrame).Seconds()
		r.lastFrame = now
	}

	if clock, ok := Resource[Time](r.world); ok {
		clock.Delta = dt
		clock.Elapsed += dt
	}

	frameErr := r.scheduler.RunFrame(dt)
	if frameErr != nil {
		var fe *FrameError
		if errors.As(frameErr, &fe) {
			r.logger.Warn("frame completed with failures", zap.Int("failures", len(fe.Failures)))
		}
	}

	if len(startupErrs) > 0 {
		startupErrs = append(startupErrs, frameErr)
		return errors.Join(startupErrs...)
	}
	return frameErr
}

// Run advances frames at the given interval until the context is cancelled.
// Frame failures are logged and the loop keeps going; a ReplanError is fatal
// and returned. Cancellation never aborts a frame in progress, only prevents
// the next one from starting.
func (r *Runtime) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.AdvanceFrame(); err != nil {
				var replan *ReplanError
				if errors.As(err, &replan) {
					return replan
				}
				r.logger.Warn("frame error", zap.Error(err))
			}
		}
	}
}
