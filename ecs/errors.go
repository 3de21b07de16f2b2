package ecs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingResource reports access to a resource type that was never inserted.
// Systems see an empty result and are expected to handle it.
var ErrMissingResource = errors.New("resource type not registered")

// ErrInvalidEntity reports an entity handle whose generation is stale.
var ErrInvalidEntity = errors.New("stale entity handle")

// SystemError is the recovered failure of a single system invocation. It does
// not abort the frame; the scheduler aggregates it into a FrameError.
type SystemError struct {
	System string
	Group  int
	Err    error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system %s (group %d) failed: %v", e.System, e.Group, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// FrameError aggregates all per-system failures of one frame. The frame itself
// ran to completion; the caller decides whether to keep advancing.
type FrameError struct {
	Failures []*SystemError
}

func (e *FrameError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.System
	}
	return fmt.Sprintf("%d system(s) failed this frame: %s", len(e.Failures), strings.Join(names, ", "))
}

// ReplanError reports an inconsistency found while building the execution
// plan. It should be unreachable given well-formed access declarations and is
// fatal to scheduling when it occurs.
type ReplanError struct {
	System string
	Reason string
}

func (e *ReplanError) Error() string {
	return fmt.Sprintf("cannot build execution plan: system %s: %s", e.System, e.Reason)
}
