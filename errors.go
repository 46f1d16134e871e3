package scheduler

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by argument-validation fast paths.
var (
	// ErrNilCallback is returned by ScheduleCallback when callback is nil.
	ErrNilCallback = errors.New("scheduler: callback must not be nil")

	// ErrForeignHandle is returned by CancelCallback when the handle was not
	// produced by this Scheduler.
	ErrForeignHandle = errors.New("scheduler: handle was not produced by this scheduler")

	// ErrClosed is returned when an operation is attempted on a Scheduler
	// that has already been closed.
	ErrClosed = errors.New("scheduler: scheduler is closed")
)

// HostCapabilityError reports that the host adapter detected it is running
// against a host that resembles a browser (it expected an animation-frame
// primitive) but lacks the required capability, and fell back to the
// non-browser backend. It is surfaced to the structured logger via
// Warning().Err(...); it is never returned from ScheduleCallback or
// CancelCallback, since the scheduler always has a working fallback.
type HostCapabilityError struct {
	// Capability names the missing host primitive, e.g. "animation-frame".
	Capability string
	// Cause, if non-nil, is the underlying error that surfaced the gap.
	Cause error
}

func (e *HostCapabilityError) Error() string {
	if e.Capability == "" {
		return "scheduler: host capability missing"
	}
	return fmt.Sprintf("scheduler: host is missing capability %q, falling back", e.Capability)
}

// Unwrap supports errors.Is/errors.As against Cause.
func (e *HostCapabilityError) Unwrap() error {
	return e.Cause
}

// OverloadError is passed to a WithOverloadLimiter callback when
// ScheduleCallback enqueues at Priority faster than the configured rate. It
// is a health signal, not a queue-correctness error: the callback is
// enqueued normally either way.
type OverloadError struct {
	Priority Priority
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("scheduler: callbacks enqueued at %s priority exceed the configured rate", e.Priority)
}
