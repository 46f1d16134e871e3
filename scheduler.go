package scheduler

import (
	"sync"
	"time"

	"github.com/taskloop/scheduler/hostadapter"
	"github.com/taskloop/scheduler/internal/diagnostics"
	"github.com/taskloop/scheduler/internal/obslog"
)

// timestamp is an absolute point on the scheduler's own clock: nanoseconds
// since the owning Scheduler was constructed. It is not wall-clock time and
// is only meaningful relative to a single Scheduler instance.
type timestamp = int64

// noEventStart is the sentinel value for currentEventStartTime and
// currentExpirationTime outside of any RunWithPriority scope or running
// callback.
const noEventStart timestamp = -1

// capabilityDiagnostic rate-limits the missing-animation-frame warning
// across every Scheduler constructed in this process, not just repeats
// within a single instance: the check that triggers it runs once, at
// construction, so a single instance's own limiter would never see a
// second call to suppress. A caller that repeatedly constructs (and drops)
// Schedulers against a host lacking the capability -- e.g. a supervisor
// retry loop, or a connection-per-request server -- is exactly the flood
// this guards against.
var capabilityDiagnostic = diagnostics.NewLimiter(time.Minute)

// Scheduler is a cooperative, priority-aware task scheduler. Each instance
// owns its own queue, host adapter, and logger. The zero value is not
// usable; construct one with New.
type Scheduler struct {
	mu sync.Mutex

	head *callbackNode

	currentPriorityLevel   Priority
	currentEventStartTime  timestamp
	currentExpirationTime  timestamp

	isExecutingCallback     bool
	isHostCallbackScheduled bool

	closed bool

	anchor      time.Time
	clockFn     func() timestamp
	hostAdapter hostadapter.HostAdapter
	deadline    *Deadline

	logger *obslog.Logger

	overloadLimiter    *diagnostics.Limiter
	overloadDiagnostic *diagnostics.Limiter
	onOverload         func(error)
}

// New constructs a Scheduler. By default it behaves as though its host
// exposes an animation-frame primitive (hostadapter.Browser); see
// WithSimulatedHostCapability and WithHostAdapter to change that.
func New(opts ...Option) (*Scheduler, error) {
	c := resolveOptions(opts)

	s := &Scheduler{
		currentPriorityLevel:  Normal,
		currentEventStartTime: noEventStart,
		currentExpirationTime: noEventStart,
		anchor:                time.Now(),
		logger:                c.logger,
		overloadDiagnostic:    diagnostics.NewLimiter(c.diagnosticWindow),
	}
	s.clockFn = func() timestamp { return int64(time.Since(s.anchor)) }
	s.deadline = &Deadline{sched: s}

	if c.hostAdapter != nil {
		s.hostAdapter = c.hostAdapter
	} else if c.hasAnimationFrame {
		s.hostAdapter = hostadapter.NewBrowser(s.now)
	} else {
		s.hostAdapter = hostadapter.NewFallback(s.now)
		if capabilityDiagnostic.Allow("animation-frame") {
			s.logger.Warning().Err(&HostCapabilityError{Capability: "animation-frame"}).Logf(
				"host is missing capability, falling back to timer-only mode")
		}
	}

	if c.onOverload != nil {
		s.onOverload = c.onOverload
		s.overloadLimiter = diagnostics.NewRateLimiter(c.overloadRate)
	}

	return s, nil
}

// now returns nanoseconds elapsed since s was constructed, per clockFn
// (real wall-clock time in production; a manually-advanced fake in tests).
func (s *Scheduler) now() timestamp {
	return s.clockFn()
}

// Now returns the scheduler's current clock reading as a time.Duration
// since construction.
func (s *Scheduler) Now() time.Duration {
	return time.Duration(s.now())
}

// Close releases the scheduler's host-adapter resources (timers). A closed
// Scheduler rejects further ScheduleCallback calls with ErrClosed; any
// already-queued callbacks are discarded without running.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.head = nil
	s.mu.Unlock()

	s.hostAdapter.CancelHostCallback()
	if closer, ok := s.hostAdapter.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// ScheduleCallbackOptions configures a single ScheduleCallback call.
type ScheduleCallbackOptions struct {
	// Timeout, if non-zero, overrides priority's default timeout offset
	// and is used verbatim.
	Timeout time.Duration
}

// ScheduleCallback enqueues fn at priority, and returns a handle that can be
// passed to CancelCallback. If none is currently scheduled with the host,
// this arms a host frame tick.
func (s *Scheduler) ScheduleCallback(priority Priority, fn CallbackFunc, opts ...ScheduleCallbackOptions) (CallbackHandle, error) {
	if fn == nil {
		return CallbackHandle{}, ErrNilCallback
	}

	var o ScheduleCallbackOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return CallbackHandle{}, ErrClosed
	}

	startTime := s.currentEventStartTime
	if startTime == noEventStart {
		startTime = s.now()
	}

	var expiration timestamp
	if o.Timeout != 0 {
		expiration = startTime + int64(o.Timeout)
	} else {
		expiration = startTime + int64(timeoutOffset(priority))
	}

	n := &callbackNode{
		fn:         fn,
		priority:   priority,
		expiration: expiration,
		owner:      s,
	}
	s.enqueue(n)
	s.checkOverload(priority)

	return CallbackHandle{node: n}, nil
}

// CancelCallback idempotently removes handle's node from the queue. It is a
// no-op if the node has already run, already been cancelled, or was
// produced by a different Scheduler (in which case ErrForeignHandle is
// returned, but the queue is left untouched either way).
func (s *Scheduler) CancelCallback(handle CallbackHandle) error {
	if handle.node == nil {
		return nil
	}
	if handle.node.owner != s {
		return ErrForeignHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel(handle.node)
	s.ensureHostCallbackIsScheduledLocked()
	return nil
}

// armHost arms a host frame tick for the current head's expiration, unless
// the drain loop is already executing (in which case its own finally block
// will re-arm once the pass completes -- see ensureHostCallbackIsScheduled).
// Caller must hold s.mu.
func (s *Scheduler) armHost() {
	if s.isExecutingCallback {
		return
	}
	s.ensureHostCallbackIsScheduledLocked()
}

// checkOverload reports, via onOverload, when enqueues for priority exceed
// the configured overload rate. It is a health signal, not a correctness
// invariant, and onOverload is invoked at most once per diagnostic window
// per priority. Caller must hold s.mu.
func (s *Scheduler) checkOverload(priority Priority) {
	if s.overloadLimiter == nil {
		return
	}
	category := priority.String()
	if s.overloadLimiter.Allow(category) {
		return
	}
	if s.overloadDiagnostic.Allow("overload:" + category) {
		s.onOverload(&OverloadError{Priority: priority})
	}
}
