package scheduler

import "time"

// Deadline is the mutable view a running callback uses to decide whether to
// yield. The scheduler reuses a single Deadline instance across invocations
// to avoid a per-callback allocation, the same pattern used for the
// equivalent pattern used for the (out-of-scope) children-traversal context
// pool in internal/collaborator.
type Deadline struct {
	sched      *Scheduler
	didTimeout bool
}

// DidTimeout reports whether the current drain pass is running because the
// head callback's deadline expired, rather than because frame time remains.
// When true, a callback should generally not yield cooperatively: the drain
// loop will keep invoking expired callbacks synchronously regardless of
// TimeRemaining.
func (d *Deadline) DidTimeout() bool {
	return d.didTimeout
}

// TimeRemaining returns the time left in the current frame, or zero if the
// frame deadline has passed. It also returns zero if the queue's new head
// (after the currently running callback was detached) has a strictly
// earlier expiration than the running callback's own expiration: a stricter
// newcomer should be given a chance to run via an early yield, even though
// the frame deadline itself has not elapsed.
func (d *Deadline) TimeRemaining() time.Duration {
	s := d.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.head != nil && s.head.expiration < s.currentExpirationTime {
		return 0
	}
	remaining := s.hostAdapter.GetFrameDeadline() - s.now()
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining)
}
