package scheduler

// ensureHostCallbackIsScheduledLocked arms or disarms the host adapter so
// that exactly one RequestHostCallback, for the current head's expiration,
// is outstanding whenever the queue is non-empty, and none is outstanding
// when it is empty. An already-outstanding request is cancelled and
// re-requested. Caller must hold s.mu.
func (s *Scheduler) ensureHostCallbackIsScheduledLocked() {
	if s.closed || s.hostAdapter == nil {
		return
	}
	if s.head == nil {
		if s.isHostCallbackScheduled {
			s.isHostCallbackScheduled = false
			s.hostAdapter.CancelHostCallback()
		}
		return
	}
	if s.isHostCallbackScheduled {
		s.hostAdapter.CancelHostCallback()
	}
	s.isHostCallbackScheduled = true
	s.hostAdapter.RequestHostCallback(s.flushWorkEntry, s.head.expiration)
}

// flushWorkEntry is the func passed to HostAdapter.RequestHostCallback. It
// clears isHostCallbackScheduled before handing off to flushWork, so that a
// callback which itself schedules new work (via ScheduleCallback, from
// inside a running callback) correctly re-arms the host rather than
// observing a stale "already scheduled" flag.
func (s *Scheduler) flushWorkEntry(didTimeout bool) {
	s.mu.Lock()
	s.isHostCallbackScheduled = false
	s.mu.Unlock()
	s.flushWork(didTimeout)
}

// flushWork is the drain loop's outer pass: it keeps running the queue head
// while frame time remains or the head has expired, then re-arms the host
// for whatever is left. It is reentrancy-guarded by isExecutingCallback, so
// a callback that synchronously triggers another flush (e.g. by calling
// RunWithPriority) cannot recurse into a second concurrent pass.
func (s *Scheduler) flushWork(initialDidTimeout bool) {
	s.mu.Lock()
	if s.isExecutingCallback || s.closed {
		s.mu.Unlock()
		return
	}
	s.isExecutingCallback = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isExecutingCallback = false
		s.ensureHostCallbackIsScheduledLocked()
		s.mu.Unlock()
	}()

	didTimeout := initialDidTimeout
	for {
		s.mu.Lock()
		n := s.head
		if n == nil || s.closed {
			s.mu.Unlock()
			return
		}

		if !didTimeout && n.expiration <= s.now() {
			didTimeout = true
		}

		hasTimeRemaining := s.hostAdapter.GetFrameDeadline()-s.now() > 0
		if !hasTimeRemaining && !didTimeout {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.flushFirstCallback(didTimeout)
		// Only the host-supplied flag forces the first node through
		// regardless of frame time; subsequent nodes are re-evaluated
		// against their own expiration on the next loop iteration.
		didTimeout = false
	}
}

// flushFirstCallback detaches and runs the current queue head, restoring
// the priority/event-start/expiration triple that was in effect beforehand
// once the callback (and its continuation bookkeeping) returns. If the
// callback returns a non-nil continuation, the same node is re-enqueued
// with enqueueContinuation's tie-break (ahead of siblings sharing its
// expiration) rather than a fresh node, preserving its identity for any
// outstanding CallbackHandle.
func (s *Scheduler) flushFirstCallback(didTimeout bool) {
	s.mu.Lock()
	n := s.detachHead()
	if n == nil {
		s.mu.Unlock()
		return
	}

	prevPriority := s.currentPriorityLevel
	prevStart := s.currentEventStartTime
	prevExpiration := s.currentExpirationTime

	s.currentPriorityLevel = n.priority
	s.currentEventStartTime = s.now()
	s.currentExpirationTime = n.expiration
	s.deadline.didTimeout = didTimeout
	deadline := s.deadline
	fn := n.fn
	s.mu.Unlock()

	cont := fn(deadline)

	s.mu.Lock()
	s.currentPriorityLevel = prevPriority
	s.currentEventStartTime = prevStart
	s.currentExpirationTime = prevExpiration
	if cont != nil {
		n.fn = cont
		s.enqueueContinuation(n)
	}
	s.mu.Unlock()
}

// flushImmediateWork synchronously drains any Immediate-priority callbacks
// sitting at the head of the queue, without waiting for a host tick. It is
// called after every RunWithPriority scope exits, so that Immediate work
// scheduled during the scope (typically in response to a just-handled
// event) runs before the triggering call returns. It is a no-op if a
// drain pass is already executing (flushWork will reach the same Immediate
// nodes itself).
func (s *Scheduler) flushImmediateWork() {
	for {
		s.mu.Lock()
		if s.closed || s.isExecutingCallback || s.head == nil || s.head.priority != Immediate {
			s.mu.Unlock()
			return
		}
		s.isExecutingCallback = true
		s.mu.Unlock()

		s.flushFirstCallback(true)

		s.mu.Lock()
		s.isExecutingCallback = false
		s.ensureHostCallbackIsScheduledLocked()
		s.mu.Unlock()
	}
}
