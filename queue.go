package scheduler

// callbackNode is a unit of scheduled work, and a node in the scheduler's
// circular, doubly-linked queue. A detached node (not currently queued) has
// both next and prev nil.
type callbackNode struct {
	fn         CallbackFunc
	priority   Priority
	expiration timestamp

	next, prev *callbackNode

	// owner identifies the Scheduler this node was created by, so
	// CancelCallback can reject handles from a different instance instead
	// of silently operating on the wrong queue.
	owner *Scheduler
}

// CallbackFunc is the callback contract: it receives a Deadline view and may
// return nil, or a continuation CallbackFunc with the same signature, which
// is rescheduled at the same priority and expiration, ahead of any other
// callback sharing that expiration (see enqueueContinuation).
type CallbackFunc func(d *Deadline) CallbackFunc

// CallbackHandle is an opaque cancellation handle returned by
// ScheduleCallback. The zero value is not a valid handle.
type CallbackHandle struct {
	node *callbackNode
}

// enqueue inserts n into the circular doubly-linked list rooted at s.head,
// ordered by non-decreasing expiration; among equal expirations, n is
// inserted after all existing equals (FIFO for ties).
// Caller must hold s.mu.
func (s *Scheduler) enqueue(n *callbackNode) {
	s.insertBefore(n, func(existing timestamp) bool { return existing > n.expiration })
}

// enqueueContinuation inserts n (a continuation returned by a just-run
// callback) ahead of any existing node with an equal expiration, the
// opposite tie-break of enqueue. This is intentional: a continuation resumes
// the work of the callback that just ran, and takes
// precedence over siblings enqueued later at the same deadline.
func (s *Scheduler) enqueueContinuation(n *callbackNode) {
	s.insertBefore(n, func(existing timestamp) bool { return existing >= n.expiration })
}

// insertBefore walks s.head, inserting n immediately before the first node
// for which stopBefore(node.expiration) is true, or at the tail if no such
// node exists (including when the list is empty). Caller must hold s.mu.
func (s *Scheduler) insertBefore(n *callbackNode, stopBefore func(expiration timestamp) bool) {
	if s.head == nil {
		n.next = n
		n.prev = n
		s.head = n
		s.armHost()
		return
	}

	cur := s.head
	for {
		if stopBefore(cur.expiration) {
			break
		}
		cur = cur.next
		if cur == s.head {
			// Wrapped all the way around: every node sorts before n.
			// Insert at the tail (i.e. immediately before head).
			break
		}
	}

	tail := cur.prev
	n.prev = tail
	n.next = cur
	tail.next = n
	cur.prev = n

	if cur == s.head {
		s.head = n
		s.armHost()
	}
}

// detachHead removes and returns the current head, or nil if the queue is
// empty. Caller must hold s.mu.
func (s *Scheduler) detachHead() *callbackNode {
	n := s.head
	if n == nil {
		return nil
	}
	if n.next == n {
		s.head = nil
	} else {
		prev, next := n.prev, n.next
		prev.next = next
		next.prev = prev
		s.head = next
	}
	n.next = nil
	n.prev = nil
	return n
}

// cancel detaches n from the queue if it is still linked, and is a no-op
// (not an error) if n has already run, already been cancelled, or was
// cancelled mid-execution by its own callback. Caller must hold s.mu.
func (s *Scheduler) cancel(n *callbackNode) {
	if n.next == nil && n.prev == nil {
		return // already detached
	}
	if n == s.head {
		s.detachHead()
		return
	}
	prev, next := n.prev, n.next
	prev.next = next
	next.prev = prev
	n.next = nil
	n.prev = nil
}

// length returns the current queue length by full traversal; it exists for
// invariant checks (tests), not the hot path. Caller must hold s.mu.
func (s *Scheduler) length() int {
	if s.head == nil {
		return 0
	}
	n := 1
	for cur := s.head.next; cur != s.head; cur = cur.next {
		n++
	}
	return n
}
