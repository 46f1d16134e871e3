// Package scheduler implements a cooperative, priority-aware task scheduler
// that time-slices callbacks against a host's frame cadence, while honoring
// per-callback deadlines.
//
// # Model
//
// Callers enqueue callbacks with [Scheduler.ScheduleCallback] at one of four
// priority levels ([Immediate], [UserBlocking], [Normal], [Idle]). Each
// priority maps to a default timeout offset from the enqueue time; the
// callback's absolute expiration is enqueue time plus that offset, unless an
// explicit timeout is supplied via [ScheduleCallbackOptions].
//
// Queued callbacks live in a priority-ordered, doubly-linked circular queue
// (see queue.go). A [hostadapter.HostAdapter] drives a drain loop once per
// host frame tick: the loop pops callbacks in expiration order and runs them
// under a [Deadline] view until either the queue empties, the frame deadline
// elapses with no expired callback at the head, or the host aborts. A
// callback whose deadline has passed runs synchronously regardless of
// remaining frame time.
//
// # Usage
//
//	sched, err := scheduler.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.Close()
//
//	handle, err := sched.ScheduleCallback(scheduler.Normal, func(d *scheduler.Deadline) scheduler.CallbackFunc {
//	    for d.TimeRemaining() > 0 {
//	        // do a slice of work
//	    }
//	    return nil // or return a continuation scheduler.CallbackFunc to resume later
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.CancelCallback(handle)
//
// # Concurrency
//
// [Scheduler.ScheduleCallback], [Scheduler.CancelCallback], and
// [Scheduler.RunWithPriority] are safe to call from any goroutine, including
// from inside a running callback (reentrancy). The scheduler serializes all
// queue and state mutation behind a single mutex and always releases it
// before invoking user code, which is what makes the single-logical-
// execution-context model hold under concurrent use.
package scheduler
