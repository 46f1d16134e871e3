package scheduler

import (
	"testing"
	"time"
)

func TestDrain_RunsFIFOAtEqualDeadline(t *testing.T) {
	h := newHarness(t)
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		_, err := h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
			order = append(order, i)
			return nil
		}, ScheduleCallbackOptions{Timeout: 5 * time.Millisecond})
		if err != nil {
			t.Fatalf("ScheduleCallback(%d) error = %v", i, err)
		}
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}

	if got, want := order, []int{0, 1, 2}; !equalInts(got, want) {
		t.Errorf("run order = %v, want %v", got, want)
	}
}

func TestDrain_HigherPriorityRunsFirstRegardlessOfEnqueueOrder(t *testing.T) {
	h := newHarness(t)
	var order []string

	_, err := h.sched.ScheduleCallback(Idle, func(*Deadline) CallbackFunc {
		order = append(order, "idle")
		return nil
	})
	if err != nil {
		t.Fatalf("ScheduleCallback(idle) error = %v", err)
	}

	_, err = h.sched.ScheduleCallback(Immediate, func(*Deadline) CallbackFunc {
		order = append(order, "immediate")
		return nil
	})
	if err != nil {
		t.Fatalf("ScheduleCallback(immediate) error = %v", err)
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}

	if got, want := order, []string{"immediate", "idle"}; !equalStrings(got, want) {
		t.Errorf("run order = %v, want %v", got, want)
	}
}

func TestDrain_YieldsWhenFrameDeadlineElapsesThenResumesViaContinuation(t *testing.T) {
	h := newHarness(t)
	var ticks int
	var finished bool

	var cb CallbackFunc
	cb = func(d *Deadline) CallbackFunc {
		ticks++
		if ticks == 1 {
			// Simulate this slice of work having consumed the rest of the
			// frame: the next TimeRemaining check (made by flushWork before
			// its next iteration) will see none left.
			h.deadline = h.now
			return cb
		}
		finished = true
		return nil
	}

	if _, err := h.sched.ScheduleCallback(Normal, cb); err != nil {
		t.Fatalf("ScheduleCallback error = %v", err)
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}
	if finished {
		t.Fatal("callback should have yielded, not finished, once frame budget ran out")
	}
	if ticks != 1 {
		t.Fatalf("ticks = %d, want 1", ticks)
	}
	if h.pending == nil {
		t.Fatal("expected the drain loop to have re-armed the host for the continuation")
	}

	// Resuming with didTimeout=true forces the continuation through
	// regardless of remaining frame time.
	if !h.fire(true) {
		t.Fatal("expected the continuation to have re-armed the host")
	}
	if !finished {
		t.Error("callback should have finished once resumed with didTimeout=true")
	}
	if ticks != 2 {
		t.Errorf("ticks = %d, want 2", ticks)
	}
}

func TestDrain_CooperativeYieldRunsSomeNotAll(t *testing.T) {
	h := newHarness(t)
	var order []string

	for _, name := range []string{"A", "B", "C"} {
		name := name
		_, err := h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
			order = append(order, name)
			if name == "B" {
				// B's slice of work consumes the rest of the frame budget:
				// the next poll, made before C runs, must see none left.
				h.deadline = h.now
			}
			return nil
		}, ScheduleCallbackOptions{Timeout: 5 * time.Millisecond})
		if err != nil {
			t.Fatalf("ScheduleCallback(%s) error = %v", name, err)
		}
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}
	if got, want := order, []string{"A", "B"}; !equalStrings(got, want) {
		t.Errorf("run order = %v, want %v (C should not have run yet)", got, want)
	}
	if h.pending == nil {
		t.Fatal("expected the drain loop to have re-armed the host for C")
	}

	// Resuming with didTimeout=true forces C through regardless of
	// remaining frame time.
	if !h.fire(true) {
		t.Fatal("expected the host to still be armed for C")
	}
	if got, want := order, []string{"A", "B", "C"}; !equalStrings(got, want) {
		t.Errorf("run order after resuming = %v, want %v", got, want)
	}
}

func TestDrain_ContinuationPrecedesSiblingAtSameExpirationEndToEnd(t *testing.T) {
	h := newHarness(t)
	var order []string

	var aPrime CallbackFunc = func(*Deadline) CallbackFunc {
		order = append(order, "A'")
		return nil
	}

	_, err := h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
		order = append(order, "A")
		return aPrime
	}, ScheduleCallbackOptions{Timeout: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("ScheduleCallback(A) error = %v", err)
	}

	_, err = h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
		order = append(order, "B")
		return nil
	}, ScheduleCallbackOptions{Timeout: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("ScheduleCallback(B) error = %v", err)
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}

	if got, want := order, []string{"A", "A'", "B"}; !equalStrings(got, want) {
		t.Errorf("run order = %v, want %v (A's continuation must precede B)", got, want)
	}
}

func TestDrain_CancelDuringOwnExecutionIsNoOp(t *testing.T) {
	h := newHarness(t)
	var handle CallbackHandle
	var cancelErr error
	ran := false

	var err error
	handle, err = h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
		ran = true
		cancelErr = h.sched.CancelCallback(handle)
		return nil
	})
	if err != nil {
		t.Fatalf("ScheduleCallback error = %v", err)
	}

	if !h.fire(false) {
		t.Fatal("expected a host callback to be pending")
	}
	if !ran {
		t.Fatal("callback did not run")
	}
	if cancelErr != nil {
		t.Errorf("CancelCallback on an already-running/just-finished handle = %v, want nil", cancelErr)
	}

	// Cancelling again afterward must also be a harmless no-op.
	if err := h.sched.CancelCallback(handle); err != nil {
		t.Errorf("second CancelCallback = %v, want nil", err)
	}
}

func TestDrain_CancelledCallbackNeverRuns(t *testing.T) {
	h := newHarness(t)
	ran := false

	handle, err := h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("ScheduleCallback error = %v", err)
	}

	if err := h.sched.CancelCallback(handle); err != nil {
		t.Fatalf("CancelCallback error = %v", err)
	}

	h.fire(false) // no-op: the queue should already be empty

	if ran {
		t.Error("cancelled callback ran")
	}
}

func TestScheduleCallback_RejectsNilCallback(t *testing.T) {
	h := newHarness(t)
	if _, err := h.sched.ScheduleCallback(Normal, nil); err != ErrNilCallback {
		t.Errorf("err = %v, want ErrNilCallback", err)
	}
}

func TestScheduleCallback_RejectsAfterClose(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := h.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc { return nil }); err != ErrClosed {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestCancelCallback_RejectsForeignHandle(t *testing.T) {
	h1 := newHarness(t)
	h2 := newHarness(t)

	handle, err := h1.sched.ScheduleCallback(Normal, func(*Deadline) CallbackFunc { return nil })
	if err != nil {
		t.Fatalf("ScheduleCallback error = %v", err)
	}

	if err := h2.sched.CancelCallback(handle); err != ErrForeignHandle {
		t.Errorf("err = %v, want ErrForeignHandle", err)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
