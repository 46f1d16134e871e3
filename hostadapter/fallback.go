package hostadapter

import (
	"math"
	"sync"
	"time"
)

// maxHostTimeout is the signed-31-bit-millisecond "never" horizon (2^31-1
// ms, about 24.8 days), expressed as a duration; Fallback arms its backstop
// timer for this delay alongside the requested-deadline timer.
const maxHostTimeout = time.Duration(1<<31-1) * time.Millisecond

// Fallback is the HostAdapter backend for hosts with no animation-frame
// primitive at all (e.g. a headless worker, or a server-side render pass).
// It never yields cooperatively: GetFrameDeadline returns a value that
// never elapses, so the drain loop only stops at an empty queue or an
// aborted host, and RequestHostCallback relies purely on two races: a timer
// for the requested deadline, and a very long timer as an ultimate
// backstop.
type Fallback struct {
	clock Clock

	mu         sync.Mutex
	generation uint64
	deadline   *time.Timer
	backstop   *time.Timer
	closed     bool
}

// NewFallback constructs a Fallback backend using clock for timeout
// arithmetic.
func NewFallback(clock Clock) *Fallback {
	return &Fallback{clock: clock}
}

func (f *Fallback) RequestHostCallback(cb func(didTimeout bool), absoluteTimeout int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.stopLocked()
	f.generation++
	gen := f.generation

	now := f.clock()
	delay := time.Duration(absoluteTimeout-now) * time.Nanosecond
	if delay < 0 {
		delay = 0
	}

	var once sync.Once
	fire := func(didTimeout bool) {
		once.Do(func() {
			f.mu.Lock()
			if f.closed || gen != f.generation {
				f.mu.Unlock()
				return
			}
			f.stopLocked()
			f.mu.Unlock()
			cb(didTimeout)
		})
	}

	f.deadline = time.AfterFunc(delay, func() { fire(true) })
	f.backstop = time.AfterFunc(maxHostTimeout, func() { fire(false) })
}

func (f *Fallback) CancelHostCallback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.stopLocked()
}

// GetFrameDeadline returns a timestamp that never elapses: there is no
// frame cadence to yield to.
func (f *Fallback) GetFrameDeadline() int64 {
	return math.MaxInt64
}

// Close stops any pending timers. Safe to call more than once.
func (f *Fallback) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stopLocked()
}

func (f *Fallback) stopLocked() {
	if f.deadline != nil {
		f.deadline.Stop()
	}
	if f.backstop != nil {
		f.backstop.Stop()
	}
}
