package hostadapter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// initialFrameTime is the starting frame-length estimate (roughly
	// 30Hz), a rough 30Hz starting point.
	initialFrameTime = 33 * time.Millisecond
	// minFrameTime is the floor the adaptive estimator never drops below
	// (the 120Hz ceiling).
	minFrameTime = 8 * time.Millisecond
	// rafWatchdog is how long Browser waits for an animation-frame tick
	// before falling back to a timer-driven tick, guaranteeing forward
	// progress when the host suspends animation frames (e.g. a
	// backgrounded tab).
	rafWatchdog = 100 * time.Millisecond
	// noTimeout is the sentinel stored in timeoutTime when no timeout has
	// been requested.
	noTimeout int64 = -1
)

// Browser is the animation-frame-capable HostAdapter backend. It simulates
// requestAnimationFrame with a timer paced by an adaptive frame-length
// estimate, and simulates the post-task/message-channel primitive with a
// dedicated per-instance token (so that, in a host with a shared message
// bus, this backend's deferred task cannot be confused with an unrelated
// one -- see doc comment on token).
type Browser struct {
	clock Clock

	mu sync.Mutex

	scheduledCallback func(didTimeout bool)
	timeoutTime       int64

	isRAFScheduled  bool
	isTaskScheduled bool
	isFlushing      bool
	closed          bool

	frameDeadline      int64
	activeFrameTime    time.Duration
	previousFrameTime  time.Duration

	rafTimer      *time.Timer
	rafWatchdog   *time.Timer
	rafGeneration uint64
	taskTimer     *time.Timer

	// token disambiguates this Browser's deferred-task posts from any other
	// consumer of the same underlying message-passing primitive. Go's
	// per-instance timer is already collision-free, so this is carried for
	// parity with a real browser message-channel's behavior (and for log
	// correlation) rather than out of structural necessity -- see
	// DESIGN.md's Open Question on this point.
	token string
}

// NewBrowser constructs a Browser backend using clock for all timing
// decisions.
func NewBrowser(clock Clock) *Browser {
	return &Browser{
		clock:             clock,
		timeoutTime:       noTimeout,
		activeFrameTime:   initialFrameTime,
		previousFrameTime: initialFrameTime,
		token:             uuid.NewString(),
	}
}

// Token returns the unique deferred-task correlation token for this
// instance.
func (b *Browser) Token() string {
	return b.token
}

func (b *Browser) RequestHostCallback(cb func(didTimeout bool), absoluteTimeout int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.scheduledCallback = cb
	b.timeoutTime = absoluteTimeout

	if b.isFlushing || absoluteTimeout < 0 {
		b.postTaskLocked()
		return
	}
	if !b.isRAFScheduled {
		b.isRAFScheduled = true
		b.scheduleRAFLocked()
	}
}

func (b *Browser) CancelHostCallback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduledCallback = nil
	b.timeoutTime = noTimeout
}

func (b *Browser) GetFrameDeadline() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frameDeadline
}

// Close stops all pending timers. It is safe to call more than once.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopRAFLocked()
	if b.taskTimer != nil {
		b.taskTimer.Stop()
	}
}

// scheduleRAFLocked races a simulated animation-frame tick (paced by
// activeFrameTime) against rafWatchdog; whichever fires first wins and
// cancels the other, guaranteeing progress even if the host would otherwise
// never deliver an animation frame. Caller must hold b.mu.
func (b *Browser) scheduleRAFLocked() {
	b.rafGeneration++
	gen := b.rafGeneration
	delay := b.activeFrameTime

	b.rafTimer = time.AfterFunc(delay, func() { b.onRAFFire(gen) })
	b.rafWatchdogTimer(gen)
}

func (b *Browser) rafWatchdogTimer(gen uint64) {
	b.rafWatchdog = time.AfterFunc(rafWatchdog, func() { b.onRAFFire(gen) })
}

// onRAFFire runs the first of {frame timer, watchdog} to fire for
// generation gen; the loser is cancelled (best-effort) and ignored if it
// still fires due to the inherent race in time.Timer.Stop.
func (b *Browser) onRAFFire(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.rafGeneration {
		b.mu.Unlock()
		return
	}
	b.stopRAFLocked()
	b.mu.Unlock()
	b.animationTick(b.clock())
}

func (b *Browser) stopRAFLocked() {
	if b.rafTimer != nil {
		b.rafTimer.Stop()
	}
	if b.rafWatchdog != nil {
		b.rafWatchdog.Stop()
	}
	b.rafGeneration++ // invalidate any in-flight fire for the stale generation
}

// animationTick implements the per-frame bookkeeping: it
// re-arms the next frame eagerly if a host callback is still pending,
// adapts the frame-length estimate, advances frameDeadline, and posts the
// deferred task if one isn't already pending.
func (b *Browser) animationTick(rafTime int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	if b.scheduledCallback != nil {
		b.isRAFScheduled = true
		b.scheduleRAFLocked()
	} else {
		b.isRAFScheduled = false
		return
	}

	nextFrameTime := time.Duration(rafTime-b.frameDeadline) + b.activeFrameTime
	if nextFrameTime < b.activeFrameTime && b.previousFrameTime < b.activeFrameTime {
		if nextFrameTime < minFrameTime {
			nextFrameTime = minFrameTime
		}
		if nextFrameTime > b.previousFrameTime {
			b.activeFrameTime = nextFrameTime
		} else {
			b.activeFrameTime = b.previousFrameTime
		}
	} else {
		b.previousFrameTime = nextFrameTime
	}

	b.frameDeadline = rafTime + int64(b.activeFrameTime)

	if !b.isTaskScheduled {
		b.postTaskLocked()
	}
}

// postTaskLocked arms the deferred-task timer (the post-task/message-channel
// analogue) to fire on the next available tick. Caller must hold b.mu.
func (b *Browser) postTaskLocked() {
	if b.isTaskScheduled {
		return
	}
	b.isTaskScheduled = true
	b.taskTimer = time.AfterFunc(0, b.idleTick)
}

// idleTick is the deferred-task handler.
func (b *Browser) idleTick() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.isTaskScheduled = false

	cb := b.scheduledCallback
	timeoutTime := b.timeoutTime
	b.scheduledCallback = nil
	b.timeoutTime = noTimeout

	if cb == nil {
		b.mu.Unlock()
		return
	}

	now := b.clock()
	didTimeout := false
	if b.frameDeadline-now <= 0 {
		if timeoutTime != noTimeout && timeoutTime <= now {
			didTimeout = true
		} else {
			// No frame time left and no expired timeout: restore the
			// snapshot and defer to the next frame.
			b.scheduledCallback = cb
			b.timeoutTime = timeoutTime
			if !b.isRAFScheduled {
				b.isRAFScheduled = true
				b.scheduleRAFLocked()
			}
			b.mu.Unlock()
			return
		}
	}

	b.isFlushing = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.isFlushing = false
		b.mu.Unlock()
	}()
	cb(didTimeout)
}
