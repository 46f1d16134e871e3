// Package diagnostics rate-limits the scheduler's diagnostic log lines using
// github.com/joeycumines/go-catrate, so that a host repeatedly probing for
// (and lacking) a capability cannot flood the structured logger with
// identical warnings: at most one diagnostic per category, per window.
package diagnostics

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// Limiter rate-limits diagnostics by category (e.g. the name of the missing
// host capability, or "overload").
type Limiter struct {
	limiter *catrate.Limiter
}

// NewLimiter constructs a Limiter that allows at most one diagnostic per
// category every window.
func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		limiter: catrate.NewLimiter(map[time.Duration]int{window: 1}),
	}
}

// NewRateLimiter constructs a Limiter directly from a catrate rate
// configuration (one limit per window duration), for callers that want
// genuine rate-limiting rather than the one-per-window diagnostic shape
// NewLimiter provides.
func NewRateLimiter(rates map[time.Duration]int) *Limiter {
	return &Limiter{limiter: catrate.NewLimiter(rates)}
}

// Allow reports whether a diagnostic in category should be emitted now. It
// returns false once category has used up its configured allowance within
// the current window (for a NewLimiter limiter, one per window).
func (l *Limiter) Allow(category string) bool {
	_, ok := l.limiter.Allow(category)
	return ok
}
