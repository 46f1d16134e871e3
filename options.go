package scheduler

import (
	"time"

	"github.com/taskloop/scheduler/hostadapter"
	"github.com/taskloop/scheduler/internal/obslog"
)

// config holds the resolved configuration built from Option values.
type config struct {
	hostAdapter       hostadapter.HostAdapter
	hasAnimationFrame bool
	logger            *obslog.Logger
	diagnosticWindow  time.Duration
	onOverload        func(error)
	overloadRate      map[time.Duration]int
}

// Option configures a Scheduler at construction time, applying itself to an
// internal config value.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithHostAdapter overrides the default host-capability probing and injects
// adapter directly. Intended for tests (see hostadapter.Injected) and for
// embedders that already have their own frame-cadence source.
func WithHostAdapter(adapter hostadapter.HostAdapter) Option {
	return optionFunc(func(c *config) { c.hostAdapter = adapter })
}

// WithLogger overrides the scheduler's structured logger. The default is
// obslog.Default(), which writes informational-and-above JSON lines to
// os.Stderr.
func WithLogger(logger *obslog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = logger })
}

// WithDiagnosticWindow controls how often the overload diagnostic (see
// WithOverloadLimiter) may fire for a given priority; repeats within the
// window are suppressed. The default is one minute. It does not affect the
// missing-host-capability diagnostic, which is rate-limited process-wide
// across every Scheduler instance rather than per the window configured
// here (see WithSimulatedHostCapability).
func WithDiagnosticWindow(window time.Duration) Option {
	return optionFunc(func(c *config) { c.diagnosticWindow = window })
}

// WithSimulatedHostCapability selects, for the default host adapter
// (ignored if WithHostAdapter is also supplied), whether the constructed
// Scheduler should behave as though its host exposes an animation-frame
// primitive. The default is true (hostadapter.Browser). Passing false
// selects hostadapter.Fallback and logs a HostCapabilityError diagnostic
// the first time it does; repeat diagnostics for the same capability are
// suppressed process-wide (not just for this instance) for one minute, so
// a caller that repeatedly constructs Schedulers against a host lacking
// the capability does not flood the log.
func WithSimulatedHostCapability(hasAnimationFrame bool) Option {
	return optionFunc(func(c *config) { c.hasAnimationFrame = hasAnimationFrame })
}

// WithOverloadLimiter enables an overload signal: if enqueues in any
// category under rates arrive faster than the configured limits, onOverload
// is invoked (at most once per window, per category) with a diagnostic
// error. rates follows the same semantics as catrate.NewLimiter. This is
// additional to the scheduler's own correctness invariants -- a health signal, not a
// correctness requirement.
func WithOverloadLimiter(rates map[time.Duration]int, onOverload func(error)) Option {
	return optionFunc(func(c *config) {
		c.overloadRate = rates
		c.onOverload = onOverload
	})
}

// resolveOptions applies opts over sensible defaults. Nil options are
// skipped rather than treated as an error.
func resolveOptions(opts []Option) *config {
	c := &config{
		logger:            obslog.Default(),
		diagnosticWindow:  time.Minute,
		hasAnimationFrame: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(c)
	}
	return c
}
