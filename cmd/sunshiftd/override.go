package main

import (
	"log/slog"
	"sync"
	"time"
)

// ============================================================================
// Override Controller
// ============================================================================
// Small state machine for the user-requested manual override:
//
//   None --force-on--> ForcedOn
//   None --force-off-> ForcedOff
//   any  --auto------> None
//   any  --(local midnight passes)--> None
//
// Overrides never persist across restarts. Expiry is lazy: the resolver
// schedules a wake at the next local midnight while an override is active, and
// the Snapshot read performed on wake-up observes the expiry.
//
// Concurrency: one writer (the event pump applying user actions) and one
// reader (the scheduler taking snapshots). Every transition signals the wake
// channel so the scheduler re-resolves immediately instead of sleeping out the
// previously planned wake.
// ============================================================================

// OverrideMode enumerates the manual override states.
type OverrideMode int

const (
	OverrideNone OverrideMode = iota
	OverrideForcedOn
	OverrideForcedOff
)

func (m OverrideMode) String() string {
	switch m {
	case OverrideForcedOn:
		return "forced-on"
	case OverrideForcedOff:
		return "forced-off"
	default:
		return "none"
	}
}

// Override is the immutable snapshot handed to the resolver each cycle.
type Override struct {
	Mode  OverrideMode
	SetAt time.Time
}

// OverrideController owns the override value and the scheduler wake signal.
type OverrideController struct {
	tz     *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	current Override

	// wake carries at most one pending interrupt; coalescing is fine because
	// the scheduler always re-reads the latest snapshot.
	wake chan struct{}
}

func NewOverrideController(tz *time.Location, logger *slog.Logger) *OverrideController {
	if tz == nil {
		tz = time.Local
	}
	return &OverrideController{
		tz:     tz,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// ForceOn pins the filter on until midnight or an explicit auto action.
func (c *OverrideController) ForceOn(now time.Time) {
	c.set(Override{Mode: OverrideForcedOn, SetAt: now}, "force-on")
}

// ForceOff pins the filter off until midnight or an explicit auto action.
func (c *OverrideController) ForceOff(now time.Time) {
	c.set(Override{Mode: OverrideForcedOff, SetAt: now}, "force-off")
}

// Auto clears any override and returns control to the solar schedule.
func (c *OverrideController) Auto(now time.Time) {
	c.set(Override{Mode: OverrideNone}, "auto")
}

func (c *OverrideController) set(next Override, action string) {
	c.mu.Lock()
	prev := c.current
	c.current = next
	c.mu.Unlock()

	c.logger.Info("override changed", "action", action, "from", prev.Mode.String(), "to", next.Mode.String())
	c.signal()
}

// Snapshot returns the override as of `now`, applying lazy midnight expiry.
// Called by the scheduler on every loop iteration.
func (c *OverrideController) Snapshot(now time.Time) Override {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current.Mode == OverrideNone {
		return c.current
	}

	expiry := nextLocalMidnight(c.current.SetAt.In(c.tz), c.tz)
	if !now.Before(expiry) {
		c.logger.Info("override expired at midnight", "was", c.current.Mode.String())
		c.current = Override{}
	}
	return c.current
}

// Wake exposes the scheduler interrupt channel.
func (c *OverrideController) Wake() <-chan struct{} {
	return c.wake
}

func (c *OverrideController) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
		// An interrupt is already pending; the next snapshot covers this change.
	}
}
