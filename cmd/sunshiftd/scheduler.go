package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ============================================================================
// Scheduler - Control Loop
// ============================================================================
// The only goroutine that talks to the filter driver. Each iteration:
//
//   1. Snapshot the override, resolve the desired state and next wake time.
//   2. Apply the state when it differs from the last applied state (first
//      iteration and previously failed applies also re-apply).
//   3. Sleep until the wake time, interruptibly: an override change wakes the
//      loop immediately, context cancellation shuts it down cleanly.
//
// Driver failures are logged and retried on a short clamped wake; they never
// terminate the loop. Resolver errors (invalid location reaching the
// calculator) are invariant violations and do terminate it.
// ============================================================================

// DecisionSource is what the scheduler needs from the resolver.
type DecisionSource interface {
	Resolve(now time.Time, ov Override) (ScheduleDecision, error)
	CurrentSolar() (SolarTimes, bool)
}

// DaemonStatus is the externally visible state snapshot published after every
// resolution, consumed by the state WebSocket feed.
type DaemonStatus struct {
	Filter      string     `json:"filter"` // "active" | "inactive"
	Override    string     `json:"override"`
	Temperature int        `json:"temperature_k"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
	NextWake    time.Time  `json:"next_wake"`
	DriverOK    bool       `json:"driver_ok"`
}

// Scheduler drives the filter from schedule decisions.
type Scheduler struct {
	resolver  DecisionSource
	overrides *OverrideController
	driver    FilterDriver
	logger    *slog.Logger

	temperature int

	// retryInterval caps the sleep after a failed driver apply.
	retryInterval time.Duration

	// now is time.Now in production; injectable for tests.
	now func() time.Time

	// onStatus, when set, receives a status snapshot after every resolution.
	onStatus func(DaemonStatus)

	applied      FilterState
	appliedKnown bool
	applyOK      bool
}

func NewScheduler(resolver DecisionSource, overrides *OverrideController, driver FilterDriver, temperature int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		resolver:      resolver,
		overrides:     overrides,
		driver:        driver,
		logger:        logger,
		temperature:   temperature,
		retryInterval: driverRetrySeconds * time.Second,
		now:           time.Now,
	}
}

// SetStatusSink registers the status callback. Must be called before Run.
func (s *Scheduler) SetStatusSink(fn func(DaemonStatus)) {
	s.onStatus = fn
}

// Run executes the control loop until ctx is canceled. A nil return is a
// clean shutdown; a non-nil return is a fatal scheduling error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting", "temperature_k", s.temperature)

	for {
		now := s.now()
		ov := s.overrides.Snapshot(now)

		dec, err := s.resolver.Resolve(now, ov)
		if err != nil {
			return fmt.Errorf("resolve schedule: %w", err)
		}

		failed := s.applyIfNeeded(dec.Desired, ov)

		wake := dec.NextWake
		if failed {
			if retry := now.Add(s.retryInterval); retry.Before(wake) {
				wake = retry
			}
		}

		s.publishStatus(dec, ov, wake)

		s.logger.Debug("sleeping until next event",
			"desired", dec.Desired.String(),
			"override", ov.Mode.String(),
			"wake", wake,
			"in", wake.Sub(now).Round(time.Second).String())

		timer := time.NewTimer(wake.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping (context canceled)")
			return nil
		case <-s.overrides.Wake():
			timer.Stop()
			// Re-resolve immediately with the new override snapshot.
		case <-timer.C:
		}
	}
}

// applyIfNeeded invokes the driver when the desired state is not the applied
// one. Returns true when the apply failed and should be retried shortly.
func (s *Scheduler) applyIfNeeded(desired FilterState, ov Override) bool {
	if s.appliedKnown && s.applied == desired && s.applyOK {
		return false
	}

	var err error
	if desired == FilterActive {
		err = s.driver.Apply(s.temperature)
	} else {
		err = s.driver.Clear()
	}

	if err != nil {
		s.logger.Error("filter apply failed; will retry",
			"desired", desired.String(), "error", err)
		s.applied = desired
		s.appliedKnown = true
		s.applyOK = false
		return true
	}

	s.applied = desired
	s.appliedKnown = true
	s.applyOK = true
	s.logger.Info("filter state applied",
		"state", desired.String(),
		"override", ov.Mode.String(),
		"temperature_k", s.temperature)
	return false
}

func (s *Scheduler) publishStatus(dec ScheduleDecision, ov Override, wake time.Time) {
	if s.onStatus == nil {
		return
	}

	st := DaemonStatus{
		Filter:      dec.Desired.String(),
		Override:    ov.Mode.String(),
		Temperature: s.temperature,
		NextWake:    wake,
		DriverOK:    s.applyOK,
	}
	if times, ok := s.resolver.CurrentSolar(); ok {
		sr, ss := times.Sunrise, times.Sunset
		st.Sunrise = &sr
		st.Sunset = &ss
	}
	s.onStatus(st)
}
