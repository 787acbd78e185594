package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeFilterDriver is a test double for FilterDriver with failure injection.
type fakeFilterDriver struct {
	mu         sync.Mutex
	applyCalls []int
	clearCalls int
	failCount  int // fail this many calls before succeeding
}

func (f *fakeFilterDriver) Apply(temperature int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls = append(f.applyCalls, temperature)
	if f.failCount > 0 {
		f.failCount--
		return errors.New("socket write failed")
	}
	return nil
}

func (f *fakeFilterDriver) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	if f.failCount > 0 {
		f.failCount--
		return errors.New("socket write failed")
	}
	return nil
}

func (f *fakeFilterDriver) applies() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.applyCalls))
	copy(out, f.applyCalls)
	return out
}

func (f *fakeFilterDriver) clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

// fakeDecisionSource is a test double for DecisionSource; decisions come from
// a caller-supplied function so tests can react to the override snapshot.
type fakeDecisionSource struct {
	decide func(now time.Time, ov Override) (ScheduleDecision, error)
}

func (f *fakeDecisionSource) Resolve(now time.Time, ov Override) (ScheduleDecision, error) {
	return f.decide(now, ov)
}

func (f *fakeDecisionSource) CurrentSolar() (SolarTimes, bool) {
	return SolarTimes{}, false
}

func newTestScheduler(resolver DecisionSource, overrides *OverrideController, driver FilterDriver) *Scheduler {
	s := NewScheduler(resolver, overrides, driver, 3000, testLogger())
	s.retryInterval = 20 * time.Millisecond
	return s
}

// TestScheduler_InitialApply checks the first iteration always drives the
// filter, then the loop sleeps until the wake time.
func TestScheduler_InitialApply(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			return ScheduleDecision{Desired: FilterActive, NextWake: now.Add(time.Hour)}, nil
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitUntil(t, time.Second, func() bool {
		return len(driver.applies()) == 1
	}, "expected one initial apply")

	if got := driver.applies(); got[0] != 3000 {
		t.Errorf("expected apply with 3000K, got %d", got[0])
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for scheduler to stop")
	}
}

// TestScheduler_OverrideInterrupt checks an override change wakes the sleeping
// loop and the new state is applied promptly.
func TestScheduler_OverrideInterrupt(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			if ov.Mode == OverrideForcedOn {
				return ScheduleDecision{Desired: FilterActive, NextWake: now.Add(time.Hour)}, nil
			}
			return ScheduleDecision{Desired: FilterInactive, NextWake: now.Add(time.Hour)}, nil
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// First iteration clears the filter (day state) and sleeps for an hour.
	waitUntil(t, time.Second, func() bool {
		return driver.clears() == 1
	}, "expected initial clear")

	overrides.ForceOn(time.Now())

	waitUntil(t, time.Second, func() bool {
		return len(driver.applies()) == 1
	}, "expected apply after force-on interrupt")
}

// TestScheduler_NoReapplyWhenUnchanged checks consecutive resolutions to the
// same state do not touch the driver again.
func TestScheduler_NoReapplyWhenUnchanged(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			// Wake quickly so the loop runs several iterations.
			return ScheduleDecision{Desired: FilterActive, NextWake: now.Add(10 * time.Millisecond)}, nil
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitUntil(t, time.Second, func() bool {
		return len(driver.applies()) >= 1
	}, "expected initial apply")

	// Give the loop time for a few more iterations.
	time.Sleep(100 * time.Millisecond)

	if got := len(driver.applies()); got != 1 {
		t.Errorf("expected exactly one apply across repeated identical resolutions, got %d", got)
	}
}

// TestScheduler_DriverFailureRetries checks a failed apply is retried on the
// clamped interval and eventually succeeds without state changes in between.
func TestScheduler_DriverFailureRetries(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{failCount: 2}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			return ScheduleDecision{Desired: FilterActive, NextWake: now.Add(time.Hour)}, nil
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Two failures plus the succeeding retry.
	waitUntil(t, 2*time.Second, func() bool {
		return len(driver.applies()) >= 3
	}, "expected failed applies to be retried")

	// After success the loop settles; no further applies.
	settled := len(driver.applies())
	time.Sleep(100 * time.Millisecond)
	if got := len(driver.applies()); got != settled {
		t.Errorf("expected no applies after success, got %d more", got-settled)
	}
}

// TestScheduler_ResolverErrorFatal checks an invalid-input resolver error
// terminates the loop with that error.
func TestScheduler_ResolverErrorFatal(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			return ScheduleDecision{}, &SolarError{Kind: SolarInvalidInput, Detail: "latitude 200 out of range"}
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected a fatal error from Run")
	}
	if len(driver.applies()) != 0 || driver.clears() != 0 {
		t.Error("expected no driver calls on a fatal resolve error")
	}
}

// TestScheduler_StatusPublished checks the status sink receives a snapshot
// after each resolution with the applied state and driver health.
func TestScheduler_StatusPublished(t *testing.T) {
	tz := eatZone()
	overrides := NewOverrideController(tz, testLogger())
	driver := &fakeFilterDriver{}
	resolver := &fakeDecisionSource{
		decide: func(now time.Time, ov Override) (ScheduleDecision, error) {
			return ScheduleDecision{Desired: FilterActive, NextWake: now.Add(time.Hour)}, nil
		},
	}
	s := newTestScheduler(resolver, overrides, driver)

	var mu sync.Mutex
	var statuses []DaemonStatus
	s.SetStatusSink(func(st DaemonStatus) {
		mu.Lock()
		statuses = append(statuses, st)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) >= 1
	}, "expected a published status")

	mu.Lock()
	st := statuses[0]
	mu.Unlock()

	if st.Filter != "active" {
		t.Errorf("expected filter active, got %q", st.Filter)
	}
	if st.Override != "none" {
		t.Errorf("expected override none, got %q", st.Override)
	}
	if st.Temperature != 3000 {
		t.Errorf("expected 3000K, got %d", st.Temperature)
	}
	if !st.DriverOK {
		t.Error("expected driver_ok true after a successful apply")
	}
	if st.Sunrise != nil || st.Sunset != nil {
		t.Error("expected no solar times from a source without them")
	}
}
