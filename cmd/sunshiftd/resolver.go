package main

import (
	"time"
)

// ============================================================================
// State Resolver
// ============================================================================
// Turns "what time is it" plus "is there an override" into "should the filter
// be on, and when do we next need to look again".
//
// Interval convention is half-open: the filter is inactive for
// sunrise <= now < sunset, active otherwise. At the exact sunrise instant the
// filter switches off; at the exact sunset instant it switches on.
// ============================================================================

// FilterState is the desired blue-light filter state.
type FilterState int

const (
	FilterInactive FilterState = iota
	FilterActive
)

func (s FilterState) String() string {
	if s == FilterActive {
		return "active"
	}
	return "inactive"
}

// ScheduleDecision is one resolution result, consumed immediately by the
// scheduler. NextWake is always strictly after the resolution time.
type ScheduleDecision struct {
	Desired  FilterState
	NextWake time.Time
}

// StateResolver computes schedule decisions for a fixed location and time
// zone. Solar times are cached per local calendar date and recomputed lazily
// when the date advances. Not safe for concurrent use; it is owned by the
// scheduler goroutine.
type StateResolver struct {
	loc Location
	tz  *time.Location

	// Per-day cache. cacheErr holds a NoTransition error when the cached day
	// has no sunrise/sunset.
	cacheDay   civilDate
	cacheValid bool
	cacheTimes SolarTimes
	cacheErr   *SolarError
}

// civilDate keys the solar cache.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func civilDateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

// NewStateResolver builds a resolver for loc, interpreting day boundaries in tz.
func NewStateResolver(loc Location, tz *time.Location) *StateResolver {
	if tz == nil {
		tz = time.Local
	}
	return &StateResolver{loc: loc, tz: tz}
}

// Resolve produces the desired filter state for `now` and the next instant the
// scheduler must re-evaluate. Overrides win over the solar computation; their
// expiry boundary (next local midnight) becomes the wake time so automatic
// behavior resumes the moment they lapse. Only SolarInvalidInput errors are
// returned; NoTransition is handled internally as a fixed all-day state.
func (r *StateResolver) Resolve(now time.Time, ov Override) (ScheduleDecision, error) {
	local := now.In(r.tz)

	if ov.Mode != OverrideNone {
		desired := FilterActive
		if ov.Mode == OverrideForcedOff {
			desired = FilterInactive
		}
		return ScheduleDecision{
			Desired:  desired,
			NextWake: ensureFuture(now, nextLocalMidnight(local, r.tz)),
		}, nil
	}

	times, serr, err := r.solarFor(local)
	if err != nil {
		return ScheduleDecision{}, err
	}

	if serr != nil {
		// Permanent day or night: fixed state until the local date changes.
		desired := FilterInactive
		if serr.Polar == AlwaysNight {
			desired = FilterActive
		}
		return ScheduleDecision{
			Desired:  desired,
			NextWake: ensureFuture(now, nextLocalMidnight(local, r.tz)),
		}, nil
	}

	var dec ScheduleDecision
	switch {
	case now.Before(times.Sunrise):
		dec = ScheduleDecision{Desired: FilterActive, NextWake: times.Sunrise}
	case now.Before(times.Sunset):
		dec = ScheduleDecision{Desired: FilterInactive, NextWake: times.Sunset}
	default:
		// Both events passed; wake at tomorrow's sunrise (or midnight when
		// tomorrow has none).
		dec = ScheduleDecision{Desired: FilterActive}
		tomorrow := local.AddDate(0, 0, 1)
		next, err := ComputeSolarTimes(tomorrow, r.loc)
		if serr2, ok := AsSolarError(err); ok && serr2.Kind == SolarNoTransition {
			dec.NextWake = nextLocalMidnight(local, r.tz)
		} else if err != nil {
			return ScheduleDecision{}, err
		} else {
			dec.NextWake = next.Sunrise
		}
	}

	dec.NextWake = ensureFuture(now, dec.NextWake)
	return dec, nil
}

// CurrentSolar exposes the cached solar times for status reporting.
// ok is false when nothing is cached yet or the cached day is polar.
func (r *StateResolver) CurrentSolar() (SolarTimes, bool) {
	if !r.cacheValid || r.cacheErr != nil {
		return SolarTimes{}, false
	}
	return r.cacheTimes, true
}

// solarFor returns the cached solar times for local's calendar date,
// recomputing when the date has advanced. The *SolarError result carries a
// NoTransition condition; the plain error is fatal (invalid input).
func (r *StateResolver) solarFor(local time.Time) (SolarTimes, *SolarError, error) {
	day := civilDateOf(local)
	if r.cacheValid && r.cacheDay == day {
		return r.cacheTimes, r.cacheErr, nil
	}

	times, err := ComputeSolarTimes(local, r.loc)
	if err != nil {
		serr, ok := AsSolarError(err)
		if !ok || serr.Kind != SolarNoTransition {
			return SolarTimes{}, nil, err
		}
		r.cacheDay = day
		r.cacheValid = true
		r.cacheTimes = SolarTimes{}
		r.cacheErr = serr
		return SolarTimes{}, serr, nil
	}

	r.cacheDay = day
	r.cacheValid = true
	r.cacheTimes = times
	r.cacheErr = nil
	return times, nil, nil
}

// nextLocalMidnight returns the first midnight in tz strictly after t.
func nextLocalMidnight(t time.Time, tz *time.Location) time.Time {
	lt := t.In(tz)
	y, m, d := lt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tz).AddDate(0, 0, 1)
}

// ensureFuture guards the scheduler against a busy loop: a wake time at or
// before now is pushed to now+1s.
func ensureFuture(now, wake time.Time) time.Time {
	if !wake.After(now) {
		return now.Add(time.Second)
	}
	return wake
}
