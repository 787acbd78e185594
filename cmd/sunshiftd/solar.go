package main

import (
	"fmt"
	"math"
	"time"
)

// ============================================================================
// Solar Calculator
// ============================================================================
// Pure sunrise/sunset computation from the NOAA general solar position
// equations: fractional year -> equation of time + solar declination ->
// hour angle -> UTC instants. No state, no side effects; deterministic for a
// given (date, location) so it can be tested against almanac values.
//
// Conventions (documented here because the upstream tools disagree):
//   - Horizon: standard -0.833 degree depression, plus a geometric horizon
//     dip of 1.76 arcmin per sqrt(meter) of observer altitude. Higher
//     observers see the sun earlier at dawn and later at dusk.
//   - The calendar date is the LOCAL date; returned instants are UTC and may
//     fall on the neighbouring UTC day for longitudes far from Greenwich.
//   - Instants are truncated to whole seconds.
// ============================================================================

// Location is a validated observer position.
type Location struct {
	Latitude  float64 // degrees, -90..90
	Longitude float64 // degrees, -180..180, east positive
	Altitude  float64 // meters above sea level, -500..9000
}

// Validate checks the location ranges. Errors here reaching the calculator at
// runtime indicate a programming bug: config validation must catch them first.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", l.Longitude)
	}
	if math.IsNaN(l.Altitude) || l.Altitude < -500 || l.Altitude >= 9000 {
		return fmt.Errorf("altitude %v out of range [-500, 9000)", l.Altitude)
	}
	return nil
}

// SolarTimes holds the sunrise/sunset instants (UTC) for one local calendar day.
type SolarTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// PolarCondition says which way the sun fails to cross the horizon.
type PolarCondition int

const (
	AlwaysDay PolarCondition = iota + 1
	AlwaysNight
)

func (p PolarCondition) String() string {
	switch p {
	case AlwaysDay:
		return "always-day"
	case AlwaysNight:
		return "always-night"
	default:
		return "unknown"
	}
}

// SolarErrorKind classifies calculator failures.
type SolarErrorKind int

const (
	// SolarNoTransition: the sun never crosses the horizon on this date at
	// this latitude. Not a failure for callers; a valid all-day branch.
	SolarNoTransition SolarErrorKind = iota + 1

	// SolarInvalidInput: the location is outside valid ranges. This should
	// have been rejected at config load; treat as an invariant violation.
	SolarInvalidInput
)

// SolarError is the calculator's error type. NoTransition errors carry the
// polar condition so callers can pick the fixed all-day state.
type SolarError struct {
	Kind   SolarErrorKind
	Polar  PolarCondition // set when Kind == SolarNoTransition
	Detail string
}

func (e *SolarError) Error() string {
	switch e.Kind {
	case SolarNoTransition:
		return fmt.Sprintf("no sunrise/sunset: %s", e.Polar)
	case SolarInvalidInput:
		return fmt.Sprintf("invalid location: %s", e.Detail)
	default:
		return "solar calculation error"
	}
}

// AsSolarError unwraps err into a *SolarError if it is one.
func AsSolarError(err error) (*SolarError, bool) {
	se, ok := err.(*SolarError)
	return se, ok
}

// ComputeSolarTimes returns the sunrise and sunset instants (UTC, whole
// seconds) for the calendar date carried by `date` in its own time zone.
// Permanent day/night returns *SolarError with Kind SolarNoTransition.
func ComputeSolarTimes(date time.Time, loc Location) (SolarTimes, error) {
	if err := loc.Validate(); err != nil {
		return SolarTimes{}, &SolarError{Kind: SolarInvalidInput, Detail: err.Error()}
	}

	year, month, day := date.Date()

	// Fractional year in radians, leap aware, evaluated at local solar noon.
	daysInYear := 365.0
	if isLeapYear(year) {
		daysInYear = 366.0
	}
	gamma := 2 * math.Pi / daysInYear * float64(date.YearDay()-1)

	// Equation of time (minutes) and solar declination (radians).
	eqTimeMin := 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
	decl := 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	// Effective zenith: standard horizon depression plus altitude dip.
	zenith := degToRad(90 + standardHorizonDeg + horizonDipDeg(loc.Altitude))

	latRad := degToRad(loc.Latitude)
	cosHA := math.Cos(zenith)/(math.Cos(latRad)*math.Cos(decl)) -
		math.Tan(latRad)*math.Tan(decl)

	// |cosHA| > 1 means the sun never reaches the rise/set zenith today.
	if cosHA > 1 {
		return SolarTimes{}, &SolarError{Kind: SolarNoTransition, Polar: AlwaysNight}
	}
	if cosHA < -1 {
		return SolarTimes{}, &SolarError{Kind: SolarNoTransition, Polar: AlwaysDay}
	}

	haDeg := radToDeg(math.Acos(cosHA))

	// Minutes from 00:00 UTC on the local calendar date.
	riseMin := 720 - 4*(loc.Longitude+haDeg) - eqTimeMin
	setMin := 720 - 4*(loc.Longitude-haDeg) - eqTimeMin

	midnightUTC := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return SolarTimes{
		Sunrise: midnightUTC.Add(minutesToDuration(riseMin)).Truncate(time.Second),
		Sunset:  midnightUTC.Add(minutesToDuration(setMin)).Truncate(time.Second),
	}, nil
}

// horizonDipDeg is the geometric dip of the visible horizon for an observer
// at the given altitude, in degrees. Below-sea-level observers get no credit.
func horizonDipDeg(altitudeM float64) float64 {
	if altitudeM <= 0 {
		return 0
	}
	return horizonDipArcminPerSqrtM * math.Sqrt(altitudeM) / 60.0
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func minutesToDuration(min float64) time.Duration {
	return time.Duration(min * float64(time.Minute))
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }
