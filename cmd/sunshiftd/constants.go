package main

// Defaults match the original deployment (Nairobi, Kenya).
const (
	defaultTemperatureK = 3000
	defaultLatitude     = -1.2921
	defaultLongitude    = 36.8219
	defaultAltitudeM    = 1795.0
)

const (
	// defaultDriverTimeoutMS bounds each hyprsunset socket command (dial + write + read).
	defaultDriverTimeoutMS = 500

	// Startup waits for the hyprsunset control socket to appear.
	driverSocketWaitTries   = 10
	driverSocketWaitDelayMS = 1000

	defaultIPCSocketPath = "/tmp/sunshift.sock"

	defaultStateWSPort = 3661

	// driverRetrySeconds caps how long the scheduler waits before re-attempting
	// a failed filter apply, regardless of the next solar wake time.
	driverRetrySeconds = 30
)

// Solar geometry constants.
const (
	// standardHorizonDeg is the conventional solar depression at rise/set:
	// 0.833 degrees below the geometric horizon (refraction + solar radius).
	standardHorizonDeg = 0.833

	// horizonDipArcminPerSqrtM converts observer altitude to horizon dip:
	// dip(arcmin) = 1.76 * sqrt(altitude in meters).
	horizonDipArcminPerSqrtM = 1.76
)
