package download

import "math"

// Tolerance bounds how far a retrieved recording's duration may drift from
// the export's expected duration before the file is rejected as the wrong
// recording (a live cut, an extended mix, a fan upload).
type Tolerance struct {
	// Percent of the expected duration allowed as drift.
	Percent float64

	// FloorSeconds is the minimum allowed drift regardless of length, so
	// short tracks are not rejected over a few seconds of silence padding.
	FloorSeconds float64
}

// DefaultTolerance accepts anything within 15% of the expected duration,
// never tighter than 30 seconds.
var DefaultTolerance = Tolerance{Percent: 15, FloorSeconds: 30}

// Allowed returns the admissible drift in seconds for an expected duration.
func (t Tolerance) Allowed(expectedSeconds float64) float64 {
	return math.Max(expectedSeconds*t.Percent/100, t.FloorSeconds)
}

// DurationOK reports whether an actual duration is close enough to the
// expected one. An unknown expected duration (zero or negative) validates
// everything; the export simply had no duration to check against.
func (t Tolerance) DurationOK(expectedSeconds, actualSeconds float64) bool {
	if expectedSeconds <= 0 {
		return true
	}
	return math.Abs(actualSeconds-expectedSeconds) <= t.Allowed(expectedSeconds)
}
