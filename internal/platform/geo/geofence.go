// Package geo validates recorded GPS points against a reference location.
// Check-in and check-out events carry coordinates captured on the
// caregiver's device; the delivery lifecycle compares them with the
// patient's registered address to flag visits recorded away from the home.
package geo

import "math"

// earthRadiusMeters is the mean radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// DefaultThresholdMeters is the geofence radius applied when no
// configuration overrides it.
const DefaultThresholdMeters = 1000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Status is the outcome of a geofence validation.
type Status string

const (
	// StatusOK means the recorded point lies within the threshold.
	StatusOK Status = "OK"
	// StatusMismatch means the recorded point lies outside the threshold.
	StatusMismatch Status = "GPS_MISMATCH"
	// StatusUnknown means no reference location was available; the check
	// could not be performed and must not be treated as a mismatch.
	StatusUnknown Status = "UNKNOWN"
)

// Result carries the computed distance and the validation outcome.
type Result struct {
	DistanceMeters float64 `json:"distance_meters"`
	Status         Status  `json:"status"`
}

// Valid reports whether the recorded point passed the geofence. Unknown is
// not valid and not invalid; callers decide policy.
func (r Result) Valid() bool { return r.Status == StatusOK }

// DistanceMeters computes the great-circle distance between two points
// using the haversine formula.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Validate compares a recorded point against the reference location.
// The boundary is inclusive: a distance exactly at the threshold is OK.
// A nil reference yields StatusUnknown with a zero distance.
func Validate(recorded Point, reference *Point, thresholdMeters float64) Result {
	if reference == nil {
		return Result{Status: StatusUnknown}
	}
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	d := DistanceMeters(recorded, *reference)
	status := StatusOK
	if d > thresholdMeters {
		status = StatusMismatch
	}
	return Result{DistanceMeters: d, Status: status}
}
