package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersZero(t *testing.T) {
	p := Point{Latitude: 40.7128, Longitude: -74.0060}
	if d := DistanceMeters(p, p); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestDistanceMetersKnownValue(t *testing.T) {
	// One degree of longitude at the equator is about 111.19 km.
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 0, Longitude: 1}
	d := DistanceMeters(a, b)
	if math.Abs(d-111195) > 50 {
		t.Errorf("equatorial degree = %f m, want ~111195 m", d)
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	a := Point{Latitude: 35.6762, Longitude: 139.6503}
	b := Point{Latitude: 35.6895, Longitude: 139.6917}
	if d1, d2 := DistanceMeters(a, b), DistanceMeters(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestValidateInclusiveBoundary(t *testing.T) {
	home := Point{Latitude: 40.0, Longitude: -75.0}
	recorded := Point{Latitude: 40.0, Longitude: -75.01}
	d := DistanceMeters(recorded, home)

	// Exactly at the threshold is valid.
	res := Validate(recorded, &home, d)
	if res.Status != StatusOK {
		t.Errorf("distance == threshold: status %s, want OK", res.Status)
	}
	if !res.Valid() {
		t.Error("boundary point should be valid")
	}

	// A hair past the threshold is a mismatch.
	res = Validate(recorded, &home, d-0.01)
	if res.Status != StatusMismatch {
		t.Errorf("distance > threshold: status %s, want GPS_MISMATCH", res.Status)
	}
	if res.Valid() {
		t.Error("point past threshold should not be valid")
	}
}

func TestValidateWithinDefaultThreshold(t *testing.T) {
	home := Point{Latitude: 40.0, Longitude: -75.0}
	nearby := Point{Latitude: 40.001, Longitude: -75.0} // ~111 m away
	res := Validate(nearby, &home, 0)
	if res.Status != StatusOK {
		t.Errorf("nearby point: status %s, want OK", res.Status)
	}
	if res.DistanceMeters <= 0 || res.DistanceMeters > 200 {
		t.Errorf("unexpected distance: %f", res.DistanceMeters)
	}
}

func TestValidateMissingReference(t *testing.T) {
	res := Validate(Point{Latitude: 1, Longitude: 1}, nil, 1000)
	if res.Status != StatusUnknown {
		t.Errorf("missing reference: status %s, want UNKNOWN", res.Status)
	}
	if res.Valid() {
		t.Error("unknown must not report as valid")
	}
}
