package models

import "testing"

func TestGeoPointValid(t *testing.T) {
	cases := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"bangalore", 12.9716, 77.5946, true},
		{"equator meridian", 0, 0, true},
		{"pole boundary", 90, 180, true},
		{"lat too high", 123.0, 77.59, false},
		{"lat too low", -91, 0, false},
		{"lng too high", 12.97, 999, false},
		{"lng too low", 0, -180.5, false},
		{"both out of range", 200, 999, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewGeoPoint(tc.lat, tc.lng).Valid(); got != tc.want {
				t.Errorf("Valid() = %v for lat=%v lng=%v, want %v", got, tc.lat, tc.lng, tc.want)
			}
		})
	}
}

func TestGeoPointValidRequiresBothCoordinates(t *testing.T) {
	if (GeoPoint{Type: "Point"}).Valid() {
		t.Error("empty coordinates must not be valid")
	}
	if (GeoPoint{Type: "Point", Coordinates: []float64{77.59}}).Valid() {
		t.Error("single coordinate must not be valid")
	}
}
