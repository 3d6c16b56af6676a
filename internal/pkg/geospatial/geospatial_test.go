package geospatial

import (
	"math"
	"testing"

	"github.com/florapix/devicehub/internal/core/domain"
)

func TestDistance_Symmetric(t *testing.T) {
	a := domain.Coordinates{Latitude: 43.263, Longitude: -2.935}
	b := domain.Coordinates{Latitude: 40.4168, Longitude: -3.7038}

	d1 := Distance(a, b)
	d2 := Distance(b, a)
	if d1 != d2 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistance_SamePoint(t *testing.T) {
	a := domain.Coordinates{Latitude: 43.263, Longitude: -2.935}
	if d := Distance(a, a); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestDistance_KnownPair(t *testing.T) {
	paris := domain.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	london := domain.Coordinates{Latitude: 51.5074, Longitude: -0.1278}

	d := Distance(paris, london)
	// Great-circle Paris-London is about 344 km.
	if math.Abs(d-344) > 2 {
		t.Errorf("expected ~344 km, got %f", d)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		coords domain.Coordinates
		want   string
	}{
		{"south east", domain.Coordinates{Latitude: -33.865, Longitude: 151.209}, "33.865000°S, 151.209000°E"},
		{"north west", domain.Coordinates{Latitude: 43.263, Longitude: -2.935}, "43.263000°N, 2.935000°W"},
		{"origin", domain.Coordinates{}, "0.000000°N, 0.000000°E"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.coords); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	valid := []domain.Coordinates{
		{Latitude: 0, Longitude: 0},
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
		{Latitude: 43.263, Longitude: -2.935},
	}
	for _, c := range valid {
		if !Valid(c) {
			t.Errorf("expected valid: %+v", c)
		}
	}

	invalid := []domain.Coordinates{
		{Latitude: 90.0001, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 180.5},
		{Latitude: 0, Longitude: -181},
	}
	for _, c := range invalid {
		if Valid(c) {
			t.Errorf("expected invalid: %+v", c)
		}
	}
}
