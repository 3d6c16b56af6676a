package geospatial

import (
	"fmt"
	"math"

	"github.com/florapix/devicehub/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Distance calculates the great-circle (haversine) distance in kilometers
// between two coordinate samples.
func Distance(a, b domain.Coordinates) float64 {
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Format renders coordinates as a degree string with hemisphere suffixes,
// six decimal places: "33.865000°S, 151.209000°E".
func Format(coords domain.Coordinates) string {
	latDir := "N"
	if coords.Latitude < 0 {
		latDir = "S"
	}
	lonDir := "E"
	if coords.Longitude < 0 {
		lonDir = "W"
	}
	return fmt.Sprintf("%.6f°%s, %.6f°%s",
		math.Abs(coords.Latitude), latDir,
		math.Abs(coords.Longitude), lonDir)
}

// Valid reports whether latitude and longitude are inside the WGS 84 ranges.
func Valid(coords domain.Coordinates) bool {
	return coords.Latitude >= -90 && coords.Latitude <= 90 &&
		coords.Longitude >= -180 && coords.Longitude <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
