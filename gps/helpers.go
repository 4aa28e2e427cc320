package gps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the sphere radius used for all great-circle distances.
const EarthRadiusMeters = 6371000.0

// ParseCoordinate parses the "lat long" form EdgeTX writes into its GPS column.
func ParseCoordinate(s string) (Coordinate, error) {
	var c Coordinate

	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return c, fmt.Errorf("invalid coordinate %q: expected 2 parts, got %d", s, len(parts))
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return c, fmt.Errorf("error parsing latitude: %w", err)
	}
	long, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return c, fmt.Errorf("error parsing longitude: %w", err)
	}

	c.Lat = lat
	c.Long = long
	if !c.Valid() {
		return c, fmt.Errorf("invalid coordinate %q: not finite", s)
	}
	return c, nil
}

// HaversineKm calculates the great-circle distance between two points in kilometers
func HaversineKm(from, to Coordinate) float64 {
	const R = EarthRadiusMeters / 1000
	lat1Rad := from.Lat * math.Pi / 180
	lat2Rad := to.Lat * math.Pi / 180

	dlat := (to.Lat - from.Lat) * math.Pi / 180
	dlon := (to.Long - from.Long) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}
