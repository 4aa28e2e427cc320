package gps

import (
	"fmt"
	"math"
	"strconv"
)

// Valid reports whether both components are finite numbers
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Long) && !math.IsInf(c.Long, 0)
}

// String returns the coordinate in the "lat long" form it was logged in
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + " " + strconv.FormatFloat(c.Long, 'f', -1, 64)
}

// DMS returns the coordinate as degrees, minutes and seconds, e.g. 54°55'39.00"N 1°50'3.12"W
func (c Coordinate) DMS() string {
	return FormatDMS(c.Lat, true) + " " + FormatDMS(c.Long, false)
}

// FormatDMS formats decimal degrees with a hemisphere letter
func FormatDMS(decimalDegrees float64, isLatitude bool) string {
	absolute := math.Abs(decimalDegrees)

	degrees := int(absolute)
	minutesNotTruncated := (absolute - float64(degrees)) * 60
	minutes := int(minutesNotTruncated)
	seconds := (minutesNotTruncated - float64(minutes)) * 60

	var direction string
	if isLatitude {
		if decimalDegrees >= 0 {
			direction = "N"
		} else {
			direction = "S"
		}
	} else {
		if decimalDegrees >= 0 {
			direction = "E"
		} else {
			direction = "W"
		}
	}

	return fmt.Sprintf("%d°%d'%.2f\"%s", degrees, minutes, seconds, direction)
}
