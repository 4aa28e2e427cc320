package data_analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kaireichart/edgetx-log-viewer/gps"
)

// CalculateFlightStats summarizes normalized entries in a single pass. Distance is
// measured from the first GPS fix and altitudes come from the altitude aliases.
// Duration is the span between the earliest and latest timestamps in minutes.
// The most used mode breaks ties by first appearance.
func CalculateFlightStats(entries []Entry) FlightStats {
	var stats FlightStats
	if len(entries) == 0 {
		return stats
	}

	var (
		origin     gps.Coordinate
		hasOrigin  bool
		maxDist    float64
		maxAlt     float64
		minAlt     float64
		hasAlt     bool
		earliest   int64
		latest     int64
		timed      int
		modeCounts = make(map[string]int)
		modeOrder  []string
	)

	for _, e := range entries {
		if c, ok := e.GPS(); ok {
			if !hasOrigin {
				origin = c
				hasOrigin = true
			}
			if d := gps.HaversineKm(origin, c); d > maxDist {
				maxDist = d
			}
		}

		if alt, ok := e.Altitude(); ok {
			if !hasAlt {
				maxAlt, minAlt = alt, alt
				hasAlt = true
			}
			maxAlt = math.Max(maxAlt, alt)
			minAlt = math.Min(minAlt, alt)
		}

		if e.HasTime {
			if timed == 0 || e.TimeMs < earliest {
				earliest = e.TimeMs
			}
			if timed == 0 || e.TimeMs > latest {
				latest = e.TimeMs
			}
			timed++
		}

		if mode, ok := e.Mode(); ok {
			if _, seen := modeCounts[mode]; !seen {
				modeOrder = append(modeOrder, mode)
			}
			modeCounts[mode]++
		}
	}

	if hasOrigin {
		stats.MaxDistanceKm = ptr(round(maxDist, 2))
	}
	if hasAlt {
		stats.MaxAltitudeM = ptr(round(maxAlt, 1))
		stats.MinAltitudeM = ptr(round(minAlt, 1))
	}
	if timed >= 2 {
		stats.FlightDurationMinutes = ptr(round(float64(latest-earliest)/60000, 1))
	}
	if len(modeOrder) > 0 {
		best := modeOrder[0]
		for _, mode := range modeOrder[1:] {
			if modeCounts[mode] > modeCounts[best] {
				best = mode
			}
		}
		stats.MostUsedMode = ptr(best)
	}
	return stats
}

func ptr[T any](v T) *T { return &v }

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// NumericValues returns the numeric values of field across entries, skipping the rest
func NumericValues(entries []Entry, field string) []float64 {
	values := make([]float64, 0, len(entries))
	for _, e := range entries {
		if v, ok := e.Get(field); ok {
			if f, ok := v.Float(); ok {
				values = append(values, f)
			}
		}
	}
	return values
}

// CalculateFieldStatistics calculates descriptive statistics for one numeric field.
// It returns nil if the field has no numeric values.
func CalculateFieldStatistics(entries []Entry, field string) *FieldStatistics {
	data := NumericValues(entries, field)
	if len(data) == 0 {
		return nil
	}

	mean, variance := stat.PopMeanVariance(data, nil)
	min, max := floats.Min(data), floats.Max(data)

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	var median float64
	n := len(sorted)
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	return &FieldStatistics{
		Field:    field,
		Count:    n,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Min:      min,
		Max:      max,
		Range:    max - min,
		Median:   median,
	}
}

// FieldRange returns the value range of a numeric field for color scaling.
// A constant field gets a tiny non-zero span.
func FieldRange(entries []Entry, field string) (min, max float64, ok bool) {
	data := NumericValues(entries, field)
	if len(data) == 0 {
		return 0, 0, false
	}
	min, max = floats.Min(data), floats.Max(data)
	if max == min {
		max = min + 1e-6
	}
	return min, max, true
}
