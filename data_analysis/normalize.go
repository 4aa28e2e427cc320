package data_analysis

import (
	"errors"
	"fmt"

	"github.com/kaireichart/edgetx-log-viewer/gps"
)

// ErrNoValidEntries is returned when no entry survives normalization
var ErrNoValidEntries = errors.New("no valid entries after normalization")

// NormalizeEntries removes consecutive duplicates, drops entries without a valid GPS fix,
// derives absolute times and fills in the gap to the next sample.
// The input slice is not modified.
func NormalizeEntries(entries []Entry) ([]Entry, []Warning, error) {
	var warnings []Warning

	unique := RemoveDuplicates(entries)
	if removed := len(entries) - len(unique); removed > 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnDuplicates,
			Count:   removed,
			Index:   -1,
			Message: fmt.Sprintf("removed %d consecutive duplicate records", removed),
		})
	}

	valid, gpsWarnings := ValidateGPS(unique)
	warnings = append(warnings, gpsWarnings...)

	timed, deltaWarnings := AddTimeDeltas(valid)
	warnings = append(warnings, deltaWarnings...)

	if len(timed) == 0 {
		return nil, warnings, ErrNoValidEntries
	}
	return timed, warnings, nil
}

// RemoveDuplicates drops every entry that equals its predecessor on all fields except time
func RemoveDuplicates(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(entries))
	out = append(out, entries[0])
	for i := 1; i < len(entries); i++ {
		if sameExceptTime(entries[i-1], entries[i]) {
			continue
		}
		out = append(out, entries[i])
	}
	return out
}

func sameExceptTime(a, b Entry) bool {
	count := 0
	for key, v := range a.values {
		if key == TimeField {
			continue
		}
		other, ok := b.values[key]
		if !ok || !v.Equal(other) {
			return false
		}
		count++
	}
	for key := range b.values {
		if key != TimeField {
			count--
		}
	}
	return count == 0
}

// ValidateGPS keeps entries whose gps field holds a coordinate with two finite numbers,
// reshaping textual "lat long" values into coordinates, and derives the absolute time
// of each retained entry from its date and time fields
func ValidateGPS(entries []Entry) ([]Entry, []Warning) {
	out := make([]Entry, 0, len(entries))
	invalid := Warning{Kind: WarnInvalidGPS, Index: -1}
	untimed := Warning{Kind: WarnUnparseableTime, Index: -1}

	for i, e := range entries {
		c, ok := coordinateOf(e)
		if !ok {
			if invalid.Count == 0 {
				invalid.Index = i
			}
			invalid.Count++
			continue
		}
		if v, _ := e.Get(GPSField); v.Kind != KindCoordinate {
			e = e.with(GPSField, CoordinateValue(c))
		}

		e.HasTime = false
		if _, hasTime := e.Get(TimeField); hasTime {
			if t, ok := dateTimeOf(e); ok {
				e.TimeMs = t.UnixMilli()
				e.HasTime = true
			} else {
				if untimed.Count == 0 {
					untimed.Index = len(out)
				}
				untimed.Count++
			}
		}
		out = append(out, e)
	}

	var warnings []Warning
	if invalid.Count > 0 {
		invalid.Message = fmt.Sprintf("dropped %d records without a valid GPS fix", invalid.Count)
		warnings = append(warnings, invalid)
	}
	if untimed.Count > 0 {
		untimed.Message = fmt.Sprintf("%d records have a date or time that could not be parsed", untimed.Count)
		warnings = append(warnings, untimed)
	}
	return out, warnings
}

func coordinateOf(e Entry) (gps.Coordinate, bool) {
	v, ok := e.Get(GPSField)
	if !ok {
		return gps.Coordinate{}, false
	}
	switch v.Kind {
	case KindCoordinate:
		return v.Coord, v.Coord.Valid()
	case KindString:
		c, err := gps.ParseCoordinate(v.Str)
		return c, err == nil
	}
	return gps.Coordinate{}, false
}

// AddTimeDeltas sets each entry's TimeDeltaMs to the gap to the next entry.
// The last entry gets 0, as does any entry where either time is missing.
func AddTimeDeltas(entries []Entry) ([]Entry, []Warning) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)

	missing := Warning{Kind: WarnMissingTimeDelta, Index: -1}
	for i := range out {
		next := out[min(i+1, len(out)-1)]
		if out[i].HasTime && next.HasTime {
			out[i].TimeDeltaMs = next.TimeMs - out[i].TimeMs
			continue
		}
		out[i].TimeDeltaMs = 0
		if missing.Count == 0 {
			missing.Index = i
		}
		missing.Count++
	}

	if missing.Count == 0 {
		return out, nil
	}
	missing.Message = fmt.Sprintf("%d records have no time gap to the next record", missing.Count)
	return out, []Warning{missing}
}
