package data_analysis

import (
	"strings"
	"time"
)

// Layouts accepted for a combined date and time. Zone-less values are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// epoch second values in this range are promoted to milliseconds
const (
	minEpochSeconds = 1e9
	maxEpochSeconds = 2e9
)

func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// hasZone reports whether a time-of-day string carries its own zone designator
func hasZone(clock string) bool {
	return strings.ContainsAny(clock, "Z+-")
}

// dateTimeOf combines the entry's date and time fields into a UTC instant
func dateTimeOf(e Entry) (time.Time, bool) {
	dv, ok := e.Get(DateField)
	if !ok {
		return time.Time{}, false
	}
	tv, ok := e.Get(TimeField)
	if !ok {
		return time.Time{}, false
	}
	date, ok := dv.Text()
	if !ok {
		return time.Time{}, false
	}
	clock, ok := tv.Text()
	if !ok {
		return time.Time{}, false
	}

	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	zone := ""
	if !hasZone(clock) {
		zone = "Z"
	}
	if t, ok := parseInstant(date + "T" + clock + zone); ok {
		return t, true
	}
	return parseInstant(date + " " + clock)
}

// ResolveTimestamp derives an absolute time for an entry. The date and time fields are
// tried first, then the timestamp aliases: numbers between 1e9 and 2e9 are epoch seconds,
// other numbers are epoch milliseconds and strings are parsed as ISO-8601.
func ResolveTimestamp(e Entry) (time.Time, bool) {
	if t, ok := dateTimeOf(e); ok {
		return t, true
	}

	v, ok := e.Lookup(TimestampAliases...)
	if !ok {
		return time.Time{}, false
	}
	if n, ok := v.Float(); ok {
		if n > minEpochSeconds && n < maxEpochSeconds {
			return time.UnixMilli(int64(n * 1000)).UTC(), true
		}
		return time.UnixMilli(int64(n)).UTC(), true
	}
	if s, ok := v.Text(); ok {
		return parseInstant(s)
	}
	return time.Time{}, false
}
