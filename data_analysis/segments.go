package data_analysis

import (
	"math"

	"github.com/kaireichart/edgetx-log-viewer/gps"
)

// UnknownMode labels entries without a flight mode
const UnknownMode = "UNKNOWN"

// ModeSegment is a contiguous run of track points flown in the same mode
type ModeSegment struct {
	Mode       string         `json:"mode"`
	Color      string         `json:"color"`
	StartIndex int            `json:"startIndex"`
	EndIndex   int            `json:"endIndex"`
	Points     []gps.Position `json:"points"`
}

// ModeColors is the legend for mode-colored tracks, in display order
var ModeColors = []struct {
	Mode  string `json:"mode"`
	Color string `json:"color"`
}{
	{"OK", "green"},
	{"CRUZ", "orange"},
	{"RTH", "red"},
	{"HOR", "cyan"},
	{"HOLD", "magenta"},
	{"ANGL", "greenyellow"},
	{"MANU", "dodgerblue"},
	{"AIR", "#822EFF"},
}

// ModeColor returns the track color of a flight mode, white for unlisted modes
func ModeColor(mode string) string {
	for _, mc := range ModeColors {
		if mc.Mode == mode {
			return mc.Color
		}
	}
	return "white"
}

// trackPoint returns the 3D position of an entry that has both a GPS fix and an altitude
func trackPoint(e Entry) (gps.Position, bool) {
	c, ok := e.GPS()
	if !ok {
		return gps.Position{}, false
	}
	alt, ok := e.Altitude()
	if !ok {
		return gps.Position{}, false
	}
	return gps.Position{Latitude: c.Lat, Longitude: c.Long, Altitude: alt}, true
}

// ModeSegments splits the entries into runs of unchanged flight mode. Entries without a
// GPS fix or altitude are skipped without breaking the run. Runs shorter than two points
// are dropped.
func ModeSegments(entries []Entry) []ModeSegment {
	var segments []ModeSegment
	var current *ModeSegment

	for i, e := range entries {
		pos, ok := trackPoint(e)
		if !ok {
			continue
		}
		mode, ok := e.Mode()
		if !ok {
			mode = UnknownMode
		}

		if current == nil || current.Mode != mode {
			segments = append(segments, ModeSegment{
				Mode:       mode,
				Color:      ModeColor(mode),
				StartIndex: i,
			})
			current = &segments[len(segments)-1]
		}
		current.EndIndex = i
		current.Points = append(current.Points, pos)
	}

	kept := segments[:0]
	for _, s := range segments {
		if len(s.Points) >= 2 {
			kept = append(kept, s)
		}
	}
	return kept
}

// ValueSegment is one leg of the track colored by a field value
type ValueSegment struct {
	Index      int          `json:"index"`
	From       gps.Position `json:"from"`
	To         gps.Position `json:"to"`
	Value      float64      `json:"value"`
	Normalized float64      `json:"normalized"` // value scaled to [0, 1] over the field range
}

// ValueSegments pairs consecutive track points with the numeric value of field at the
// start of each leg. Legs whose start value is not a number are skipped.
func ValueSegments(entries []Entry, field string) []ValueSegment {
	min, max, ok := FieldRange(entries, field)
	if !ok {
		return nil
	}

	var segments []ValueSegment
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		from, ok := trackPoint(prev)
		if !ok {
			continue
		}
		to, ok := trackPoint(cur)
		if !ok {
			continue
		}
		v, ok := prev.Get(field)
		if !ok {
			continue
		}
		value, ok := v.Float()
		if !ok {
			continue
		}

		segments = append(segments, ValueSegment{
			Index:      i,
			From:       from,
			To:         to,
			Value:      value,
			Normalized: math.Max(0, math.Min(1, (value-min)/(max-min))),
		})
	}
	return segments
}
