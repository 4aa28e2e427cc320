package data_analysis

import "strings"

// Canonical field names produced by the parser for the standard EdgeTX columns
const (
	GPSField  = "gps"
	DateField = "date"
	TimeField = "time"
	ModeField = "fm"
)

// Alias lists are searched in order and the first present key wins
var (
	AltitudeAliases  = []string{"altitude", "alt", "altMeters", "altitudeMeters"}
	ModeAliases      = []string{"flightMode", "mode", ModeField}
	TimestampAliases = []string{"timestamp", "dateTime", "timeMs"}
)

var nonNumericalFields = map[string]bool{
	DateField: true,
	TimeField: true,
	GPSField:  true,
	ModeField: true,
}

// NumericalFields lists the fields of entry whose value is a number, in header order.
// Date, time, flight mode and any GPS-derived field are never numerical.
func NumericalFields(entry Entry) []string {
	var fields []string
	for _, key := range entry.Fields() {
		if nonNumericalFields[key] || strings.Contains(strings.ToLower(key), GPSField) {
			continue
		}
		if v, _ := entry.Get(key); v.Kind == KindNumber {
			fields = append(fields, key)
		}
	}
	return fields
}
