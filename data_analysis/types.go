package data_analysis

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/kaireichart/edgetx-log-viewer/gps"
)

// ValueKind identifies which member of a Value is populated
type ValueKind uint8

const (
	// KindNone marks a field that was not present in the record
	KindNone ValueKind = iota
	KindNumber
	KindString
	KindCoordinate
)

// Value is a single telemetry field value: a finite number, a string or a GPS coordinate
type Value struct {
	Kind  ValueKind      `msgpack:"k"`
	Num   float64        `msgpack:"n,omitempty"`
	Str   string         `msgpack:"s,omitempty"`
	Coord gps.Coordinate `msgpack:"c,omitempty"`
}

func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func CoordinateValue(c gps.Coordinate) Value { return Value{Kind: KindCoordinate, Coord: c} }

// Float returns the numeric value if the value is a number
func (v Value) Float() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// Text returns the string value if the value is a string
func (v Value) Text() (string, bool) {
	return v.Str, v.Kind == KindString
}

// Coordinate returns the coordinate if the value is a GPS fix
func (v Value) Coordinate() (gps.Coordinate, bool) {
	return v.Coord, v.Kind == KindCoordinate
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindString:
		return v.Str == o.Str
	case KindCoordinate:
		return v.Coord == o.Coord
	}
	return true
}

// Interface returns the value as a plain Go value for encoders
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindCoordinate:
		return v.Coord
	}
	return nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindCoordinate:
		return v.Coord.String()
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Entry is one telemetry sample keyed by canonical field name
type Entry struct {
	keys   []string
	values map[string]Value

	// TimeMs is the absolute UTC time of the sample in epoch milliseconds, valid when HasTime is set
	TimeMs      int64
	HasTime     bool
	// TimeDeltaMs is the gap to the next retained sample, 0 for the last one
	TimeDeltaMs int64
}

// NewEntry builds an entry from header-ordered keys and the values present in the record.
// keys may be shared between entries and must not be modified afterwards.
func NewEntry(keys []string, values map[string]Value) Entry {
	if values == nil {
		values = map[string]Value{}
	}
	return Entry{keys: keys, values: values}
}

// Get returns the value of a field if present
func (e Entry) Get(key string) (Value, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Lookup returns the value of the first present key
func (e Entry) Lookup(keys ...string) (Value, bool) {
	for _, key := range keys {
		if v, ok := e.values[key]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Fields returns the present field names in header order
func (e Entry) Fields() []string {
	fields := make([]string, 0, len(e.values))
	for _, key := range e.keys {
		if _, ok := e.values[key]; ok {
			fields = append(fields, key)
		}
	}
	return fields
}

// Keys returns every header key of the log the entry belongs to
func (e Entry) Keys() []string {
	return e.keys
}

func (e Entry) Len() int {
	return len(e.values)
}

// with returns a copy of the entry with one field replaced
func (e Entry) with(key string, v Value) Entry {
	values := make(map[string]Value, len(e.values))
	for k, existing := range e.values {
		values[k] = existing
	}
	values[key] = v
	e.values = values
	return e
}

// GPS returns the entry's coordinate when it holds a valid fix
func (e Entry) GPS() (gps.Coordinate, bool) {
	v, ok := e.values[GPSField]
	if !ok {
		return gps.Coordinate{}, false
	}
	c, ok := v.Coordinate()
	if !ok || !c.Valid() {
		return gps.Coordinate{}, false
	}
	return c, true
}

// Altitude returns the numeric altitude from the first present altitude alias
func (e Entry) Altitude() (float64, bool) {
	v, ok := e.Lookup(AltitudeAliases...)
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Mode returns the trimmed flight mode label from the first present mode alias
func (e Entry) Mode() (string, bool) {
	v, ok := e.Lookup(ModeAliases...)
	if !ok {
		return "", false
	}
	s, ok := v.Text()
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Time returns the derived sample time
func (e Entry) Time() (time.Time, bool) {
	if !e.HasTime {
		return time.Time{}, false
	}
	return time.UnixMilli(e.TimeMs).UTC(), true
}

// FlightStats summarizes a normalized log. Nil members are unknown.
type FlightStats struct {
	MaxDistanceKm         *float64 `json:"maxDistanceKm" msgpack:"maxDistanceKm"`
	MaxAltitudeM          *float64 `json:"maxAltitudeM" msgpack:"maxAltitudeM"`
	MinAltitudeM          *float64 `json:"minAltitudeM" msgpack:"minAltitudeM"`
	FlightDurationMinutes *float64 `json:"flightDurationMinutes" msgpack:"flightDurationMinutes"`
	MostUsedMode          *string  `json:"mostUsedMode" msgpack:"mostUsedMode"`
}

// WarningKind classifies a non-fatal data-quality issue
type WarningKind string

const (
	WarnShortRecord      WarningKind = "short_record"
	WarnDuplicates       WarningKind = "duplicates_removed"
	WarnInvalidGPS       WarningKind = "invalid_gps"
	WarnUnparseableTime  WarningKind = "unparseable_time"
	WarnMissingTimeDelta WarningKind = "missing_time_delta"
	WarnFilenameFormat   WarningKind = "filename_format"
)

// Warning reports how many records a data-quality issue affected and where it first occurred
type Warning struct {
	Kind    WarningKind `json:"kind" msgpack:"kind"`
	Count   int         `json:"count" msgpack:"count"`
	Index   int         `json:"index" msgpack:"index"` // first affected record, -1 if not record specific
	Message string      `json:"message" msgpack:"message"`
}

// FileMetadata is the information encoded in an EdgeTX log filename
type FileMetadata struct {
	ModelName string `json:"modelName,omitempty" msgpack:"modelName"`
	LogDate   string `json:"logDate,omitempty" msgpack:"logDate"`
	LogTime   string `json:"logTime,omitempty" msgpack:"logTime"`
}

// NormalizedLog is the immutable result of ingesting one telemetry file.
// Entries must not be modified once the log has been built.
type NormalizedLog struct {
	Filename        string       `json:"filename"`
	Entries         []Entry      `json:"-"`
	NumericalFields []string     `json:"numericalFields"`
	Stats           FlightStats  `json:"stats"`
	Metadata        FileMetadata `json:"metadata"`
	Warnings        []Warning    `json:"warnings,omitempty"`
}

// Name returns the model name, falling back to the filename
func (l *NormalizedLog) Name() string {
	if l.Metadata.ModelName != "" {
		return l.Metadata.ModelName
	}
	return l.Filename
}

// Fields returns the header-ordered field names of the log
func (l *NormalizedLog) Fields() []string {
	if len(l.Entries) == 0 {
		return nil
	}
	return l.Entries[0].Keys()
}

// IsNumerical reports whether field was classified as numeric at ingest
func (l *NormalizedLog) IsNumerical(field string) bool {
	for _, f := range l.NumericalFields {
		if f == field {
			return true
		}
	}
	return false
}

// FieldStatistics represents statistical measures for one numeric field
type FieldStatistics struct {
	Field    string  `json:"field"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
	Median   float64 `json:"median"`
}
