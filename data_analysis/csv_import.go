package data_analysis

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kaireichart/edgetx-log-viewer/gps"
)

// ParseOptions configures the record parser
type ParseOptions struct {
	Delimiter rune
}

// DefaultParseOptions matches the EdgeTX SD card log format
var DefaultParseOptions = ParseOptions{Delimiter: ','}

// ParseCSV parses EdgeTX telemetry text into one entry per non-blank content line.
// Header names are canonicalized with CanonicalFieldName, values are coerced to
// numbers, strings or GPS coordinates. A header-only or empty document yields no entries.
func ParseCSV(text string, options ParseOptions) ([]Entry, []Warning) {
	delimiter := string(options.Delimiter)
	if options.Delimiter == 0 {
		delimiter = ","
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	headerFields := strings.Split(strings.TrimSuffix(lines[0], "\r"), delimiter)
	columns := make([]string, len(headerFields))
	for i, h := range headerFields {
		columns[i] = CanonicalFieldName(h)
	}
	// a repeated header keeps its first position and takes the last column's value
	keys := make([]string, 0, len(columns))
	for _, c := range columns {
		if !slices.Contains(keys, c) {
			keys = append(keys, c)
		}
	}

	var entries []Entry
	short := Warning{Kind: WarnShortRecord, Index: -1}
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(fields) < len(columns) {
			if short.Count == 0 {
				short.Index = len(entries)
			}
			short.Count++
		}

		values := make(map[string]Value, len(keys))
		for i, key := range columns {
			if i >= len(fields) {
				break
			}
			values[key] = coerceValue(key, fields[i])
		}
		entries = append(entries, NewEntry(keys, values))
	}

	var warnings []Warning
	if short.Count > 0 {
		short.Message = fmt.Sprintf("%d records have fewer fields than the header", short.Count)
		warnings = append(warnings, short)
	}
	return entries, warnings
}

// coerceValue strips surrounding quotes and converts the raw text to a typed value
func coerceValue(key, raw string) Value {
	raw = strings.TrimPrefix(raw, `"`)
	raw = strings.TrimSuffix(raw, `"`)

	if key == GPSField {
		if c, err := gps.ParseCoordinate(raw); err == nil {
			return CoordinateValue(c)
		}
		// kept as text so the normalizer can drop the record
		return StringValue(raw)
	}

	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return NumberValue(f)
		}
	}
	return StringValue(raw)
}

var (
	parenthesized      = regexp.MustCompile(`\(.*?\)`)
	leadingSeparators  = regexp.MustCompile(`^[_.\- ]+`)
	separatorsAndIdent = regexp.MustCompile(`[_.\- ]+([\p{L}\p{Nl}\p{N}_]|$)`)
	numbersAndIdent    = regexp.MustCompile(`\d+([\p{L}\p{Nl}\p{N}_]|$)`)
)

const separatorCharacters = "_.- "

// CanonicalFieldName turns an EdgeTX column header into the field key used throughout
// the viewer: the parenthesized unit suffix is removed and the rest is camel-cased,
// e.g. "GPS" -> "gps", "RxBt(V)" -> "rxBt", "1RSS(dB)" -> "1Rss", "Alt(m)" -> "alt".
func CanonicalFieldName(header string) string {
	s := strings.TrimSpace(parenthesized.ReplaceAllString(header, ""))
	if s == "" {
		return ""
	}

	if utf8.RuneCountInString(s) == 1 {
		if strings.ContainsAny(s, separatorCharacters) {
			return ""
		}
		return strings.ToLower(s)
	}

	if s != strings.ToLower(s) {
		s = preserveCamelCase(s)
	}

	s = leadingSeparators.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	return upperAfterBoundaries(s)
}

// preserveCamelCase inserts a dash at every lower-to-upper transition and before the
// last capital of an upper-case run that is followed by a lower-case letter
func preserveCamelCase(s string) string {
	runes := []rune(s)
	var lastLower, lastUpper, lastLastUpper bool

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		lastLastPreserved := true
		if i > 2 {
			lastLastPreserved = runes[i-3] == '-'
		}

		switch {
		case lastLower && isUpper(r):
			runes = slices.Insert(runes, i, '-')
			lastLower = false
			lastLastUpper = lastUpper
			lastUpper = true
			i++
		case lastUpper && lastLastUpper && isLower(r) && !lastLastPreserved:
			runes = slices.Insert(runes, i-1, '-')
			lastLastUpper = lastUpper
			lastUpper = false
			lastLower = true
		default:
			lastLower = isLower(r)
			lastLastUpper = lastUpper
			lastUpper = isUpper(r)
		}
	}
	return string(runes)
}

func isUpper(r rune) bool { return unicode.ToUpper(r) == r && unicode.ToLower(r) != r }

func isLower(r rune) bool { return unicode.ToLower(r) == r && unicode.ToUpper(r) != r }

// upperAfterBoundaries upper-cases the character after a digit run and drops separators,
// upper-casing the character that follows them
func upperAfterBoundaries(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range numbersAndIdent.FindAllStringIndex(s, -1) {
		b.WriteString(s[last:loc[0]])
		match := s[loc[0]:loc[1]]
		if loc[1] < len(s) && (s[loc[1]] == '_' || s[loc[1]] == '-') {
			b.WriteString(match)
		} else {
			b.WriteString(strings.ToUpper(match))
		}
		last = loc[1]
	}
	b.WriteString(s[last:])

	return separatorsAndIdent.ReplaceAllStringFunc(b.String(), func(m string) string {
		return strings.ToUpper(strings.TrimLeft(m, separatorCharacters))
	})
}
