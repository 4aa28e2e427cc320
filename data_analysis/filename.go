package data_analysis

import (
	"regexp"
	"strings"
)

var (
	csvExtension = regexp.MustCompile(`(?i)\.csv$`)
	logDate      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	logTime      = regexp.MustCompile(`^\d{6}$`)
)

// ParseFilename extracts the model name, date and time from an EdgeTX log filename of
// the form <model>-<YYYY>-<MM>-<DD>-<HHMMSS>.csv. Any other name becomes the model name
// with the extension removed, and ok is false.
func ParseFilename(filename string) (meta FileMetadata, ok bool) {
	base := csvExtension.ReplaceAllString(filename, "")
	parts := strings.Split(base, "-")
	if len(parts) < 5 {
		return FileMetadata{ModelName: base}, false
	}

	n := len(parts)
	date := strings.Join(parts[n-4:n-1], "-")
	clock := parts[n-1]
	if !logDate.MatchString(date) || !logTime.MatchString(clock) {
		return FileMetadata{ModelName: base}, false
	}

	return FileMetadata{
		ModelName: strings.Join(parts[:n-4], "-"),
		LogDate:   date,
		LogTime:   clock,
	}, true
}
