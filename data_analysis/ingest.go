package data_analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned for a file without any content lines
	ErrEmptyDocument = errors.New("file is empty or incorrectly formatted")
	// ErrNoValidFlightData is returned when no record has a usable GPS fix
	ErrNoValidFlightData = errors.New("file contained no valid flight data")
)

// BuildLog runs the full ingestion pipeline for one file: parse, classify numerical
// fields on the first raw record, normalize, compute statistics and read the filename
// metadata. Returned errors wrap ErrEmptyDocument or ErrNoValidFlightData.
func BuildLog(filename, text string, options ParseOptions) (*NormalizedLog, error) {
	raw, warnings := ParseCSV(text, options)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrEmptyDocument)
	}

	numerical := NumericalFields(raw[0])

	entries, normWarnings, err := NormalizeEntries(raw)
	warnings = append(warnings, normWarnings...)
	if err != nil {
		if errors.Is(err, ErrNoValidEntries) {
			return nil, fmt.Errorf("%s: %w", filename, ErrNoValidFlightData)
		}
		return nil, fmt.Errorf("%s: failed to normalize entries: %w", filename, err)
	}

	meta, ok := ParseFilename(filename)
	if !ok {
		warnings = append(warnings, Warning{
			Kind:    WarnFilenameFormat,
			Index:   -1,
			Message: fmt.Sprintf("filename %q does not match <model>-YYYY-MM-DD-HHMMSS.csv", filename),
		})
	}

	return &NormalizedLog{
		Filename:        filename,
		Entries:         entries,
		NumericalFields: numerical,
		Stats:           CalculateFlightStats(entries),
		Metadata:        meta,
		Warnings:        warnings,
	}, nil
}
