package data_analysis

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	entriesSheet = "Entries"
	summarySheet = "Summary"
)

// GenerateWorkbook renders the log as an xlsx workbook with an Entries sheet holding every
// normalized entry and a Summary sheet with the file metadata and flight statistics
func GenerateWorkbook(log *NormalizedLog, offset float64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeEntriesSheet(f, log); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, log, offset); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntriesSheet(f *excelize.File, log *NormalizedLog) error {
	sw, err := f.NewStreamWriter(entriesSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	columns := entryColumns(log)
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = FieldTitle(col)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, e := range log.Entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, entryRow(e, columns)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush entries sheet: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, log *NormalizedLog, offset float64) error {
	rows := [][]any{
		{"Filename", log.Filename},
		{"Model", log.Name()},
		{"Log date", log.Metadata.LogDate},
		{"Log time", log.Metadata.LogTime},
		{"Entries", len(log.Entries)},
		{"Altitude offset (m)", offset},
		{"Max distance (km)", optional(log.Stats.MaxDistanceKm)},
		{"Max altitude (m)", optional(log.Stats.MaxAltitudeM)},
		{"Min altitude (m)", optional(log.Stats.MinAltitudeM)},
		{"Flight duration (min)", optional(log.Stats.FlightDurationMinutes)},
		{"Most used mode", optional(log.Stats.MostUsedMode)},
	}

	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}
	return nil
}

// optional returns the pointed-to value, or "N/A" for an unknown statistic
func optional[T any](v *T) any {
	if v == nil {
		return "N/A"
	}
	return *v
}
