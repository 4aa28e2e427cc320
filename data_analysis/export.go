package data_analysis

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	exportCreator     = "EdgeTX Log Viewer"
	exportDescription = "Flight log exported from EdgeTX Log Viewer"
	noGPSData         = "No GPS data found"
	kmlStyleID        = "flightPathStyle"
	gpxTimeLayout     = "2006-01-02T15:04:05.000Z"
)

// ExportFormat is a downloadable representation of a log
type ExportFormat string

const (
	FormatGPX  ExportFormat = "gpx"
	FormatKML  ExportFormat = "kml"
	FormatXLSX ExportFormat = "xlsx"
	FormatZIP  ExportFormat = "zip"
)

// ParseExportFormat validates a format name, case-insensitively
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatGPX, FormatKML, FormatXLSX, FormatZIP:
		return f, nil
	}
	return "", fmt.Errorf("invalid export format %q, use gpx, kml, xlsx or zip", s)
}

// ContentType returns the MIME type served for the format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatZIP:
		return "application/zip"
	}
	return "application/octet-stream"
}

// Export renders the log in the requested format with the altitude offset applied
func Export(log *NormalizedLog, format ExportFormat, offset float64) ([]byte, error) {
	switch format {
	case FormatGPX:
		return GenerateGPX(log, offset)
	case FormatKML:
		return GenerateKML(log, offset)
	case FormatXLSX:
		return GenerateWorkbook(log, offset)
	case FormatZIP:
		return GenerateBundle(log, offset)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// ExportFilename builds the download name <base>_offset_<offset>m.<ext>, where base is
// the log filename without its extension and with unsafe characters replaced
func ExportFilename(filename string, offset float64, format ExportFormat) string {
	base := filename
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 && !strings.Contains(base[i:], "/") {
		base = base[:i]
	}
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%s_offset_%sm.%s", base, formatNumber(offset), format)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func exportTitle(log *NormalizedLog, offset float64) string {
	return fmt.Sprintf("%s - Altitude Offset: %sm", log.Name(), formatNumber(offset))
}

type gpxDocument struct {
	XMLName        xml.Name    `xml:"gpx"`
	Version        string      `xml:"version,attr"`
	Creator        string      `xml:"creator,attr"`
	Xmlns          string      `xml:"xmlns,attr,omitempty"`
	XmlnsXsi       string      `xml:"xmlns:xsi,attr,omitempty"`
	SchemaLocation string      `xml:"xsi:schemaLocation,attr,omitempty"`
	Metadata       gpxMetadata `xml:"metadata"`
	Tracks         []gpxTrack  `xml:"trk"`
}

type gpxMetadata struct {
	Name string `xml:"name"`
	Desc string `xml:"desc,omitempty"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat       string `xml:"lat,attr"`
	Lon       string `xml:"lon,attr"`
	Elevation string `xml:"ele,omitempty"`
	Time      string `xml:"time"`
}

// GenerateGPX renders a GPX 1.1 track with one point per entry that has a GPS fix and a
// resolvable timestamp. Elevation is the altitude plus offset when the entry has one.
func GenerateGPX(log *NormalizedLog, offset float64) ([]byte, error) {
	var points []gpxPoint
	for _, e := range log.Entries {
		c, ok := e.GPS()
		if !ok {
			continue
		}
		t, ok := ResolveTimestamp(e)
		if !ok {
			continue
		}

		point := gpxPoint{
			Lat:  formatNumber(c.Lat),
			Lon:  formatNumber(c.Long),
			Time: t.UTC().Format(gpxTimeLayout),
		}
		if alt, ok := e.Altitude(); ok {
			point.Elevation = strconv.FormatFloat(alt+offset, 'f', 2, 64)
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return marshalXML(gpxDocument{
			Version:  "1.1",
			Creator:  exportCreator,
			Metadata: gpxMetadata{Name: noGPSData},
		}, false)
	}

	return marshalXML(gpxDocument{
		Version:        "1.1",
		Creator:        exportCreator,
		Xmlns:          "http://www.topografix.com/GPX/1/1",
		XmlnsXsi:       "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd",
		Metadata: gpxMetadata{
			Name: exportTitle(log, offset),
			Desc: exportDescription,
		},
		Tracks: []gpxTrack{{
			Name:     log.Name(),
			Segments: []gpxSegment{{Points: points}},
		}},
	}, true)
}

type kmlDocument struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr"`
	Document kmlBody  `xml:"Document"`
}

type kmlBody struct {
	Name        string        `xml:"name"`
	Description string        `xml:"description,omitempty"`
	Style       *kmlStyle     `xml:"Style,omitempty"`
	Placemark   *kmlPlacemark `xml:"Placemark,omitempty"`
}

type kmlStyle struct {
	ID        string `xml:"id,attr"`
	LineStyle struct {
		Color string `xml:"color"`
		Width int    `xml:"width"`
	} `xml:"LineStyle"`
	PolyStyle struct {
		Color string `xml:"color"`
	} `xml:"PolyStyle"`
}

type kmlPlacemark struct {
	Name       string        `xml:"name"`
	StyleURL   string        `xml:"styleUrl"`
	LineString kmlLineString `xml:"LineString"`
}

type kmlLineString struct {
	Extrude      int    `xml:"extrude"`
	Tessellate   int    `xml:"tessellate"`
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

// GenerateKML renders a KML 2.2 document with a single styled line string through every
// GPS fix. Altitude is the altitude plus offset, or 0 when the entry has none.
func GenerateKML(log *NormalizedLog, offset float64) ([]byte, error) {
	coordinates := make([]string, 0, len(log.Entries))
	for _, e := range log.Entries {
		c, ok := e.GPS()
		if !ok {
			continue
		}
		alt := 0.0
		if a, ok := e.Altitude(); ok {
			alt = a + offset
		}
		coordinates = append(coordinates, fmt.Sprintf("%s,%s,%s",
			formatNumber(c.Long), formatNumber(c.Lat), strconv.FormatFloat(alt, 'f', 2, 64)))
	}

	doc := kmlDocument{Xmlns: "http://www.opengis.net/kml/2.2"}
	if len(coordinates) == 0 {
		doc.Document.Name = noGPSData
		return marshalXML(doc, true)
	}

	style := &kmlStyle{ID: kmlStyleID}
	style.LineStyle.Color = "ff007eff"
	style.LineStyle.Width = 4
	style.PolyStyle.Color = "7f007eff"

	doc.Document = kmlBody{
		Name:        exportTitle(log, offset),
		Description: exportDescription,
		Style:       style,
		Placemark: &kmlPlacemark{
			Name:     log.Name(),
			StyleURL: "#" + kmlStyleID,
			LineString: kmlLineString{
				Extrude:      1,
				Tessellate:   1,
				AltitudeMode: "absolute",
				Coordinates:  strings.Join(coordinates, " "),
			},
		},
	}
	return marshalXML(doc, true)
}

func marshalXML(v any, indent bool) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if indent {
		body, err = xml.MarshalIndent(v, "", "  ")
	} else {
		body, err = xml.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// GenerateEntriesCSV writes the normalized entries back out as CSV with the derived
// time columns appended. The gps column is split into gpsLat and gpsLon.
func GenerateEntriesCSV(log *NormalizedLog) ([]byte, error) {
	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	columns := entryColumns(log)
	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range log.Entries {
		row := make([]string, len(columns))
		for i, cell := range entryRow(e, columns) {
			row[i] = cellString(cell)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	columnGPSLat      = "gpsLat"
	columnGPSLon      = "gpsLon"
	columnTimeMs      = "timeMs"
	columnTimeDeltaMs = "timeDeltaMs"
)

// entryColumns lists the export columns: header fields with gps expanded, then derived times
func entryColumns(log *NormalizedLog) []string {
	var columns []string
	for _, f := range log.Fields() {
		if f == GPSField {
			columns = append(columns, columnGPSLat, columnGPSLon)
			continue
		}
		columns = append(columns, f)
	}
	return append(columns, columnTimeMs, columnTimeDeltaMs)
}

// entryRow returns one cell per column, nil where the entry has no value
func entryRow(e Entry, columns []string) []any {
	row := make([]any, len(columns))
	c, hasGPS := e.GPS()
	for i, col := range columns {
		switch col {
		case columnGPSLat:
			if hasGPS {
				row[i] = c.Lat
			}
		case columnGPSLon:
			if hasGPS {
				row[i] = c.Long
			}
		case columnTimeMs:
			if e.HasTime {
				row[i] = e.TimeMs
			}
		case columnTimeDeltaMs:
			row[i] = e.TimeDeltaMs
		default:
			if v, ok := e.Get(col); ok {
				row[i] = v.Interface()
			}
		}
	}
	return row
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case float64:
		return formatNumber(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	}
	return fmt.Sprint(cell)
}

// GenerateBundle packs the GPX, KML, workbook and entries CSV exports into one zip archive
func GenerateBundle(log *NormalizedLog, offset float64) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	files := []struct {
		format   ExportFormat
		generate func() ([]byte, error)
	}{
		{FormatGPX, func() ([]byte, error) { return GenerateGPX(log, offset) }},
		{FormatKML, func() ([]byte, error) { return GenerateKML(log, offset) }},
		{FormatXLSX, func() ([]byte, error) { return GenerateWorkbook(log, offset) }},
		{"csv", func() ([]byte, error) { return GenerateEntriesCSV(log) }},
	}

	for _, file := range files {
		data, err := file.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s export: %w", file.format, err)
		}
		name := ExportFilename(log.Filename, offset, file.format)
		f, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s in zip: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}
