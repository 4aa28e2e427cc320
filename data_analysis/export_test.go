package data_analysis

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type parsedGPX struct {
	Creator  string `xml:"creator,attr"`
	Metadata struct {
		Name string `xml:"name"`
		Desc string `xml:"desc"`
	} `xml:"metadata"`
	Tracks []struct {
		Name     string `xml:"name"`
		Segments []struct {
			Points []struct {
				Lat       string `xml:"lat,attr"`
				Lon       string `xml:"lon,attr"`
				Elevation string `xml:"ele"`
				Time      string `xml:"time"`
			} `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

type parsedKML struct {
	Document struct {
		Name        string `xml:"name"`
		Description string `xml:"description"`
		Style       struct {
			ID string `xml:"id,attr"`
		} `xml:"Style"`
		Placemark struct {
			Name       string `xml:"name"`
			StyleURL   string `xml:"styleUrl"`
			LineString struct {
				AltitudeMode string `xml:"altitudeMode"`
				Coordinates  string `xml:"coordinates"`
			} `xml:"LineString"`
		} `xml:"Placemark"`
	} `xml:"Document"`
}

func logFrom(t *testing.T, filename, text string) *NormalizedLog {
	t.Helper()
	log, err := BuildLog(filename, text, DefaultParseOptions)
	require.NoError(t, err)
	return log
}

func TestGenerateGPX(t *testing.T) {
	t.Run("track points", func(t *testing.T) {
		log := buildLog(t)
		out, err := GenerateGPX(log, 12.5)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(out), xml.Header))

		var doc parsedGPX
		require.NoError(t, xml.Unmarshal(out, &doc))
		assert.Equal(t, "EdgeTX Log Viewer", doc.Creator)
		assert.Equal(t, "MyDrone - Altitude Offset: 12.5m", doc.Metadata.Name)
		assert.Equal(t, "Flight log exported from EdgeTX Log Viewer", doc.Metadata.Desc)
		require.Len(t, doc.Tracks, 1)
		assert.Equal(t, "MyDrone", doc.Tracks[0].Name)
		require.Len(t, doc.Tracks[0].Segments, 1)

		points := doc.Tracks[0].Segments[0].Points
		require.Len(t, points, 3)
		assert.Equal(t, "22.50", points[0].Elevation)
		assert.Equal(t, "62.50", points[1].Elevation)
		assert.Equal(t, "2024-05-01T12:00:00.000Z", points[0].Time)
		assert.Equal(t, "2024-05-01T12:01:30.000Z", points[2].Time)
	})

	t.Run("coordinates round trip without drift", func(t *testing.T) {
		coords := [][2]float64{
			{46.123456789, 7.987654321},
			{-33.8688197, 151.2092955},
			{0.1, -0.3},
			{89.99999999999, -179.99999999999},
		}
		var b strings.Builder
		b.WriteString("GPS,Date,Time\n")
		for i, c := range coords {
			b.WriteString(strconv.FormatFloat(c[0], 'f', -1, 64) + " " + strconv.FormatFloat(c[1], 'f', -1, 64))
			b.WriteString(",2024-05-01,12:00:0" + strconv.Itoa(i) + "\n")
		}

		out, err := GenerateGPX(logFrom(t, "track.csv", b.String()), 0)
		require.NoError(t, err)

		var doc parsedGPX
		require.NoError(t, xml.Unmarshal(out, &doc))
		points := doc.Tracks[0].Segments[0].Points
		require.Len(t, points, len(coords))
		for i, p := range points {
			lat, err := strconv.ParseFloat(p.Lat, 64)
			require.NoError(t, err)
			lon, err := strconv.ParseFloat(p.Lon, 64)
			require.NoError(t, err)
			assert.Equal(t, coords[i][0], lat)
			assert.Equal(t, coords[i][1], lon)
			assert.Empty(t, p.Elevation, "no altitude column")
		}
	})

	t.Run("entries without a timestamp are skipped", func(t *testing.T) {
		log := logFrom(t, "untimed.csv", "GPS,Alt(m)\n1 1,5\n1 2,6\n")
		out, err := GenerateGPX(log, 0)
		require.NoError(t, err)
		assert.Contains(t, string(out), "<name>No GPS data found</name>")
		assert.NotContains(t, string(out), "<trk>")

		var doc parsedGPX
		require.NoError(t, xml.Unmarshal(out, &doc))
		assert.Equal(t, "No GPS data found", doc.Metadata.Name)
	})
}

func TestGenerateKML(t *testing.T) {
	t.Run("styled line string", func(t *testing.T) {
		out, err := GenerateKML(buildLog(t), 10)
		require.NoError(t, err)

		var doc parsedKML
		require.NoError(t, xml.Unmarshal(out, &doc))
		assert.Equal(t, "MyDrone - Altitude Offset: 10m", doc.Document.Name)
		assert.Equal(t, "flightPathStyle", doc.Document.Style.ID)
		assert.Equal(t, "#flightPathStyle", doc.Document.Placemark.StyleURL)
		assert.Equal(t, "absolute", doc.Document.Placemark.LineString.AltitudeMode)
		assert.Equal(t,
			"7,46,20.00 7.0001,46.0001,60.00 7.0002,46.0002,40.00",
			doc.Document.Placemark.LineString.Coordinates)
		assert.Contains(t, string(out), "<color>ff007eff</color>")
		assert.Contains(t, string(out), "<width>4</width>")
		assert.Contains(t, string(out), "<color>7f007eff</color>")
	})

	t.Run("missing altitude exports zero", func(t *testing.T) {
		out, err := GenerateKML(logFrom(t, "noalt.csv", "GPS\n1.5 2.5\n"), 100)
		require.NoError(t, err)
		assert.Contains(t, string(out), "<coordinates>2.5,1.5,0.00</coordinates>")
		assert.Contains(t, string(out), "<name>noalt - Altitude Offset: 100m</name>")
	})

	t.Run("placeholder without GPS", func(t *testing.T) {
		out, err := GenerateKML(&NormalizedLog{Filename: "empty.csv"}, 0)
		require.NoError(t, err)
		assert.Contains(t, string(out), "No GPS data found")

		var doc parsedKML
		require.NoError(t, xml.Unmarshal(out, &doc))
		assert.Equal(t, "No GPS data found", doc.Document.Name)
		assert.NotContains(t, string(out), "Placemark")
	})
}

func TestResolveTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	keys := []string{"date", "time", "timestamp", "dateTime", "timeMs"}

	cases := []struct {
		name   string
		values map[string]Value
		want   time.Time
		ok     bool
	}{
		{"date and time", map[string]Value{"date": StringValue("2024-05-01"), "time": StringValue("12:00:00")}, want, true},
		{"time with zone", map[string]Value{"date": StringValue("2024-05-01"), "time": StringValue("14:00:00+02:00")}, want, true},
		{"epoch seconds", map[string]Value{"timestamp": NumberValue(float64(want.Unix()))}, want, true},
		{"epoch milliseconds", map[string]Value{"timeMs": NumberValue(float64(want.UnixMilli()))}, want, true},
		{"iso string", map[string]Value{"dateTime": StringValue("2024-05-01T12:00:00Z")}, want, true},
		{"first alias wins", map[string]Value{"timestamp": StringValue("junk"), "timeMs": NumberValue(float64(want.UnixMilli()))}, time.Time{}, false},
		{"nothing usable", map[string]Value{"date": StringValue("2024-05-01")}, time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveTimestamp(NewEntry(keys, tc.values))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, tc.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "MyDrone-2024-05-01-120000_offset_10m.gpx",
		ExportFilename("MyDrone-2024-05-01-120000.csv", 10, FormatGPX))
	assert.Equal(t, "my_log__1__offset_-2.5m.kml",
		ExportFilename("my log (1).csv", -2.5, FormatKML))
	assert.Equal(t, "noext_offset_0m.zip", ExportFilename("noext", 0, FormatZIP))
}

func TestParseExportFormat(t *testing.T) {
	for _, s := range []string{"gpx", "KML", " xlsx ", "zip"} {
		_, err := ParseExportFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseExportFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "application/gpx+xml", FormatGPX.ContentType())
	assert.Equal(t, "application/vnd.google-earth.kml+xml", FormatKML.ContentType())
}

func TestGenerateWorkbook(t *testing.T) {
	out, err := GenerateWorkbook(buildLog(t), 5)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(entriesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Time", "RSSI 1", "RX Link Quality", "Latitude", "Longitude"}, rows[0][:6])
	assert.Equal(t, "Time Delta", rows[0][len(rows[0])-1])
	assert.Equal(t, "46", rows[1][4])
	assert.Equal(t, "30000", rows[1][len(rows[1])-1])

	model, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "MyDrone", model)
	maxAlt, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "50", maxAlt)
}

func TestGenerateBundle(t *testing.T) {
	out, err := GenerateBundle(buildLog(t), 0)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	base := "MyDrone-2024-05-01-120000_offset_0m."
	assert.Equal(t, []string{base + "gpx", base + "kml", base + "xlsx", base + "csv"}, names)

	rc, err := r.File[3].Open()
	require.NoError(t, err)
	defer rc.Close()
	csvData, err := io.ReadAll(rc)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,time,1Rss,rqly,gpsLat,gpsLon,alt,gspd,fm,rxBt,timeMs,timeDeltaMs", lines[0])
	assert.Equal(t, "2024-05-01,12:00:00.000,-60,100,46,7,10,0,ANGL,16.1,1714564800000,30000", lines[1])
}
