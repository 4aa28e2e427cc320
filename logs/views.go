package logs

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
)

// LogsTable renders the loaded logs with the selected one highlighted.
func LogsTable(summaries []Summary, selection Selection) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(summaries) == 0 {
			_, err := io.WriteString(w, `<p class="text-gray-500 text-sm">No logs loaded</p>`)
			return err
		}

		if _, err := io.WriteString(w, `<table class="min-w-full text-sm"><thead><tr><th>Model</th><th>Date</th><th>Entries</th><th>Size</th><th>Added</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, s := range summaries {
			class := "hover:bg-gray-50"
			if s.Filename == selection.Log {
				class = "bg-blue-50 font-semibold"
			}
			_, err := fmt.Fprintf(w,
				`<tr class="%s" data-file="%s" title="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				class,
				templ.EscapeString(s.Filename),
				templ.EscapeString(s.Filename),
				templ.EscapeString(s.Name),
				templ.EscapeString(orDash(s.Metadata.LogDate)),
				humanize.Comma(int64(s.Entries)),
				humanize.Bytes(uint64(s.BlobSize)),
				humanize.Time(s.AddedAt))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

// StatsPanel renders the flight statistics of one log.
func StatsPanel(log *data_analysis.NormalizedLog) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := [][2]string{
			{"Model", log.Name()},
			{"Date", orDash(log.Metadata.LogDate)},
			{"Entries", humanize.Comma(int64(len(log.Entries)))},
			{"Max distance", formatStat(log.Stats.MaxDistanceKm, 2, " km")},
			{"Max altitude", formatStat(log.Stats.MaxAltitudeM, 1, " m")},
			{"Min altitude", formatStat(log.Stats.MinAltitudeM, 1, " m")},
			{"Flight duration", formatStat(log.Stats.FlightDurationMinutes, 1, " min")},
			{"Most used mode", "N/A"},
		}
		if log.Stats.MostUsedMode != nil {
			rows[len(rows)-1][1] = *log.Stats.MostUsedMode
		}

		if _, err := io.WriteString(w, `<dl class="grid grid-cols-2 gap-1 text-sm">`); err != nil {
			return err
		}
		for _, row := range rows {
			_, err := fmt.Fprintf(w, `<dt class="text-gray-500">%s</dt><dd>%s</dd>`,
				templ.EscapeString(row[0]), templ.EscapeString(row[1]))
			if err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</dl>`); err != nil {
			return err
		}

		if len(log.Warnings) == 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<ul class="mt-2 text-xs text-orange-700">`); err != nil {
			return err
		}
		for _, warning := range log.Warnings {
			if _, err := fmt.Fprintf(w, `<li>%s</li>`, templ.EscapeString(warning.Message)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func formatStat(v *float64, digits int, unit string) string {
	if v == nil {
		return "N/A"
	}
	return humanize.FtoaWithDigits(*v, digits) + unit
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
