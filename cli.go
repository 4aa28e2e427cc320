package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "edgetx-log-viewer",
		Short: "EdgeTX telemetry log viewer",
		Long: `Parses EdgeTX telemetry CSV logs, derives flight statistics and
exports tracks as GPX, KML or spreadsheets. The serve command runs the
viewer backend with upload, playback and export endpoints.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	setDefaults(v)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.edgetx-log-viewer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-dir", "", "write rotating JSON logs and the event log to this directory")
	bindFlag(v, rootCmd, "log.level", "log-level")
	bindFlag(v, rootCmd, "log.dir", "log-dir")

	rootCmd.AddCommand(newServeCmd(v), newStatsCmd(v), newExportCmd(v))
	return rootCmd
}

func readLog(path string) (*data_analysis.NormalizedLog, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read log file: %w", err)
	}
	log, err := data_analysis.BuildLog(filepath.Base(path), string(data), data_analysis.DefaultParseOptions)
	if err != nil {
		return nil, 0, err
	}
	return log, int64(len(data)), nil
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <file.csv>",
		Short: "Print flight statistics of a log",
		Long: `Print the flight statistics, data-quality warnings and flight mode
segments of an EdgeTX telemetry log.

Examples:
  edgetx-log-viewer stats MyDrone-2024-05-01-120000.csv
  edgetx-log-viewer stats flight.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, size, err := readLog(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"log":      log,
					"entries":  len(log.Entries),
					"segments": data_analysis.ModeSegments(log.Entries),
				})
			}
			return printStats(cmd.OutOrStdout(), log, size)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printStats(w io.Writer, log *data_analysis.NormalizedLog, size int64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "File:\t%s (%s)\n", log.Filename, humanize.Bytes(uint64(size)))
	fmt.Fprintf(tw, "Model:\t%s\n", log.Name())
	if log.Metadata.LogDate != "" {
		fmt.Fprintf(tw, "Recorded:\t%s %s\n", log.Metadata.LogDate, log.Metadata.LogTime)
	}
	fmt.Fprintf(tw, "Entries:\t%s\n", humanize.Comma(int64(len(log.Entries))))
	fmt.Fprintf(tw, "Max distance:\t%s\n", statString(log.Stats.MaxDistanceKm, "km"))
	fmt.Fprintf(tw, "Max altitude:\t%s\n", statString(log.Stats.MaxAltitudeM, "m"))
	fmt.Fprintf(tw, "Min altitude:\t%s\n", statString(log.Stats.MinAltitudeM, "m"))
	fmt.Fprintf(tw, "Flight duration:\t%s\n", statString(log.Stats.FlightDurationMinutes, "min"))
	mode := "N/A"
	if log.Stats.MostUsedMode != nil {
		mode = *log.Stats.MostUsedMode
	}
	fmt.Fprintf(tw, "Most used mode:\t%s\n", mode)

	if len(log.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWarnings:")
		for _, warning := range log.Warnings {
			fmt.Fprintf(tw, "  %s\t%s\n", warning.Kind, warning.Message)
		}
	}

	if segments := data_analysis.ModeSegments(log.Entries); len(segments) > 0 {
		fmt.Fprintln(tw, "\nMode segments:")
		for _, s := range segments {
			fmt.Fprintf(tw, "  %s\tentries %d-%d\t%d points\n", s.Mode, s.StartIndex, s.EndIndex, len(s.Points))
		}
	}
	return tw.Flush()
}

func statString(v *float64, unit string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%s %s", humanize.Ftoa(*v), unit)
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	var format, outDir string

	cmd := &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Export a log as GPX, KML, XLSX or a zip bundle",
		Long: `Export the normalized track of an EdgeTX telemetry log. The altitude
offset is added to every exported altitude.

Examples:
  edgetx-log-viewer export MyDrone-2024-05-01-120000.csv --format kml --offset 12.5
  edgetx-log-viewer export flight.csv --format zip --out exports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := data_analysis.ParseExportFormat(format)
			if err != nil {
				return err
			}
			offset := v.GetFloat64("export.offset")

			log, _, err := readLog(args[0])
			if err != nil {
				return err
			}

			data, err := data_analysis.Export(log, exportFormat, offset)
			if err != nil {
				return fmt.Errorf("failed to generate export: %w", err)
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outDir, data_analysis.ExportFilename(log.Filename, offset, exportFormat))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(data_analysis.FormatGPX), "export format: gpx, kml, xlsx, zip")
	cmd.Flags().Float64("offset", 0, "altitude offset in meters")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	bindFlag(v, cmd, "export.offset", "offset")
	return cmd
}
