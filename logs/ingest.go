package logs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/events"
)

const DefaultIngestConcurrency = 4

// File is one uploaded telemetry file
type File struct {
	Name string
	Text string
}

// IngestResult is the outcome for one file of IngestAll
type IngestResult struct {
	Filename string                  `json:"filename"`
	Summary  *Summary                `json:"summary,omitempty"`
	Warnings []data_analysis.Warning `json:"warnings,omitempty"`
	Err      error                   `json:"-"`
	Error    string                  `json:"error,omitempty"`
}

// Ingest builds a log from raw text and adds it to the session.
func (s *Session) Ingest(ctx context.Context, filename, text string) (Summary, []data_analysis.Warning, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, nil, err
	}

	log, err := data_analysis.BuildLog(filename, text, s.parseOptions())
	if err != nil {
		s.journal.Record(events.IngestFailed, filename, err.Error())
		s.logger.Warn("failed to ingest log", slog.String("filename", filename), slog.Any("error", err))
		return Summary{}, nil, err
	}

	for _, w := range log.Warnings {
		s.logger.Debug("data quality warning",
			slog.String("filename", filename),
			slog.String("kind", string(w.Kind)),
			slog.Int("count", w.Count),
			slog.Int("index", w.Index))
	}

	summary, err := s.AddLog(log)
	if err != nil {
		return Summary{}, log.Warnings, err
	}
	return summary, log.Warnings, nil
}

// IngestAll ingests independent files concurrently. A failing file does not
// stop the others; results are in input order.
func (s *Session) IngestAll(ctx context.Context, files []File, concurrency int) []IngestResult {
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}

	results := make([]IngestResult, len(files))
	var added atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(concurrency)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			summary, warnings, err := s.Ingest(ctx, f.Name, f.Text)
			result := IngestResult{Filename: f.Name, Warnings: warnings, Err: err}
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Summary = &summary
				added.Add(1)
			}
			results[i] = result
			return nil
		})
	}
	eg.Wait()

	s.logger.Info("ingested files",
		slog.Int("files", len(files)),
		slog.Int64("added", added.Load()))
	return results
}

// IsIngestError reports whether err was caused by the file content rather than the session.
func IsIngestError(err error) bool {
	return errors.Is(err, data_analysis.ErrEmptyDocument) || errors.Is(err, data_analysis.ErrNoValidFlightData)
}
