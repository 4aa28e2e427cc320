package logs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/events"
)

// Selection is the log and color field the viewer is focused on. Empty means none.
type Selection struct {
	Log   string `json:"log"`
	Field string `json:"field"`
}

// Session is the log collection of one viewer together with its selection state.
type Session struct {
	store   Store
	journal *events.Journal
	logger  *slog.Logger
	options data_analysis.ParseOptions

	mutex     sync.RWMutex
	selection Selection
}

// NewSession wraps a store. journal and logger may be nil.
func NewSession(store Store, journal *events.Journal, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if journal == nil {
		journal = events.NewJournal(nil, logger)
	}
	return &Session{
		store:   store,
		journal: journal,
		logger:  logger,
		options: data_analysis.DefaultParseOptions,
	}
}

func (s *Session) Journal() *events.Journal { return s.journal }

// SetParseOptions changes how subsequently ingested files are parsed
func (s *Session) SetParseOptions(options data_analysis.ParseOptions) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.options = options
}

func (s *Session) parseOptions() data_analysis.ParseOptions {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.options
}

// AddLog stores a built log and selects it. A filename that is already loaded
// is left unchanged and ErrAlreadyLoaded is returned.
func (s *Session) AddLog(log *data_analysis.NormalizedLog) (Summary, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	summary, err := s.store.Put(log)
	if errors.Is(err, ErrAlreadyLoaded) {
		s.journal.Record(events.LogDuplicate, log.Filename, "")
		s.logger.Info("log already loaded", slog.String("filename", log.Filename))
		return Summary{}, err
	}
	if err != nil {
		return Summary{}, fmt.Errorf("failed to store log: %w", err)
	}

	s.selectLocked(log)
	s.journal.Record(events.LogAdded, log.Filename, fmt.Sprintf("%d entries", len(log.Entries)))
	s.logger.Info("log added",
		slog.String("filename", log.Filename),
		slog.String("id", summary.ID),
		slog.Int("entries", summary.Entries),
		slog.Int("warnings", summary.Warnings))
	return summary, nil
}

// RemoveLog drops a log, clearing the selection if it was the selected one.
func (s *Session) RemoveLog(filename string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.store.Delete(filename); err != nil {
		return err
	}
	if s.selection.Log == filename {
		s.selection = Selection{}
	}

	s.journal.Record(events.LogRemoved, filename, "")
	s.logger.Info("log removed", slog.String("filename", filename))
	return nil
}

// Clear drops every log and the selection.
func (s *Session) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.store.Clear(); err != nil {
		return err
	}
	s.selection = Selection{}

	s.journal.Record(events.LogsCleared, "", "")
	s.logger.Info("logs cleared")
	return nil
}

// SelectLog focuses a loaded log. The selected field survives only if it is
// numerical in the new log.
func (s *Session) SelectLog(filename string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	log, err := s.store.Get(filename)
	if err != nil {
		return err
	}
	s.selectLocked(log)

	s.journal.Record(events.LogSelected, filename, "")
	return nil
}

func (s *Session) selectLocked(log *data_analysis.NormalizedLog) {
	s.selection.Log = log.Filename
	if s.selection.Field != "" && !log.IsNumerical(s.selection.Field) {
		s.selection.Field = ""
	}
}

// SelectField sets the color-by field of the selected log; "" clears it.
func (s *Session) SelectField(field string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.selection.Log == "" {
		return ErrNoSelection
	}
	if field != "" {
		log, err := s.store.Get(s.selection.Log)
		if err != nil {
			return err
		}
		if !log.IsNumerical(field) {
			return fmt.Errorf("%s: %w", field, ErrFieldNotNumerical)
		}
	}
	s.selection.Field = field
	return nil
}

func (s *Session) Selection() Selection {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.selection
}

// SelectedLog returns the selected log or ErrNoSelection.
func (s *Session) SelectedLog() (*data_analysis.NormalizedLog, error) {
	selection := s.Selection()
	if selection.Log == "" {
		return nil, ErrNoSelection
	}
	return s.store.Get(selection.Log)
}

func (s *Session) Log(filename string) (*data_analysis.NormalizedLog, error) {
	return s.store.Get(filename)
}

func (s *Session) Logs() ([]Summary, error) {
	return s.store.List()
}

func (s *Session) Close() error {
	return s.store.Close()
}
