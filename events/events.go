package events

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// recentLimit is how many events Recent returns
const recentLimit = 50

// Journal records session events in memory and optionally mirrors them as
// lines to a writer.
type Journal struct {
	mutex  sync.Mutex
	events []Event
	out    io.Writer
	logger *slog.Logger
}

// NewJournal creates a journal. out may be nil.
func NewJournal(out io.Writer, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Journal{out: out, logger: logger}
}

// OpenLogFile creates a timestamped event log file in dir for use as a
// journal mirror.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(dir, fmt.Sprintf("events_%s.log", timestamp))

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "=== Event Log Started at %s ===\n", time.Now().Format("2006-01-02 15:04:05")); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write event log header: %w", err)
	}
	return f, nil
}

// LogEvent appends an event, assigning an ID and timestamp when missing.
func (j *Journal) LogEvent(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.events = append(j.events, event)

	if j.out == nil {
		return event
	}

	// Format: [timestamp] EVENT_TYPE: filename (detail)
	logLine := fmt.Sprintf("[%s] %s: %s",
		event.Timestamp.Format("2006-01-02 15:04:05"),
		strings.ToUpper(string(event.Type)),
		event.Filename)
	if event.Detail != "" {
		logLine += " (" + event.Detail + ")"
	}

	if _, err := io.WriteString(j.out, logLine+"\n"); err != nil {
		j.logger.Warn("failed to write event log line", slog.Any("error", err))
	}
	return event
}

// Record is shorthand for logging an event of type t about filename.
func (j *Journal) Record(t EventType, filename, detail string) Event {
	return j.LogEvent(Event{Type: t, Filename: filename, Detail: detail})
}

// Recent returns the recent events (last 50), oldest first
func (j *Journal) Recent() []Event {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	start := 0
	if len(j.events) > recentLimit {
		start = len(j.events) - recentLimit
	}
	return append([]Event(nil), j.events[start:]...)
}

func (j *Journal) Len() int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return len(j.events)
}
