package events

import "time"

type EventType string

const (
	LogAdded     EventType = "log_added"
	LogDuplicate EventType = "log_duplicate"
	LogRemoved   EventType = "log_removed"
	LogsCleared  EventType = "logs_cleared"
	IngestFailed EventType = "ingest_failed"
	LogExported  EventType = "log_exported"
	LogSelected  EventType = "log_selected"
)

type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Filename  string    `json:"filename,omitempty"` // log the event refers to, empty for session wide events
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
