package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	t.Run("assigns id and timestamp", func(t *testing.T) {
		j := NewJournal(nil, nil)
		event := j.Record(LogAdded, "MyDrone-2024-05-01-120000.csv", "")

		_, err := uuid.Parse(event.ID)
		assert.NoError(t, err)
		assert.False(t, event.Timestamp.IsZero())
		assert.Equal(t, []Event{event}, j.Recent())
	})

	t.Run("recent keeps the last 50", func(t *testing.T) {
		j := NewJournal(nil, nil)
		for i := 0; i < 60; i++ {
			j.Record(LogAdded, fmt.Sprintf("log-%d.csv", i), "")
		}
		recent := j.Recent()
		require.Len(t, recent, 50)
		assert.Equal(t, "log-10.csv", recent[0].Filename)
		assert.Equal(t, "log-59.csv", recent[49].Filename)
		assert.Equal(t, 60, j.Len())
	})

	t.Run("mirrors lines to the writer", func(t *testing.T) {
		var buf bytes.Buffer
		j := NewJournal(&buf, nil)
		ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		j.LogEvent(Event{Type: IngestFailed, Filename: "bad.csv", Detail: "file is empty", Timestamp: ts})
		j.LogEvent(Event{Type: LogsCleared, Timestamp: ts})

		assert.Equal(t,
			"[2024-05-01 12:00:00] INGEST_FAILED: bad.csv (file is empty)\n"+
				"[2024-05-01 12:00:00] LOGS_CLEARED: \n",
			buf.String())
	})
}

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenLogFile(dir)
	require.NoError(t, err)

	j := NewJournal(f, nil)
	j.Record(LogRemoved, "a.csv", "")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "=== Event Log Started at "))
	assert.True(t, strings.HasSuffix(lines[1], "LOG_REMOVED: a.csv"))
}

func TestHandlers(t *testing.T) {
	j := NewJournal(nil, nil)
	j.Record(LogAdded, "first.csv", "")
	j.Record(LogDuplicate, "first.csv", "")

	mux := http.NewServeMux()
	j.SetupHandlers(mux)

	t.Run("json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got []Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, LogAdded, got[0].Type)
	})

	t.Run("html newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/list", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Less(t, strings.Index(body, "Log Duplicate"), strings.Index(body, "Log Added"))
		assert.Contains(t, body, "bg-yellow-100")
	})

	t.Run("method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestEventsListEscapes(t *testing.T) {
	var buf bytes.Buffer
	err := EventsList([]Event{{Type: LogAdded, Filename: "<x>.csv"}}).Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "&lt;x&gt;.csv")

	buf.Reset()
	require.NoError(t, EventsList(nil).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "No events yet")
}

func TestFormatEventType(t *testing.T) {
	assert.Equal(t, "Ingest Failed", formatEventType(IngestFailed))
	assert.Equal(t, "bg-blue-100 text-blue-800", getEventTypeClass(LogSelected))
}
