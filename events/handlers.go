package events

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

func (j *Journal) SetupHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/events", j.handleEvents)
	mux.HandleFunc("/events/list", j.handleEventsList)
}

func (j *Journal) handleEventsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Newest first
	eventsList := j.Recent()
	slices.Reverse(eventsList)

	w.Header().Set("Content-Type", "text/html")
	err := EventsList(eventsList).Render(r.Context(), w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (j *Journal) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(j.Recent())
}

// Helper functions for templates

func formatEventType(eventType EventType) string {
	parts := strings.Split(string(eventType), "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}

func getEventTypeClass(eventType EventType) string {
	switch eventType {
	case LogAdded:
		return "bg-green-100 text-green-800"
	case LogRemoved, LogsCleared:
		return "bg-red-100 text-red-800"
	case IngestFailed:
		return "bg-orange-100 text-orange-800"
	case LogDuplicate:
		return "bg-yellow-100 text-yellow-800"
	case LogExported:
		return "bg-indigo-100 text-indigo-800"
	default:
		return "bg-blue-100 text-blue-800"
	}
}
