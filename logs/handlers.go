package logs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/events"
)

// HandlerOptions configures the HTTP surface of a session
type HandlerOptions struct {
	MaxUploadBytes    int64
	IngestConcurrency int
	DefaultOffset     float64
}

const DefaultMaxUploadBytes = 32 << 20

type handlers struct {
	session *Session
	options HandlerOptions
}

func SetupHandlers(mux *http.ServeMux, session *Session, options HandlerOptions) {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = DefaultMaxUploadBytes
	}
	h := &handlers{session: session, options: options}

	mux.HandleFunc("/logs", h.handleList)
	mux.HandleFunc("/logs/table", h.handleTable)
	mux.HandleFunc("/logs/upload", h.handleUpload)
	mux.HandleFunc("/logs/stats", h.handleStats)
	mux.HandleFunc("/logs/stats/panel", h.handleStatsPanel)
	mux.HandleFunc("/logs/entries", h.handleEntries)
	mux.HandleFunc("/logs/segments", h.handleSegments)
	mux.HandleFunc("/logs/field-stats", h.handleFieldStats)
	mux.HandleFunc("/logs/select", h.handleSelect)
	mux.HandleFunc("/logs/remove", h.handleRemove)
	mux.HandleFunc("/logs/clear", h.handleClear)
	mux.HandleFunc("/logs/export", h.handleExport)
}

// statusFor maps session and ingestion errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAlreadyLoaded):
		return http.StatusConflict
	case errors.Is(err, ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoSelection), errors.Is(err, ErrFieldNotNumerical), IsIngestError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// requestedLog returns the log named by the file parameter, or the selected log
func (h *handlers) requestedLog(r *http.Request) (*data_analysis.NormalizedLog, error) {
	if filename := r.URL.Query().Get("file"); filename != "" {
		return h.session.Log(filename)
	}
	return h.session.SelectedLog()
}

func (h *handlers) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries, err := h.session.Logs()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list logs: %v", err), http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}

	writeJSON(w, map[string]any{
		"logs":      summaries,
		"selection": h.session.Selection(),
	})
}

func (h *handlers) handleTable(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.session.Logs()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list logs: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	err = LogsTable(summaries, h.session.Selection()).Render(r.Context(), w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.ContentLength > h.options.MaxUploadBytes {
		http.Error(w, fmt.Sprintf("Upload exceeds %d bytes", h.options.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.options.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		http.Error(w, "Failed to get file", http.StatusBadRequest)
		return
	}

	files := make([]File, 0, len(headers))
	for _, header := range headers {
		// Validate file extension
		filename := filepath.Base(header.Filename)
		if strings.ToLower(filepath.Ext(filename)) != ".csv" {
			http.Error(w, fmt.Sprintf("Invalid file format for %s. Please upload EdgeTX telemetry logs (.csv).", filename), http.StatusBadRequest)
			return
		}

		file, err := header.Open()
		if err != nil {
			http.Error(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		files = append(files, File{Name: filename, Text: string(data)})
	}

	results := h.session.IngestAll(r.Context(), files, h.options.IngestConcurrency)

	status := http.StatusOK
	if len(results) == 1 && results[0].Err != nil {
		status = statusFor(results[0].Err)
	}

	imported := 0
	for _, result := range results {
		if result.Err == nil {
			imported++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"message": fmt.Sprintf("Imported %d of %d files", imported, len(results)),
		"results": results,
	})
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, log)
}

func (h *handlers) handleStatsPanel(w http.ResponseWriter, r *http.Request) {
	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	err = StatsPanel(log).Render(r.Context(), w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// entryJSON keeps the header order of the fields, followed by the derived times
func entryJSON(e data_analysis.Entry) *orderedmap.OrderedMap {
	o := orderedmap.New()
	for _, field := range e.Fields() {
		v, _ := e.Get(field)
		o.Set(field, v)
	}
	if e.HasTime {
		o.Set("timeMs", e.TimeMs)
	}
	o.Set("timeDelta", e.TimeDeltaMs)
	return o
}

func (h *handlers) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	start, limit := 0, len(log.Entries)
	if s := r.URL.Query().Get("start"); s != "" {
		start, err = strconv.Atoi(s)
		if err != nil || start < 0 {
			http.Error(w, "Invalid start", http.StatusBadRequest)
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
	}
	start = min(start, len(log.Entries))
	end := min(start+limit, len(log.Entries))

	entries := make([]*orderedmap.OrderedMap, 0, end-start)
	for _, e := range log.Entries[start:end] {
		entries = append(entries, entryJSON(e))
	}

	writeJSON(w, map[string]any{
		"filename": log.Filename,
		"fields":   log.Fields(),
		"total":    len(log.Entries),
		"start":    start,
		"entries":  entries,
	})
}

func (h *handlers) handleSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	field := r.URL.Query().Get("field")
	if field == "" {
		writeJSON(w, map[string]any{
			"legend":   data_analysis.ModeColors,
			"segments": data_analysis.ModeSegments(log.Entries),
		})
		return
	}

	if !log.IsNumerical(field) {
		http.Error(w, fmt.Sprintf("%s: %v", field, ErrFieldNotNumerical), http.StatusBadRequest)
		return
	}
	response := map[string]any{
		"field":    field,
		"label":    data_analysis.FieldLabel(field),
		"segments": data_analysis.ValueSegments(log.Entries, field),
	}
	if lo, hi, ok := data_analysis.FieldRange(log.Entries, field); ok {
		response["min"] = lo
		response["max"] = hi
	}
	writeJSON(w, response)
}

func (h *handlers) handleFieldStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	fields := log.NumericalFields
	if field := r.URL.Query().Get("field"); field != "" {
		fields = []string{field}
	}

	statistics := make([]*data_analysis.FieldStatistics, 0, len(fields))
	for _, field := range fields {
		if s := data_analysis.CalculateFieldStatistics(log.Entries, field); s != nil {
			statistics = append(statistics, s)
		}
	}
	writeJSON(w, statistics)
}

func (h *handlers) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if filename := r.FormValue("file"); filename != "" {
		if err := h.session.SelectLog(filename); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}
	if _, ok := r.Form["field"]; ok {
		if err := h.session.SelectField(r.FormValue("field")); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}

	writeJSON(w, h.session.Selection())
}

func (h *handlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filename := r.FormValue("file")
	if filename == "" {
		http.Error(w, "File name required", http.StatusBadRequest)
		return
	}

	if err := h.session.RemoveLog(filename); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]any{
		"message":   fmt.Sprintf("Log '%s' removed", filename),
		"selection": h.session.Selection(),
	})
}

func (h *handlers) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.session.Clear(); err != nil {
		http.Error(w, fmt.Sprintf("Failed to clear logs: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, err := h.requestedLog(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	formatStr := r.URL.Query().Get("format")
	if formatStr == "" {
		formatStr = string(data_analysis.FormatGPX)
	}
	format, err := data_analysis.ParseExportFormat(formatStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	offset := h.options.DefaultOffset
	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err = strconv.ParseFloat(s, 64)
		if err != nil {
			http.Error(w, "Invalid altitude offset", http.StatusBadRequest)
			return
		}
	}

	data, err := data_analysis.Export(log, format, offset)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate export: %v", err), http.StatusInternalServerError)
		return
	}

	filename := data_analysis.ExportFilename(log.Filename, offset, format)
	h.session.Journal().Record(events.LogExported, log.Filename, filename)

	// Set headers for file download
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
