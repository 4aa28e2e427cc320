package playback

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/logs"
)

// LogSource resolves the log a playback request refers to
type LogSource interface {
	Log(filename string) (*data_analysis.NormalizedLog, error)
	SelectedLog() (*data_analysis.NormalizedLog, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type handlers struct {
	source       LogSource
	defaultSpeed float64
	logger       *slog.Logger
}

func SetupHandlers(mux *http.ServeMux, source LogSource, defaultSpeed float64, logger *slog.Logger) {
	if defaultSpeed <= 0 {
		defaultSpeed = DefaultSpeed
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handlers{source: source, defaultSpeed: defaultSpeed, logger: logger}

	mux.HandleFunc("/playback/frame", h.handleFrame)
	mux.HandleFunc("/playback/ws", h.handleStream)
}

func (h *handlers) timeline(r *http.Request) (*Timeline, int, error) {
	var (
		log *data_analysis.NormalizedLog
		err error
	)
	if filename := r.URL.Query().Get("file"); filename != "" {
		log, err = h.source.Log(filename)
	} else {
		log, err = h.source.SelectedLog()
	}
	switch {
	case errors.Is(err, logs.ErrLogNotFound):
		return nil, http.StatusNotFound, err
	case errors.Is(err, logs.ErrNoSelection):
		return nil, http.StatusBadRequest, err
	case err != nil:
		return nil, http.StatusInternalServerError, err
	}

	t, err := NewTimeline(log)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return t, http.StatusOK, nil
}

func (h *handlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	t, status, err := h.timeline(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	var ms int64
	if s := r.URL.Query().Get("t"); s != "" {
		ms, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "Invalid playback time", http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"durationMs": t.Duration().Milliseconds(),
		"frame":      t.FrameAt(ms),
	})
}

func (h *handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	t, status, err := h.timeline(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	speed := h.defaultSpeed
	if s := r.URL.Query().Get("speed"); s != "" {
		speed, err = strconv.ParseFloat(s, 64)
		if err != nil || speed <= 0 {
			http.Error(w, ErrInvalidSpeed.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump, detects client disconnect
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = t.Play(ctx, speed, func(f Frame) error {
		return conn.WriteJSON(f)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Info("playback stream ended", slog.Any("error", err))
		return
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "playback finished"))
}
