package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application logger. When a log directory is configured the
// records go to a rotating JSON file, otherwise to stderr as text.
type Logger struct {
	*slog.Logger
	LogFile string

	closer io.Closer
}

// ParseLevel maps a configuration string onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

func New(level, dir string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if dir == "" {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
		return &Logger{Logger: slog.New(h)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "edgetx-log-viewer.slog"),
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
	if lvl == slog.LevelDebug {
		w.MaxSize = 256
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Logger{Logger: slog.New(h), LogFile: w.Filename, closer: w}, nil
}

// Discard returns a logger that drops everything, for tests and library callers.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
