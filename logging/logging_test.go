package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New("debug", dir)
	require.NoError(t, err)

	l.Info("log added", slog.String("filename", "MyDrone-2024-05-01-120000.csv"))
	require.NoError(t, l.Close())

	assert.Equal(t, filepath.Join(dir, "edgetx-log-viewer.slog"), l.LogFile)
	data, err := os.ReadFile(l.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"log added"`)
	assert.Contains(t, string(data), `"filename":"MyDrone-2024-05-01-120000.csv"`)
}

func TestNewStderr(t *testing.T) {
	l, err := New("info", "")
	require.NoError(t, err)
	assert.Empty(t, l.LogFile)
	assert.NoError(t, l.Close())

	_, err = New("loud", "")
	assert.Error(t, err)
}
