package playback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/logs"
)

// deltas 1s, 2s, 0 (duplicate timestamp), last 0
const replayLog = "Date,Time,GPS,Alt(m),FM\n" +
	"2024-05-01,12:00:00.000,46.0 7.0,10,ANGL\n" +
	"2024-05-01,12:00:01.000,46.1 7.1,20,ANGL\n" +
	"2024-05-01,12:00:03.000,46.2 7.2,30,RTH\n" +
	"2024-05-01,12:00:03.000,46.3 7.3,40,RTH\n"

func replay(t *testing.T) *data_analysis.NormalizedLog {
	t.Helper()
	log, err := data_analysis.BuildLog("Replay-2024-05-01-120000.csv", replayLog, data_analysis.DefaultParseOptions)
	require.NoError(t, err)
	return log
}

func TestTimeline(t *testing.T) {
	tl, err := NewTimeline(replay(t))
	require.NoError(t, err)

	assert.Equal(t, 4, tl.Len())
	assert.Equal(t, 3*time.Second, tl.Duration())

	tests := []struct {
		ms    int64
		index int
	}{
		{-500, 0},
		{0, 0},
		{999, 0},
		{1000, 1},
		{2500, 1},
		{3000, 3},
		{60000, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.index, tl.FrameAt(tt.ms).Index, "t=%d", tt.ms)
	}

	f := tl.FrameAt(1500)
	assert.Equal(t, int64(1000), f.OffsetMs)
	assert.InDelta(t, 1.0/3, f.Progress, 1e-9)
	require.NotNil(t, f.Position)
	assert.Equal(t, 20.0, f.Position.Altitude)
	assert.Equal(t, 7.1, f.Position.Longitude)
	assert.Equal(t, "ANGL", f.Mode)
	require.NotNil(t, f.Time)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC), *f.Time)
	assert.Contains(t, f.DMS, "N")
	assert.Contains(t, f.Values, "alt")

	assert.Equal(t, 1.0, tl.FrameAt(3000).Progress)
}

func TestTimelineWithoutTimes(t *testing.T) {
	log, err := data_analysis.BuildLog("untimed.csv", "GPS\n1 1\n1 2\n1 3\n", data_analysis.DefaultParseOptions)
	require.NoError(t, err)

	tl, err := NewTimeline(log)
	require.NoError(t, err)
	assert.Zero(t, tl.Duration())
	assert.Equal(t, 2, tl.FrameAt(100).Index, "every entry starts at zero")
	assert.Equal(t, 0.5, tl.Frame(1).Progress)
	assert.Nil(t, tl.Frame(1).Time)

	_, err = NewTimeline(&data_analysis.NormalizedLog{Filename: "empty.csv"})
	assert.ErrorIs(t, err, ErrEmptyLog)
}

func TestPlay(t *testing.T) {
	tl, err := NewTimeline(replay(t))
	require.NoError(t, err)

	t.Run("emits every frame in order", func(t *testing.T) {
		var indexes []int
		start := time.Now()
		err := tl.Play(context.Background(), 100, func(f Frame) error {
			indexes = append(indexes, f.Index)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, indexes)
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	})

	t.Run("invalid speed", func(t *testing.T) {
		assert.ErrorIs(t, tl.Play(context.Background(), 0, nil), ErrInvalidSpeed)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var frames int
		err := tl.Play(ctx, 1, func(f Frame) error {
			frames++
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, frames)
	})

	t.Run("emit error stops playback", func(t *testing.T) {
		boom := errors.New("boom")
		err := tl.Play(context.Background(), 1000, func(f Frame) error { return boom })
		assert.ErrorIs(t, err, boom)
	})
}

func newServer(t *testing.T) (*httptest.Server, *logs.Session) {
	t.Helper()
	store, err := logs.NewSqliteStore(0, nil)
	require.NoError(t, err)
	session := logs.NewSession(store, nil, nil)
	t.Cleanup(func() { session.Close() })

	_, err = session.AddLog(replay(t))
	require.NoError(t, err)

	mux := http.NewServeMux()
	SetupHandlers(mux, session, 0, nil)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, session
}

type frameJSON struct {
	Index    int            `json:"index"`
	OffsetMs int64          `json:"offsetMs"`
	Mode     string         `json:"mode"`
	Values   map[string]any `json:"values"`
}

func TestFrameHandler(t *testing.T) {
	server, _ := newServer(t)

	resp, err := http.Get(server.URL + "/playback/frame?t=2000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		DurationMs int64     `json:"durationMs"`
		Frame      frameJSON `json:"frame"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(3000), body.DurationMs)
	assert.Equal(t, 1, body.Frame.Index)
	assert.Equal(t, 20.0, body.Frame.Values["alt"])

	for query, status := range map[string]int{
		"file=missing.csv": http.StatusNotFound,
		"t=soon":           http.StatusBadRequest,
	} {
		resp, err := http.Get(server.URL + "/playback/frame?" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, status, resp.StatusCode, query)
	}
}

func TestStreamHandler(t *testing.T) {
	server, _ := newServer(t)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/playback/ws?speed=1000&file=Replay-2024-05-01-120000.csv"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var modes []string
	for i := 0; i < 4; i++ {
		var f frameJSON
		require.NoError(t, conn.ReadJSON(&f))
		modes = append(modes, f.Mode)
	}
	assert.Equal(t, []string{"ANGL", "ANGL", "RTH", "RTH"}, modes)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	_, resp, err := websocket.DefaultDialer.Dial(strings.Replace(wsURL, "speed=1000", "speed=-1", 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
