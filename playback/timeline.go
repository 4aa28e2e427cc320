package playback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
	"github.com/kaireichart/edgetx-log-viewer/gps"
)

var (
	ErrEmptyLog     = errors.New("log has no entries")
	ErrInvalidSpeed = errors.New("playback speed must be positive")
)

const DefaultSpeed = 1.0

// Frame is the state of the replay at one entry
type Frame struct {
	Index    int                            `json:"index"`
	OffsetMs int64                          `json:"offsetMs"`
	Progress float64                        `json:"progress"` // 0 at the first entry, 1 at the last
	Time     *time.Time                     `json:"time,omitempty"`
	Position *gps.Position                  `json:"position,omitempty"`
	DMS      string                         `json:"dms,omitempty"`
	Mode     string                         `json:"mode,omitempty"`
	Values   map[string]data_analysis.Value `json:"values"`
}

// Timeline maps playback offsets onto the entries of a log. Offsets accumulate
// the entries' time deltas; negative deltas count as zero so offsets never go back.
type Timeline struct {
	log     *data_analysis.NormalizedLog
	offsets []int64
}

func NewTimeline(log *data_analysis.NormalizedLog) (*Timeline, error) {
	if len(log.Entries) == 0 {
		return nil, fmt.Errorf("%s: %w", log.Filename, ErrEmptyLog)
	}

	offsets := make([]int64, len(log.Entries))
	for i := 1; i < len(log.Entries); i++ {
		offsets[i] = offsets[i-1] + max(log.Entries[i-1].TimeDeltaMs, 0)
	}
	return &Timeline{log: log, offsets: offsets}, nil
}

func (t *Timeline) Len() int { return len(t.offsets) }

func (t *Timeline) Duration() time.Duration {
	return time.Duration(t.offsets[len(t.offsets)-1]) * time.Millisecond
}

// FrameAt returns the last frame starting at or before ms, clamped to the log.
func (t *Timeline) FrameAt(ms int64) Frame {
	i := sort.Search(len(t.offsets), func(i int) bool { return t.offsets[i] > ms }) - 1
	return t.Frame(max(i, 0))
}

// Frame builds the frame of entry i
func (t *Timeline) Frame(i int) Frame {
	e := t.log.Entries[i]
	frame := Frame{
		Index:    i,
		OffsetMs: t.offsets[i],
		Values:   make(map[string]data_analysis.Value, e.Len()),
	}

	if total := t.offsets[len(t.offsets)-1]; total > 0 {
		frame.Progress = float64(t.offsets[i]) / float64(total)
	} else if len(t.offsets) > 1 {
		frame.Progress = float64(i) / float64(len(t.offsets)-1)
	}

	if ts, ok := e.Time(); ok {
		frame.Time = &ts
	}
	if c, ok := e.GPS(); ok {
		p := gps.Position{Latitude: c.Lat, Longitude: c.Long}
		if alt, ok := e.Altitude(); ok {
			p.Altitude = alt
		}
		frame.Position = &p
		frame.DMS = c.DMS()
	}
	if mode, ok := e.Mode(); ok {
		frame.Mode = mode
	}
	for _, field := range e.Fields() {
		frame.Values[field], _ = e.Get(field)
	}
	return frame
}

// Play emits every frame in order, waiting the entry's time delta divided by
// speed between frames. It stops early when ctx is done or emit fails.
func (t *Timeline) Play(ctx context.Context, speed float64, emit func(Frame) error) error {
	if speed <= 0 {
		return ErrInvalidSpeed
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i := range t.offsets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(t.Frame(i)); err != nil {
			return err
		}
		if i == len(t.offsets)-1 {
			break
		}

		wait := time.Duration(float64(t.offsets[i+1]-t.offsets[i]) * float64(time.Millisecond) / speed)
		if wait <= 0 {
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
