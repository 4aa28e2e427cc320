package data_analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeSegments(t *testing.T) {
	entries := normalized(t, "GPS,Alt(m),FM\n"+
		"1 1,10,ANGL\n"+
		"1 2,11,ANGL\n"+
		"1 3,n/a,ANGL\n"+
		"1 4,12,RTH\n"+
		"1 5,13,RTH\n"+
		"1 6,14,RTH\n"+
		"1 7,15,ANGL\n")

	segments := ModeSegments(entries)
	require.Len(t, segments, 2)

	assert.Equal(t, "ANGL", segments[0].Mode)
	assert.Equal(t, "greenyellow", segments[0].Color)
	assert.Equal(t, 0, segments[0].StartIndex)
	assert.Equal(t, 1, segments[0].EndIndex)
	assert.Len(t, segments[0].Points, 2)

	assert.Equal(t, "RTH", segments[1].Mode)
	assert.Equal(t, "red", segments[1].Color)
	assert.Equal(t, 3, segments[1].StartIndex)
	assert.Equal(t, 5, segments[1].EndIndex)
	require.Len(t, segments[1].Points, 3)
	assert.Equal(t, 14.0, segments[1].Points[2].Altitude)
	assert.Equal(t, 6.0, segments[1].Points[2].Longitude)
}

func TestModeSegmentsWithoutMode(t *testing.T) {
	segments := ModeSegments(normalized(t, "GPS,Alt(m)\n1 1,10\n1 2,11\n"))
	require.Len(t, segments, 1)
	assert.Equal(t, UnknownMode, segments[0].Mode)
	assert.Equal(t, "white", segments[0].Color)
}

func TestModeColor(t *testing.T) {
	assert.Equal(t, "#822EFF", ModeColor("AIR"))
	assert.Equal(t, "dodgerblue", ModeColor("MANU"))
	assert.Equal(t, "white", ModeColor("ACRO"))
}

func TestValueSegments(t *testing.T) {
	entries := normalized(t, "GPS,Alt(m),GSpd(kmh)\n"+
		"1 1,10,0\n"+
		"1 2,11,50\n"+
		"1 3,12,text\n"+
		"1 4,13,100\n")

	segments := ValueSegments(entries, "gspd")
	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].Index)
	assert.Equal(t, 0.0, segments[0].Normalized)
	assert.Equal(t, 2, segments[1].Index)
	assert.InDelta(t, 0.5, segments[1].Normalized, 1e-9)

	assert.Nil(t, ValueSegments(entries, "missing"))
}
