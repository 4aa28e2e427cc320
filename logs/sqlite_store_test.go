package logs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaireichart/edgetx-log-viewer/data_analysis"
)

const flightLog = "Date,Time,1RSS(dB),RQly(%),GPS,Alt(m),GSpd(kmh),FM,RxBt(V)\n" +
	"2024-05-01,12:00:00.000,-60,100,46.000000 7.000000,10,0,ANGL,16.1\n" +
	"2024-05-01,12:00:30.000,-61,100,46.000100 7.000100,50,12.5,ANGL,16.0\n" +
	"2024-05-01,12:01:30.000,-62,99,46.000200 7.000200,30,14.2,AIR,15.9\n" +
	"2024-05-01,12:01:31.000,-62,99,0,30,14.2,AIR,15.9\n"

const otherLog = "Date,Time,GPS,Alt(m),Sats\n" +
	"2024-06-02,09:00:00.000,47.1 8.2,100,9\n" +
	"2024-06-02,09:00:01.000,47.2 8.3,101,10\n"

func buildLog(t *testing.T, filename, text string) *data_analysis.NormalizedLog {
	t.Helper()
	log, err := data_analysis.BuildLog(filename, text, data_analysis.DefaultParseOptions)
	require.NoError(t, err)
	return log
}

func newStore(t *testing.T) *SqliteStore {
	t.Helper()
	store, err := NewSqliteStore(2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSqliteStorePutGet(t *testing.T) {
	store := newStore(t)
	original := buildLog(t, "MyDrone-2024-05-01-120000.csv", flightLog)

	summary, err := store.Put(original)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "MyDrone", summary.Name)
	assert.Equal(t, 3, summary.Entries)
	assert.Positive(t, summary.BlobSize)

	t.Run("cached", func(t *testing.T) {
		got, err := store.Get(original.Filename)
		require.NoError(t, err)
		assert.Same(t, original, got)
	})

	t.Run("decoded from the blob", func(t *testing.T) {
		store.cache.Purge()
		got, err := store.Get(original.Filename)
		require.NoError(t, err)
		assert.NotSame(t, original, got)

		assert.Equal(t, original.Filename, got.Filename)
		assert.Equal(t, original.Entries, got.Entries)
		assert.Equal(t, original.NumericalFields, got.NumericalFields)
		assert.Equal(t, original.Stats, got.Stats)
		assert.Equal(t, original.Metadata, got.Metadata)
		assert.Equal(t, original.Warnings, got.Warnings)
		assert.Equal(t, original.Fields(), got.Fields())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Get("nope.csv")
		assert.ErrorIs(t, err, ErrLogNotFound)

		ok, err := store.Has("nope.csv")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSqliteStoreDuplicate(t *testing.T) {
	store := newStore(t)
	first := buildLog(t, "MyDrone-2024-05-01-120000.csv", flightLog)
	second := buildLog(t, "MyDrone-2024-05-01-120000.csv", otherLog)

	_, err := store.Put(first)
	require.NoError(t, err)
	_, err = store.Put(second)
	assert.ErrorIs(t, err, ErrAlreadyLoaded)

	store.cache.Purge()
	got, err := store.Get(first.Filename)
	require.NoError(t, err)
	assert.Len(t, got.Entries, len(first.Entries), "stored log is never overwritten")

	summaries, err := store.List()
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestSqliteStoreListDeleteClear(t *testing.T) {
	store := newStore(t)
	names := []string{"b-2024-05-01-120000.csv", "a-2024-05-01-120000.csv", "c.csv"}
	for _, name := range names {
		_, err := store.Put(buildLog(t, name, otherLog))
		require.NoError(t, err)
	}

	summaries, err := store.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for i, s := range summaries {
		assert.Equal(t, names[i], s.Filename, "insertion order")
		assert.WithinDuration(t, time.Now(), s.AddedAt, time.Minute)
	}
	assert.Equal(t, "c", summaries[2].Name)
	assert.Equal(t, "2024-05-01", summaries[0].Metadata.LogDate)
	require.NotNil(t, summaries[0].Stats.MaxAltitudeM)
	assert.Equal(t, 101.0, *summaries[0].Stats.MaxAltitudeM)
	assert.Nil(t, summaries[0].Stats.MostUsedMode)

	require.NoError(t, store.Delete(names[1]))
	assert.ErrorIs(t, store.Delete(names[1]), ErrLogNotFound)
	_, err = store.Get(names[1])
	assert.ErrorIs(t, err, ErrLogNotFound)

	require.NoError(t, store.Clear())
	summaries, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSqliteStoresAreIsolated(t *testing.T) {
	a, b := newStore(t), newStore(t)
	_, err := a.Put(buildLog(t, "c.csv", otherLog))
	require.NoError(t, err)

	ok, err := b.Has("c.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}
