package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playtrace/playlog"
	"playtrace/shazam"
	"playtrace/store/memstore"
)

func newTestEngine() *Engine {
	return New(memstore.New(), playlog.NewMemSink())
}

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	eng := newTestEngine()
	assert.Equal(t, shazam.DefaultMusicProfile().EngineConfig, eng.Config())

	custom := New(memstore.New(), playlog.NewMemSink(), WithProfile(shazam.DefaultAudiobookProfile()), WithTempDir("custom-tmp"))
	assert.Equal(t, shazam.DefaultAudiobookProfile().EngineConfig, custom.Config())
	assert.Equal(t, "custom-tmp", custom.tempDir)
}

func TestRegisterSongIsIdempotent(t *testing.T) {
	eng := newTestEngine()
	ctx := context.Background()

	a, err := eng.RegisterSong(ctx, "Title", "Artist")
	require.NoError(t, err)
	b, err := eng.RegisterSong(ctx, "Title", "Artist")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestGetSongByKeyReflectsRegistration(t *testing.T) {
	eng := newTestEngine()
	ctx := context.Background()

	_, ok, err := eng.GetSongByKey(ctx, "Title", "Artist")
	require.NoError(t, err)
	assert.False(t, ok)

	registered, err := eng.RegisterSong(ctx, "Title", "Artist")
	require.NoError(t, err)

	found, ok, err := eng.GetSongByKey(ctx, "Title", "Artist")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, registered.ID, found.ID)
}

func TestListSongsAndStatsReflectRegistrations(t *testing.T) {
	eng := newTestEngine()
	ctx := context.Background()

	_, err := eng.RegisterSong(ctx, "One", "Artist")
	require.NoError(t, err)
	_, err = eng.RegisterSong(ctx, "Two", "Artist")
	require.NoError(t, err)

	songs, err := eng.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 2)

	totalSongs, totalFingerprints, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), totalSongs)
	assert.Equal(t, uint64(0), totalFingerprints)
}

func TestDeleteSongAndDeleteAll(t *testing.T) {
	eng := newTestEngine()
	ctx := context.Background()

	a, err := eng.RegisterSong(ctx, "One", "Artist")
	require.NoError(t, err)
	_, err = eng.RegisterSong(ctx, "Two", "Artist")
	require.NoError(t, err)

	require.NoError(t, eng.DeleteSong(ctx, a.ID))
	songs, err := eng.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 1)

	require.NoError(t, eng.DeleteAll(ctx))
	songs, err = eng.ListSongs(ctx)
	require.NoError(t, err)
	assert.Len(t, songs, 0)
}

func TestRecordMatchAndRunAggregationRoundTrip(t *testing.T) {
	eng := newTestEngine()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	eng.RecordMatch(1, 10, base)
	eng.RecordMatch(1, 10, base.Add(20*time.Second))
	eng.RecordMatch(1, 10, base.Add(45*time.Second))

	sessions := eng.RunAggregation(base.Add(1 * time.Minute))
	require.Len(t, sessions, 1)
	assert.Equal(t, uint32(1), sessions[0].SongID)
	assert.Equal(t, uint32(10), sessions[0].StationID)
}
