// Package engine is the facade wrapping decode, fingerprint, index, and
// aggregation behind four external contracts: Ingest, Recognize,
// RecordMatch, RunAggregation. One struct, functional options, no
// package-level state.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"playtrace/config"
	"playtrace/models"
	"playtrace/playlog"
	"playtrace/shazam"
	"playtrace/store"
	"playtrace/utils"
	"playtrace/wav"
)

// Engine is the entry point a collaborator (HTTP handler, CLI command,
// test) holds on to. Every method is safe for concurrent callers: the
// store guards its index with its own locks and the match cache is
// mutex guarded internally.
type Engine struct {
	store      store.FingerprintStore
	profile    shazam.Profile
	cache      *playlog.MatchCache
	aggregator *playlog.Aggregator
	tempDir    string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithProfile overrides the default music profile, e.g. with
// shazam.DefaultAudiobookProfile() for long-form ingestion.
func WithProfile(p shazam.Profile) Option {
	return func(e *Engine) { e.profile = p }
}

// WithTempDir overrides where intermediate WAV conversions are written.
func WithTempDir(dir string) Option {
	return func(e *Engine) { e.tempDir = dir }
}

// New builds an Engine around a FingerprintStore and a play-log sink.
func New(st store.FingerprintStore, sink playlog.PlayLogSink, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		profile: shazam.DefaultMusicProfile(),
		cache:   playlog.NewMatchCache(),
		tempDir: "tmp",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.aggregator = playlog.NewAggregator(e.cache, sink, e.profile.EngineConfig)
	return e
}

// Config returns the engine's active tuning surface.
func (e *Engine) Config() config.EngineConfig {
	return e.profile.EngineConfig
}

// RegisterSong reserves a song ID for title/artist ahead of Ingest,
// returning the existing song unchanged if it was already registered
// (dedup by utils.GenerateSongKey).
func (e *Engine) RegisterSong(ctx context.Context, title, artist string) (models.Song, error) {
	return e.store.RegisterSong(ctx, title, artist)
}

// Ingest decodes raw audio bytes of any container ffmpeg understands,
// fingerprints them under songID, and bulk-inserts the result
// atomically: either all hashes land or none do.
func (e *Engine) Ingest(ctx context.Context, songID uint32, audio []byte) (models.IngestReport, error) {
	wavPath, cleanup, err := e.decodeToWAV(audio)
	if err != nil {
		return models.IngestReport{}, err
	}
	defer cleanup()

	fingerprints, duration, err := shazam.FingerprintFile(wavPath, songID, e.profile)
	if err != nil {
		return models.IngestReport{}, fmt.Errorf("fingerprinting failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return models.IngestReport{}, err
	}

	if err := e.store.StoreFingerprints(ctx, fingerprints); err != nil {
		return models.IngestReport{}, fmt.Errorf("storing fingerprints: %w", err)
	}

	return models.IngestReport{
		FingerprintsWritten: uint64(len(fingerprints)),
		DurationSeconds:     duration,
	}, nil
}

// Recognize identifies a query clip against the index, applying the
// wall-budget timeout from RecognitionTimeout unless the caller already
// supplied a shorter deadline.
func (e *Engine) Recognize(ctx context.Context, audio []byte) (models.MatchOutcome, error) {
	if e.profile.RecognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.profile.RecognitionTimeout*float64(time.Second)))
		defer cancel()
	}

	totalStart := time.Now()

	wavPath, cleanup, err := e.decodeToWAV(audio)
	if err != nil {
		return models.MatchOutcome{}, err
	}
	defer cleanup()

	if err := ctx.Err(); err != nil {
		return models.MatchOutcome{}, err
	}

	fpStart := time.Now()
	query, err := shazam.FingerprintQueryFile(wavPath, e.profile)
	fingerprintMs := float64(time.Since(fpStart).Microseconds()) / 1000.0
	if err != nil {
		return models.MatchOutcome{}, fmt.Errorf("fingerprinting query failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return models.MatchOutcome{}, err
	}
	if len(query) == 0 {
		return models.MatchOutcome{Reason: models.ReasonNoFingerprints}, nil
	}

	queryStart := time.Now()
	outcome, err := shazam.BuildOutcome(ctx, query, e.store, e.profile, shazam.Timings{})
	queryMs := float64(time.Since(queryStart).Microseconds()) / 1000.0
	if err != nil {
		return models.MatchOutcome{}, fmt.Errorf("matching failed: %w", err)
	}

	if outcome.Positive != nil {
		outcome.Positive.FingerprintMs = fingerprintMs
		outcome.Positive.QueryMs = queryMs
		outcome.Positive.TotalMs = float64(time.Since(totalStart).Microseconds()) / 1000.0
	}

	return outcome, nil
}

// ListSongs returns every registered song.
func (e *Engine) ListSongs(ctx context.Context) ([]models.Song, error) {
	return e.store.AllSongs(ctx)
}

// Stats reports the index's total song and fingerprint counts.
func (e *Engine) Stats(ctx context.Context) (totalSongs, totalFingerprints uint64, err error) {
	totalSongs, err = e.store.TotalSongs(ctx)
	if err != nil {
		return 0, 0, err
	}

	songs, err := e.store.AllSongs(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, s := range songs {
		n, err := e.store.TotalFingerprints(ctx, s.ID)
		if err != nil {
			return 0, 0, err
		}
		totalFingerprints += n
	}
	return totalSongs, totalFingerprints, nil
}

// DeleteSong removes a song and all of its fingerprints from the index.
func (e *Engine) DeleteSong(ctx context.Context, songID uint32) error {
	return e.store.DeleteSong(ctx, songID)
}

// DeleteAll wipes every registered song and fingerprint from the index.
func (e *Engine) DeleteAll(ctx context.Context) error {
	songs, err := e.store.AllSongs(ctx)
	if err != nil {
		return err
	}
	for _, s := range songs {
		if err := e.store.DeleteSong(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetSongByKey looks up a song by its dedup key, for idempotent re-ingest.
func (e *Engine) GetSongByKey(ctx context.Context, title, artist string) (models.Song, bool, error) {
	return e.store.GetSongByKey(ctx, utils.GenerateSongKey(title, artist))
}

// RecordMatch appends a positive per-station identification to the
// aggregator's match cache.
func (e *Engine) RecordMatch(songID, stationID uint32, matchedAt time.Time) {
	e.cache.RecordMatch(songID, stationID, matchedAt)
}

// RunAggregation runs one pass of the play-session aggregator.
func (e *Engine) RunAggregation(now time.Time) []models.PlaySession {
	return e.aggregator.RunAggregation(now)
}

// decodeToWAV normalizes arbitrary input bytes to a 44.1kHz WAV file on
// disk (mono unless FINGERPRINT_STEREO is set), returning a cleanup func that removes every temp file
// it created.
func (e *Engine) decodeToWAV(audio []byte) (path string, cleanup func(), err error) {
	if err := utils.CreateFolder(e.tempDir); err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}

	rawPath := filepath.Join(e.tempDir, fmt.Sprintf("in_%d.audio", utils.GenerateUniqueID()))
	if err := os.WriteFile(rawPath, audio, 0644); err != nil {
		return "", nil, fmt.Errorf("writing temp input: %w", err)
	}

	wavPath, err := wav.ConvertToWAV(rawPath)
	if err != nil {
		os.Remove(rawPath)
		return "", nil, fmt.Errorf("converting to wav: %w", err)
	}

	return wavPath, func() { os.Remove(wavPath) }, nil
}
