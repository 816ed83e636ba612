// Package store defines the narrow persistence boundary the DSP core
// talks to: bulk-insert, chunked lookup, count, delete. No ORM, no ODM
// handle leaks past this interface — callers only ever see models
// types.
package store

import (
	"context"

	"github.com/mdobak/go-xerrors"

	"playtrace/models"
)

// FingerprintStore is the fingerprint index's narrow interface,
// satisfied by store/memstore (sharded in-memory map) and
// store/mongostore (go.mongodb.org/mongo-driver backed).
type FingerprintStore interface {
	// RegisterSong reserves a song ID for title/artist, returning the
	// existing song unchanged if the dedup key already exists.
	RegisterSong(ctx context.Context, title, artist string) (models.Song, error)

	// StoreFingerprints bulk-inserts one song's fingerprints atomically.
	StoreFingerprints(ctx context.Context, fingerprints map[uint64]models.Couple) error

	// GetCouples looks up all (song_id, offset) pairs for a set of query
	// hashes, chunking internally to bound per-query memory (batch size
	// ≈ 1,000).
	GetCouples(ctx context.Context, hashes []uint64) (map[uint64][]models.Couple, error)

	// TotalFingerprints returns the number of fingerprints indexed for a
	// song (the matcher's N_song for db_confidence).
	TotalFingerprints(ctx context.Context, songID uint32) (uint64, error)

	// DeleteSong removes every fingerprint indexed for a song.
	DeleteSong(ctx context.Context, songID uint32) error

	// GetSongByKey looks up a song by its dedup key (title+artist), for
	// idempotent re-ingest.
	GetSongByKey(ctx context.Context, key string) (models.Song, bool, error)

	// AllSongs lists every registered song.
	AllSongs(ctx context.Context) ([]models.Song, error)

	// TotalSongs returns the number of registered songs.
	TotalSongs(ctx context.Context) (uint64, error)
}

// Closed set of error kinds callers can match on with errors.Is. Each
// store implementation wraps its backend-specific failure into one of
// these with xerrors.New so the cause carries a stack trace without
// leaking driver-specific error types across the interface boundary.
var (
	ErrDecode        = xerrors.New("store: decode failure")
	ErrIndexWrite    = xerrors.New("store: index write failure")
	ErrIndexRead     = xerrors.New("store: index read failure")
	ErrTimeout       = xerrors.New("store: operation timed out")
	ErrDuplicateSong = xerrors.New("store: duplicate song")
	ErrInvalidConfig = xerrors.New("store: invalid configuration")
)
