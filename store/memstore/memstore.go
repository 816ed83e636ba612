// Package memstore is a sharded in-memory FingerprintStore. Good for
// tests, CLI one-shot runs, and small stations; not durable across
// restarts.
package memstore

import (
	"context"
	"sync"

	"playtrace/models"
	"playtrace/store"
	"playtrace/utils"
)

// shardCount is the number of independent hash buckets, each behind its
// own mutex, so concurrent StoreFingerprints calls for different songs
// don't serialize on a single lock.
const shardCount = 64

// lookupChunkSize bounds per-query memory during GetCouples.
const lookupChunkSize = 1000

type shard struct {
	mu    sync.RWMutex
	index map[uint64][]models.Couple
}

// Store is a sharded in-memory FingerprintStore.
type Store struct {
	shards [shardCount]*shard

	songsMu   sync.RWMutex
	songs     map[uint32]models.Song
	byKey     map[string]uint32
	fpCounts  map[uint32]uint64
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{
		songs:    make(map[uint32]models.Song),
		byKey:    make(map[string]uint32),
		fpCounts: make(map[uint32]uint64),
	}
	for i := range s.shards {
		s.shards[i] = &shard{index: make(map[uint64][]models.Couple)}
	}
	return s
}

func (s *Store) shardFor(hash uint64) *shard {
	return s.shards[hash%uint64(shardCount)]
}

func (s *Store) RegisterSong(_ context.Context, title, artist string) (models.Song, error) {
	key := utils.GenerateSongKey(title, artist)

	s.songsMu.Lock()
	defer s.songsMu.Unlock()

	if id, ok := s.byKey[key]; ok {
		return s.songs[id], nil
	}

	song := models.Song{ID: utils.GenerateUniqueID(), Title: title, Artist: artist}
	s.songs[song.ID] = song
	s.byKey[key] = song.ID
	return song, nil
}

func (s *Store) GetSongByKey(_ context.Context, key string) (models.Song, bool, error) {
	s.songsMu.RLock()
	defer s.songsMu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return models.Song{}, false, nil
	}
	return s.songs[id], true, nil
}

func (s *Store) StoreFingerprints(_ context.Context, fingerprints map[uint64]models.Couple) error {
	var songID uint32
	for _, c := range fingerprints {
		songID = c.SongID
		break
	}

	for hash, couple := range fingerprints {
		sh := s.shardFor(hash)
		sh.mu.Lock()
		sh.index[hash] = append(sh.index[hash], couple)
		sh.mu.Unlock()
	}

	s.songsMu.Lock()
	s.fpCounts[songID] += uint64(len(fingerprints))
	s.songsMu.Unlock()

	return nil
}

func (s *Store) GetCouples(_ context.Context, hashes []uint64) (map[uint64][]models.Couple, error) {
	result := make(map[uint64][]models.Couple, len(hashes))

	for start := 0; start < len(hashes); start += lookupChunkSize {
		end := start + lookupChunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		for _, h := range hashes[start:end] {
			sh := s.shardFor(h)
			sh.mu.RLock()
			if couples, ok := sh.index[h]; ok {
				cp := make([]models.Couple, len(couples))
				copy(cp, couples)
				result[h] = cp
			}
			sh.mu.RUnlock()
		}
	}

	return result, nil
}

func (s *Store) TotalFingerprints(_ context.Context, songID uint32) (uint64, error) {
	s.songsMu.RLock()
	defer s.songsMu.RUnlock()
	return s.fpCounts[songID], nil
}

func (s *Store) TotalSongs(_ context.Context) (uint64, error) {
	s.songsMu.RLock()
	defer s.songsMu.RUnlock()
	return uint64(len(s.songs)), nil
}

func (s *Store) AllSongs(_ context.Context) ([]models.Song, error) {
	s.songsMu.RLock()
	defer s.songsMu.RUnlock()

	out := make([]models.Song, 0, len(s.songs))
	for _, song := range s.songs {
		out = append(out, song)
	}
	return out, nil
}

func (s *Store) DeleteSong(_ context.Context, songID uint32) error {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for hash, couples := range sh.index {
			kept := couples[:0]
			for _, c := range couples {
				if c.SongID != songID {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				delete(sh.index, hash)
			} else {
				sh.index[hash] = kept
			}
		}
		sh.mu.Unlock()
	}

	s.songsMu.Lock()
	for key, id := range s.byKey {
		if id == songID {
			delete(s.byKey, key)
		}
	}
	delete(s.songs, songID)
	delete(s.fpCounts, songID)
	s.songsMu.Unlock()

	return nil
}

var _ store.FingerprintStore = (*Store)(nil)
