// Package playlog turns a stream of per-station positive
// identifications into validated play-log entries: an append-only
// match cache plus a windowed play-session aggregator, modeled after a
// Django management command (process_match_cache.py) that did the same
// grouping in SQL.
package playlog

import (
	"sync"
	"time"

	"playtrace/models"
)

// MatchCache is an append-only, mutex-guarded buffer of recent positive
// identifications. Rows are removed once an aggregation pass consumes
// them, mirroring the original command's "clean up matches" step.
type MatchCache struct {
	mu   sync.Mutex
	rows []models.MatchRecord
}

// NewMatchCache constructs an empty cache.
func NewMatchCache() *MatchCache {
	return &MatchCache{}
}

// RecordMatch appends one positive identification. Safe for concurrent
// callers (one per station's recognition loop, typically).
func (c *MatchCache) RecordMatch(songID, stationID uint32, matchedAt time.Time) {
	c.recordMatch(models.MatchRecord{SongID: songID, StationID: stationID, MatchedAt: matchedAt})
}

// RecordMatchWithProgram is RecordMatch plus the optional program-slot
// pass-through field — the aggregator never groups by it, it only rides
// along into the resulting MatchRecord.
func (c *MatchCache) RecordMatchWithProgram(songID, stationID uint32, matchedAt time.Time, programID uint32) {
	c.recordMatch(models.MatchRecord{SongID: songID, StationID: stationID, MatchedAt: matchedAt, ProgramID: &programID})
}

func (c *MatchCache) recordMatch(row models.MatchRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
}

// snapshotSince returns a copy of every row with MatchedAt >= since,
// so the aggregator can work on a stable slice without holding the lock.
func (c *MatchCache) snapshotSince(since time.Time) []models.MatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.MatchRecord, 0, len(c.rows))
	for _, r := range c.rows {
		if !r.MatchedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out
}

// evict removes rows matching (songID, stationID) whose MatchedAt falls
// in [start, stop], the "clean up matches" step after a group is
// consumed by an aggregation pass.
func (c *MatchCache) evict(songID, stationID uint32, start, stop time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.rows[:0]
	for _, r := range c.rows {
		consumed := r.SongID == songID && r.StationID == stationID &&
			!r.MatchedAt.Before(start) && !r.MatchedAt.After(stop)
		if !consumed {
			kept = append(kept, r)
		}
	}
	c.rows = kept
}
