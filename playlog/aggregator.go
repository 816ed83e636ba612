package playlog

import (
	"math"
	"time"

	"playtrace/config"
	"playtrace/models"
)

// PlayLogSink is the durable play-log boundary: the aggregator never
// touches a database directly.
type PlayLogSink interface {
	// ExistsOverlapping reports whether a PlaySession for (songID,
	// stationID) already intersects [start, stop].
	ExistsOverlapping(songID, stationID uint32, start, stop time.Time) (bool, error)
	// Save persists a newly emitted PlaySession.
	Save(session models.PlaySession) error
}

// Aggregator runs the temporal aggregation state machine: group match
// cache rows by (song_id, station_id) within a trailing
// window, gate on count and span, then check for overlap against
// existing sessions before emitting.
type Aggregator struct {
	cache *MatchCache
	sink  PlayLogSink
	cfg   config.EngineConfig
}

// NewAggregator wires a cache, a durable sink, and the thresholds from
// cfg (AggregationWindowMinutes, MinSessionCount, MinSessionSeconds,
// OverlapGuardSeconds, RoyaltyRatePerMinute).
func NewAggregator(cache *MatchCache, sink PlayLogSink, cfg config.EngineConfig) *Aggregator {
	return &Aggregator{cache: cache, sink: sink, cfg: cfg}
}

type groupKey struct {
	songID    uint32
	stationID uint32
}

// RunAggregation performs one aggregation pass as of now, returning the
// sessions it newly emitted. Callers are responsible for persisting
// them durably beyond what the sink already does. Running
// it twice in succession over unchanged cache state emits nothing the
// second time, since every count>=MinSessionCount group is evicted on
// its first pass regardless of outcome (ported from
// process_match_cache.py, where the cleanup delete sits outside the
// duration/overlap gates).
func (a *Aggregator) RunAggregation(now time.Time) []models.PlaySession {
	since := now.Add(-time.Duration(a.cfg.AggregationWindowMinutes * float64(time.Minute)))
	rows := a.cache.snapshotSince(since)

	groups := make(map[groupKey][]models.MatchRecord)
	for _, r := range rows {
		k := groupKey{songID: r.SongID, stationID: r.StationID}
		groups[k] = append(groups[k], r)
	}

	var emitted []models.PlaySession

	for key, group := range groups {
		if len(group) < a.cfg.MinSessionCount {
			continue
		}

		start, stop := group[0].MatchedAt, group[0].MatchedAt
		for _, r := range group[1:] {
			if r.MatchedAt.Before(start) {
				start = r.MatchedAt
			}
			if r.MatchedAt.After(stop) {
				stop = r.MatchedAt
			}
		}

		// consumed either way: an under-duration or overlapping group
		// is never revisited, matching the source's unconditional delete.
		duration := stop.Sub(start)
		if duration.Seconds() < a.cfg.MinSessionSeconds {
			a.cache.evict(key.songID, key.stationID, start, stop)
			continue
		}

		guard := time.Duration(a.cfg.OverlapGuardSeconds * float64(time.Second))
		overlaps, err := a.sink.ExistsOverlapping(key.songID, key.stationID, start.Add(-guard), stop.Add(guard))
		if err != nil || overlaps {
			a.cache.evict(key.songID, key.stationID, start, stop)
			continue
		}

		session := models.PlaySession{
			SongID:        key.songID,
			StationID:     key.stationID,
			StartTime:     start,
			StopTime:      stop,
			Duration:      duration,
			RoyaltyAmount: roundToCents(duration.Minutes() * a.cfg.RoyaltyRatePerMinute),
		}

		a.cache.evict(key.songID, key.stationID, start, stop)

		if err := a.sink.Save(session); err != nil {
			continue
		}
		emitted = append(emitted, session)
	}

	return emitted
}

func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}
