package playlog

import (
	"testing"
	"time"

	"playtrace/config"
)

func TestRunAggregationSkipsUnderThresholdCountWithoutEviction(t *testing.T) {
	cache := NewMatchCache()
	sink := NewMemSink()
	agg := NewAggregator(cache, sink, config.Default())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.RecordMatch(1, 10, base)
	cache.RecordMatch(1, 10, base.Add(10*time.Second))

	sessions := agg.RunAggregation(base.Add(1 * time.Minute))
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions emitted below MinSessionCount, got %d", len(sessions))
	}

	rows := cache.snapshotSince(base.Add(-time.Hour))
	if len(rows) != 2 {
		t.Errorf("expected the under-threshold rows to remain in the cache, got %d", len(rows))
	}
}

func TestRunAggregationEvictsUnderDurationGroupWithoutEmitting(t *testing.T) {
	cache := NewMatchCache()
	sink := NewMemSink()
	agg := NewAggregator(cache, sink, config.Default())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.RecordMatch(1, 10, base)
	cache.RecordMatch(1, 10, base.Add(5*time.Second))
	cache.RecordMatch(1, 10, base.Add(10*time.Second)) // span 10s, below MinSessionSeconds(30)

	sessions := agg.RunAggregation(base.Add(1 * time.Minute))
	if len(sessions) != 0 {
		t.Fatalf("expected no session emitted for an under-duration group, got %d", len(sessions))
	}

	rows := cache.snapshotSince(base.Add(-time.Hour))
	if len(rows) != 0 {
		t.Errorf("expected the consumed group to be evicted regardless of outcome, got %d rows left", len(rows))
	}
}

func TestRunAggregationEmitsSessionWhenThresholdsClear(t *testing.T) {
	cache := NewMatchCache()
	sink := NewMemSink()
	agg := NewAggregator(cache, sink, config.Default())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.RecordMatch(1, 10, base)
	cache.RecordMatch(1, 10, base.Add(20*time.Second))
	cache.RecordMatch(1, 10, base.Add(45*time.Second)) // span 45s, clears MinSessionSeconds(30)

	sessions := agg.RunAggregation(base.Add(1 * time.Minute))
	if len(sessions) != 1 {
		t.Fatalf("expected exactly 1 emitted session, got %d", len(sessions))
	}

	session := sessions[0]
	if session.SongID != 1 || session.StationID != 10 {
		t.Errorf("unexpected session identity: %+v", session)
	}
	if session.Duration != 45*time.Second {
		t.Errorf("expected 45s duration, got %v", session.Duration)
	}

	wantRoyalty := roundToCents(session.Duration.Minutes() * config.Default().RoyaltyRatePerMinute)
	if session.RoyaltyAmount != wantRoyalty {
		t.Errorf("expected royalty %.4f, got %.4f", wantRoyalty, session.RoyaltyAmount)
	}

	if len(sink.Sessions()) != 1 {
		t.Errorf("expected the session to be durably saved, got %d", len(sink.Sessions()))
	}
}

func TestRunAggregationSkipsOverlappingGroupAndEvictsIt(t *testing.T) {
	cache := NewMatchCache()
	sink := NewMemSink()
	agg := NewAggregator(cache, sink, config.Default())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// pre-seed an existing session that will overlap the new group once
	// the 60s OverlapGuardSeconds is applied on both sides.
	cache.RecordMatch(1, 10, base)
	cache.RecordMatch(1, 10, base.Add(20*time.Second))
	cache.RecordMatch(1, 10, base.Add(45*time.Second))
	first := agg.RunAggregation(base.Add(1 * time.Minute))
	if len(first) != 1 {
		t.Fatalf("setup: expected the first group to emit a session, got %d", len(first))
	}

	// a second group far enough away in raw time to have a distinct span,
	// but within the 60s overlap guard of the first session's boundary.
	second := base.Add(90 * time.Second)
	cache.RecordMatch(1, 10, second)
	cache.RecordMatch(1, 10, second.Add(20*time.Second))
	cache.RecordMatch(1, 10, second.Add(40*time.Second))

	sessions := agg.RunAggregation(second.Add(1 * time.Minute))
	if len(sessions) != 0 {
		t.Fatalf("expected the overlapping group to be suppressed, got %d sessions", len(sessions))
	}

	if len(sink.Sessions()) != 1 {
		t.Errorf("expected only the first session to be persisted, got %d", len(sink.Sessions()))
	}

	if rows := cache.snapshotSince(base.Add(-time.Hour)); len(rows) != 0 {
		t.Errorf("expected the overlapping group to be evicted, got %d rows left", len(rows))
	}
}

func TestRunAggregationIsIdempotentOverUnchangedState(t *testing.T) {
	cache := NewMatchCache()
	sink := NewMemSink()
	agg := NewAggregator(cache, sink, config.Default())

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.RecordMatch(1, 10, base)
	cache.RecordMatch(1, 10, base.Add(20*time.Second))
	cache.RecordMatch(1, 10, base.Add(45*time.Second))

	now := base.Add(1 * time.Minute)
	first := agg.RunAggregation(now)
	second := agg.RunAggregation(now)

	if len(first) != 1 {
		t.Fatalf("expected the first pass to emit 1 session, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("expected the second pass over unchanged state to emit nothing, got %d", len(second))
	}
}
