package shazam

import (
	"context"
	"testing"

	"playtrace/models"
	"playtrace/store/memstore"
)

func seedStore(t *testing.T, st *memstore.Store, songID uint32, fingerprints map[uint64]models.Couple) {
	t.Helper()
	if err := st.StoreFingerprints(context.Background(), fingerprints); err != nil {
		t.Fatalf("seeding store failed: %v", err)
	}
}

func TestMatchReturnsNotFoundOnEmptyQuery(t *testing.T) {
	st := memstore.New()
	cand, found, err := Match(context.Background(), nil, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found || cand.Votes != 0 {
		t.Errorf("expected no match for empty query, got %+v found=%v", cand, found)
	}
}

func TestMatchReturnsNotFoundWhenIndexHasNoHits(t *testing.T) {
	st := memstore.New()
	query := []models.QueryFingerprint{{Hash: 999, AnchorMs: 0}}

	_, found, err := Match(context.Background(), query, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected no index hits")
	}
}

func TestMatchPicksHighestVoteCandidate(t *testing.T) {
	st := memstore.New()

	seedStore(t, st, 1, map[uint64]models.Couple{
		100: {SongID: 1, AnchorMs: 10},
		101: {SongID: 1, AnchorMs: 11},
		102: {SongID: 1, AnchorMs: 12},
	})
	seedStore(t, st, 2, map[uint64]models.Couple{
		200: {SongID: 2, AnchorMs: 50},
	})

	query := []models.QueryFingerprint{
		{Hash: 100, AnchorMs: 0}, // stored-query delta = 10
		{Hash: 101, AnchorMs: 1}, // delta = 10
		{Hash: 102, AnchorMs: 2}, // delta = 10
		{Hash: 200, AnchorMs: 0}, // delta = 50, single vote
	}

	cand, found, err := Match(context.Background(), query, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if cand.SongID != 1 || cand.Delta != 10 || cand.Votes != 3 {
		t.Errorf("expected song 1, delta 10, votes 3; got %+v", cand)
	}
}

func TestMatchTiesBreakTowardHigherSongID(t *testing.T) {
	st := memstore.New()

	seedStore(t, st, 5, map[uint64]models.Couple{1: {SongID: 5, AnchorMs: 0}})
	seedStore(t, st, 9, map[uint64]models.Couple{2: {SongID: 9, AnchorMs: 0}})

	query := []models.QueryFingerprint{
		{Hash: 1, AnchorMs: 0},
		{Hash: 2, AnchorMs: 0},
	}

	cand, found, err := Match(context.Background(), query, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if cand.SongID != 9 {
		t.Errorf("expected tie-break to favor song 9, got %d", cand.SongID)
	}
}
