package memstore

import (
	"context"
	"testing"

	"playtrace/models"
)

func TestRegisterSongDedupesByKey(t *testing.T) {
	st := New()
	ctx := context.Background()

	a, err := st.RegisterSong(ctx, "Song", "Artist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := st.RegisterSong(ctx, "Song", "Artist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("expected the same song id on re-registration, got %d and %d", a.ID, b.ID)
	}

	total, err := st.TotalSongs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected exactly one stored song, got %d", total)
	}
}

func TestGetSongByKeyFindsRegisteredSong(t *testing.T) {
	st := New()
	ctx := context.Background()

	song, err := st.RegisterSong(ctx, "Title", "Artist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, ok, err := st.GetSongByKey(ctx, "title-artist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || found.ID != song.ID {
		t.Errorf("expected to find song %d by key, got ok=%v song=%+v", song.ID, ok, found)
	}

	if _, ok, err := st.GetSongByKey(ctx, "nonexistent-key"); err != nil || ok {
		t.Errorf("expected no match for unknown key, got ok=%v err=%v", ok, err)
	}
}

func TestStoreFingerprintsAndGetCouplesRoundTrip(t *testing.T) {
	st := New()
	ctx := context.Background()

	fingerprints := map[uint64]models.Couple{
		10: {SongID: 1, AnchorMs: 100},
		20: {SongID: 1, AnchorMs: 200},
	}
	if err := st.StoreFingerprints(ctx, fingerprints); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := st.GetCouples(ctx, []uint64{10, 20, 999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 hashes with hits, got %d", len(rows))
	}
	if rows[10][0].AnchorMs != 100 || rows[20][0].AnchorMs != 200 {
		t.Errorf("unexpected couple contents: %+v", rows)
	}

	total, err := st.TotalFingerprints(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 fingerprints indexed for song 1, got %d", total)
	}
}

func TestGetCouplesChunksAcrossManyHashes(t *testing.T) {
	st := New()
	ctx := context.Background()

	fingerprints := make(map[uint64]models.Couple, 2500)
	hashes := make([]uint64, 0, 2500)
	for i := uint64(0); i < 2500; i++ {
		fingerprints[i] = models.Couple{SongID: 1, AnchorMs: uint32(i)}
		hashes = append(hashes, i)
	}
	if err := st.StoreFingerprints(ctx, fingerprints); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := st.GetCouples(ctx, hashes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2500 {
		t.Errorf("expected all 2500 hashes to resolve across chunk boundaries, got %d", len(rows))
	}
}

func TestDeleteSongRemovesAllItsFingerprints(t *testing.T) {
	st := New()
	ctx := context.Background()

	if err := st.StoreFingerprints(ctx, map[uint64]models.Couple{
		1: {SongID: 1, AnchorMs: 0},
		2: {SongID: 2, AnchorMs: 0},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := st.DeleteSong(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := st.GetCouples(ctx, []uint64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rows[1]; ok {
		t.Error("expected song 1's fingerprint to be gone")
	}
	if _, ok := rows[2]; !ok {
		t.Error("expected song 2's fingerprint to survive")
	}

	total, err := st.TotalFingerprints(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Errorf("expected fingerprint count reset to 0, got %d", total)
	}
}

func TestAllSongsReturnsEveryRegisteredSong(t *testing.T) {
	st := New()
	ctx := context.Background()

	if _, err := st.RegisterSong(ctx, "A", "X"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := st.RegisterSong(ctx, "B", "Y"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	songs, err := st.AllSongs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(songs) != 2 {
		t.Errorf("expected 2 songs, got %d", len(songs))
	}
}
