package shazam

import (
	"context"

	"playtrace/models"
	"playtrace/store"
)

// Candidate is the matcher's raw top-vote result, before the confidence
// gate decides whether it's trustworthy.
type Candidate struct {
	SongID uint32
	Delta  int // tStored - tQuery, in frames
	Votes  int
}

type matchKey struct {
	songID uint32
	delta  int
}

// Match probes the index for every query hash once, then tallies votes
// into a map[matchKey]int in a single pass over matched rows — O(M) in
// the total number of hash matches, never O(|Q|*|rows|).
// The bool return reports whether the index returned any hits at all.
func Match(ctx context.Context, query []models.QueryFingerprint, st store.FingerprintStore) (Candidate, bool, error) {
	if len(query) == 0 {
		return Candidate{}, false, nil
	}

	hashes := make([]uint64, len(query))
	queryAnchors := make(map[uint64][]uint32, len(query))
	for i, q := range query {
		hashes[i] = q.Hash
		queryAnchors[q.Hash] = append(queryAnchors[q.Hash], q.AnchorMs)
	}

	rows, err := st.GetCouples(ctx, hashes)
	if err != nil {
		return Candidate{}, false, err
	}
	if len(rows) == 0 {
		return Candidate{}, false, nil
	}

	votes := make(map[matchKey]int)
	for hash, couples := range rows {
		anchors := queryAnchors[hash]
		for _, couple := range couples {
			for _, tq := range anchors {
				delta := int(couple.AnchorMs) - int(tq)
				votes[matchKey{songID: couple.SongID, delta: delta}]++
			}
		}
	}

	var best matchKey
	bestVotes := 0
	for k, v := range votes {
		if v > bestVotes || (v == bestVotes && k.songID > best.songID) {
			best, bestVotes = k, v
		}
	}

	return Candidate{SongID: best.songID, Delta: best.delta, Votes: bestVotes}, true, nil
}
