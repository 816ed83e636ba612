package shazam

import (
	"context"

	"playtrace/models"
	"playtrace/store"
)

// minAlignmentVotes is the floor below which a histogram "winner" is
// indistinguishable from noise scatter: a single matched hash can never
// represent a real alignment, so it is reported as no_offset_alignment
// rather than run through the confidence thresholds as low_confidence.
const minAlignmentVotes = 2

// Timings carries the stage-by-stage breakdown MatchResult reports,
// measured by the caller (engine.Recognize) since this package has no
// notion of wall-clock stages on its own.
type Timings struct {
	TotalMs       float64
	FingerprintMs float64
	QueryMs       float64
}

// BuildOutcome runs the matcher then the confidence gate:
// MIN_MATCH_COUNT votes, MIN_INPUT_CONF, MIN_DB_CONF must all
// clear for a positive outcome, otherwise a negative with a reason tag
// from the closed set.
func BuildOutcome(ctx context.Context, query []models.QueryFingerprint, st store.FingerprintStore, p Profile, t Timings) (models.MatchOutcome, error) {
	if len(query) == 0 {
		return models.MatchOutcome{Reason: models.ReasonNoFingerprints}, nil
	}

	cand, found, err := Match(ctx, query, st)
	if err != nil {
		return models.MatchOutcome{}, err
	}
	if !found {
		return models.MatchOutcome{Reason: models.ReasonNoIndexHits}, nil
	}
	if cand.Votes < minAlignmentVotes {
		return models.MatchOutcome{Reason: models.ReasonNoAlignment}, nil
	}

	nSong, err := st.TotalFingerprints(ctx, cand.SongID)
	if err != nil {
		return models.MatchOutcome{}, err
	}

	inputConf := percentOf(cand.Votes, len(query))
	dbConf := percentOf(cand.Votes, int(nSong))

	if cand.Votes < p.MinMatchCount || inputConf < p.MinInputConf || dbConf < p.MinDBConf {
		return models.MatchOutcome{Reason: models.ReasonLowConfidence}, nil
	}

	hop := p.HopSize()
	if hop <= 0 {
		hop = p.WindowSize
	}

	return models.MatchOutcome{
		Positive: &models.MatchResult{
			SongID:        cand.SongID,
			OffsetFrames:  cand.Delta,
			OffsetSeconds: float64(cand.Delta*hop) / float64(p.SampleRate),
			Votes:         cand.Votes,
			InputConf:     inputConf,
			DBConf:        dbConf,
			TotalMs:       t.TotalMs,
			FingerprintMs: t.FingerprintMs,
			QueryMs:       t.QueryMs,
		},
	}, nil
}

func percentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
