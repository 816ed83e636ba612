// Package models holds the plain data records shared across the
// fingerprinting core. None of these carry persistence or ORM behaviour;
// storage concerns live behind the store.FingerprintStore and
// playlog.PlayLogSink interfaces.
package models

import "time"

// Song is a registered reference track. Immutable once created.
type Song struct {
	ID     uint32
	Title  string
	Artist string
}

// Fingerprint is a single (hash, anchor_time) pair tied to a song.
type Fingerprint struct {
	Hash     uint64
	SongID   uint32
	AnchorMs uint32
}

// QueryFingerprint is the unassociated counterpart used during
// recognition; it never leaves the scope of one recognize() call.
type QueryFingerprint struct {
	Hash     uint64
	AnchorMs uint32
}

// Couple is the value half of the hash index: everything needed to
// locate a hash hit back to a song and anchor offset, without carrying
// the hash itself (the hash is the map/store key).
type Couple struct {
	SongID   uint32
	AnchorMs uint32
}

// MatchResult is the positive outcome of a recognize() call.
type MatchResult struct {
	SongID        uint32
	OffsetFrames  int
	OffsetSeconds float64
	Votes         int
	InputConf     float64
	DBConf        float64
	TotalMs       float64
	FingerprintMs float64
	QueryMs       float64
}

// MatchOutcome is the tagged union recognize() always returns: exactly
// one of Positive or Reason is set.
type MatchOutcome struct {
	Positive *MatchResult
	Reason   string // one of the closed Reason* tags when Positive == nil
}

// Closed set of negative-outcome reason tags.
const (
	ReasonNoFingerprints = "no_fingerprints_extracted"
	ReasonNoIndexHits    = "no_index_hits"
	ReasonNoAlignment    = "no_offset_alignment"
	ReasonLowConfidence  = "low_confidence"
)

// IngestReport summarizes one successful ingest() call.
type IngestReport struct {
	FingerprintsWritten uint64
	DurationSeconds     float64
}

// MatchRecord is an append-only positive identification awaiting
// aggregation into a PlaySession. ProgramID is an optional pass-through
// field — the aggregator never groups by it.
type MatchRecord struct {
	SongID    uint32
	StationID uint32
	ProgramID *uint32
	MatchedAt time.Time
}

// PlaySession is a validated, non-overlapping play interval ready for
// royalty accounting.
type PlaySession struct {
	SongID        uint32
	StationID     uint32
	StartTime     time.Time
	StopTime      time.Time
	Duration      time.Duration
	RoyaltyAmount float64
}
