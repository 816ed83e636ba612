package shazam

import (
	"fmt"
	"hash/fnv"

	"playtrace/models"
)

// maxHashHexChars is the width of a 64-bit value printed in hex.
const maxHashHexChars = 16

// Fingerprint generates (hash, anchor_time) fingerprints from an
// ordered, time-sorted peak list: for each anchor peak,
// pair it with each of the next fan_value-1 peaks, keep pairs whose time
// delta falls in [min_hash_dt, max_hash_dt], and hash the canonical
// string "f1|f2|dt" with a deterministic non-cryptographic 64-bit hash,
// truncated to hash_reduction hex characters.
func Fingerprint(peaks []Peak, songID uint32, p Profile) map[uint64]models.Couple {
	fingerprints := make(map[uint64]models.Couple)

	for i, anchor := range peaks {
		last := i + p.FanValue
		if last > len(peaks) {
			last = len(peaks)
		}

		for j := i + 1; j < last; j++ {
			target := peaks[j]
			deltaT := target.TimeFrame - anchor.TimeFrame
			if deltaT < p.MinHashDeltaT || deltaT > p.MaxHashDeltaT {
				continue
			}

			h := hashPeakPair(anchor.FreqBin, target.FreqBin, deltaT, p.HashReduction)
			fingerprints[h] = models.Couple{
				SongID:   songID,
				AnchorMs: uint32(anchor.TimeFrame),
			}
		}
	}

	return fingerprints
}

// FingerprintQuery is Fingerprint's counterpart for an unassociated
// query clip: same pairing/hash logic, but returns query fingerprints
// with no song association.
func FingerprintQuery(peaks []Peak, p Profile) []models.QueryFingerprint {
	var out []models.QueryFingerprint

	for i, anchor := range peaks {
		last := i + p.FanValue
		if last > len(peaks) {
			last = len(peaks)
		}

		for j := i + 1; j < last; j++ {
			target := peaks[j]
			deltaT := target.TimeFrame - anchor.TimeFrame
			if deltaT < p.MinHashDeltaT || deltaT > p.MaxHashDeltaT {
				continue
			}

			h := hashPeakPair(anchor.FreqBin, target.FreqBin, deltaT, p.HashReduction)
			out = append(out, models.QueryFingerprint{
				Hash:     h,
				AnchorMs: uint32(anchor.TimeFrame),
			})
		}
	}

	return out
}

// hashPeakPair hashes the canonical "f1|f2|dt" string with FNV-1a 64-bit
// (deterministic, non-cryptographic, chosen over a cryptographic hash
// since collision resistance against an adversary isn't a goal here)
// and truncates the result to hexChars hex digits by
// dropping the least-significant bits. Identical inputs always produce
// identical output across processes and between ingest and query, the
// determinism that lets a query hash land in the same index bucket a
// stored fingerprint wrote.
func hashPeakPair(freq1, freq2, deltaT, hexChars int) uint64 {
	canonical := fmt.Sprintf("%d|%d|%d", freq1, freq2, deltaT)

	h := fnv.New64a()
	_, _ = h.Write([]byte(canonical))
	full := h.Sum64()

	return truncateHash(full, hexChars)
}

// truncateHash keeps only the top hexChars*4 bits of a 64-bit value,
// matching "truncate to the first L hex characters" for a hex-printed
// digest. hexChars >= 16 is a no-op since the hash is only 64 bits wide.
func truncateHash(full uint64, hexChars int) uint64 {
	if hexChars >= maxHashHexChars || hexChars <= 0 {
		return full
	}
	dropBits := uint((maxHashHexChars - hexChars) * 4)
	return full >> dropBits
}
