// Package shazam implements the DSP core of the fingerprinting engine:
// spectrogram generation, constellation peak picking, combinatorial hash
// generation, offset-histogram matching, and the confidence gate.
package shazam

import "playtrace/config"

// Profile layers chunked, long-form ingestion controls on top of the
// canonical config.EngineConfig. DSPRatio/MaxFreqHz/FreqBands
// only matter for the audiobook profile's pre-filter and band-relative
// picker; the canonical music profile leaves them at their no-op
// defaults and uses config.EngineConfig's strict local-maxima picker.
type Profile struct {
	config.EngineConfig

	// DSPRatio downsamples the input before the STFT (1 = no downsample).
	DSPRatio int
	// MaxFreqHz is the low-pass cutoff applied before downsampling, only
	// meaningful when DSPRatio > 1.
	MaxFreqHz float64
	// FreqBands, when non-empty, switches peak extraction to the
	// band-relative picker (ExtractPeaksBands) instead of the
	// canonical strict local-maxima picker (ExtractPeaksLocalMax).
	FreqBands [][2]int
	// ChunkDurationSec bounds per-chunk memory during ingest; 0 means
	// process the whole file in one pass.
	ChunkDurationSec float64
}

// DefaultMusicProfile is the canonical profile used for song-length
// clips: full-resolution STFT, strict local-maxima peak picking, whole
// file in one pass.
func DefaultMusicProfile() Profile {
	return Profile{
		EngineConfig:     config.Default(),
		DSPRatio:         1,
		MaxFreqHz:        0,
		FreqBands:        nil,
		ChunkDurationSec: 0,
	}
}

// DefaultAudiobookProfile is tuned for long-form spoken word: aggressive
// downsampling and a coarse band-relative picker keep storage and memory
// practical for multi-hour files, at the cost of fingerprint density.
func DefaultAudiobookProfile() Profile {
	base := config.Default()
	base.WindowSize = 2048
	base.OverlapRatio = 0 // HopSize == WindowSize, no overlap
	base.FanValue = 3

	return Profile{
		EngineConfig: base,
		DSPRatio:     8, // effective rate 5512 Hz, covers speech fine
		MaxFreqHz:    3000,
		FreqBands: [][2]int{
			{0, 100},    // fundamental
			{100, 350},  // first formant region
			{350, 1024}, // higher formants
		},
		ChunkDurationSec: 120,
	}
}
