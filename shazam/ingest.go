package shazam

import (
	"fmt"
	"math"
	"os"

	"playtrace/models"
	"playtrace/utils"
	"playtrace/wav"
)

// chunkOverlapSec is the overlap between consecutive chunks so peak
// pairs that straddle a chunk boundary aren't lost entirely.
const chunkOverlapSec = 5.0

// FingerprintFile fingerprints an entire WAV file for songID, using
// p.ChunkDurationSec to decide between a single-pass whole-file read
// (typical song-length clips) and the bounded-memory chunked path
// (long-form audiobook/speech files where loading the whole decode
// would be wasteful). Returns the combined fingerprint set and the
// file's total duration in seconds.
func FingerprintFile(inputPath string, songID uint32, p Profile) (map[uint64]models.Couple, float64, error) {
	if p.ChunkDurationSec <= 0 {
		return fingerprintWhole(inputPath, songID, p)
	}
	return fingerprintChunked(inputPath, songID, p)
}

func fingerprintWhole(inputPath string, songID uint32, p Profile) (map[uint64]models.Couple, float64, error) {
	info, err := wav.ReadWavInfo(inputPath)
	if err != nil {
		return nil, 0, fmt.Errorf("reading wav: %v", err)
	}

	peaks, _, err := pickPeaks(info.Samples, info.SampleRate, p)
	if err != nil {
		return nil, 0, err
	}

	return Fingerprint(peaks, songID, p), info.Duration, nil
}

// fingerprintChunked processes the file in bounded-memory chunks via
// ffmpeg segment extraction: each chunk is independently decoded,
// spectrogram'd, peak-picked, and merged into the result map, so peak
// memory is proportional to ChunkDurationSec, not total file length.
func fingerprintChunked(inputPath string, songID uint32, p Profile) (map[uint64]models.Couple, float64, error) {
	duration, err := wav.GetAudioDuration(inputPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get audio duration: %v", err)
	}

	fingerprints := make(map[uint64]models.Couple)

	chunkDur := p.ChunkDurationSec
	step := chunkDur - chunkOverlapSec
	if step <= 0 {
		step = chunkDur
	}

	hop := p.HopSize()
	if hop <= 0 {
		hop = p.WindowSize
	}

	for start := 0.0; start < duration; start += step {
		dur := chunkDur
		if start+dur > duration {
			dur = duration - start
		}
		if dur <= 0 {
			break
		}

		chunkPath, err := wav.ExtractChunkAsWAV(inputPath, start, dur)
		if err != nil {
			return nil, 0, fmt.Errorf("chunk extraction at %.0fs failed: %v", start, err)
		}

		info, err := wav.ReadWavInfo(chunkPath)
		os.Remove(chunkPath)
		if err != nil {
			return nil, 0, fmt.Errorf("reading chunk wav at %.0fs failed: %v", start, err)
		}

		peaks, effRate, err := pickPeaks(info.Samples, info.SampleRate, p)
		if err != nil {
			return nil, 0, fmt.Errorf("spectrogram at %.0fs failed: %v", start, err)
		}

		// shift frame indices so the hash generator's time deltas stay
		// correct across the full file, not just within this chunk.
		frameOffset := int(math.Round(start * float64(effRate) / float64(hop)))
		for i := range peaks {
			peaks[i].TimeFrame += frameOffset
			peaks[i].Time += start
		}

		utils.ExtendMap(fingerprints, Fingerprint(peaks, songID, p))
	}

	return fingerprints, duration, nil
}

func pickPeaks(samples []float64, sampleRate int, p Profile) ([]Peak, int, error) {
	spectrogram, effRate, err := Spectrogram(samples, sampleRate, p)
	if err != nil {
		return nil, 0, err
	}

	if len(p.FreqBands) > 0 {
		return ExtractPeaksBands(spectrogram, effRate, p), effRate, nil
	}
	return ExtractPeaksLocalMax(spectrogram, effRate, p), effRate, nil
}

// FingerprintQueryFile decodes a short query clip and fingerprints it
// for recognition; always whole-file, since query clips are already
// short by construction.
func FingerprintQueryFile(inputPath string, p Profile) ([]models.QueryFingerprint, error) {
	info, err := wav.ReadWavInfo(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading wav: %v", err)
	}

	peaks, _, err := pickPeaks(info.Samples, info.SampleRate, p)
	if err != nil {
		return nil, err
	}

	return FingerprintQuery(peaks, p), nil
}
