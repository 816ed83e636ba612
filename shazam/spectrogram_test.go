package shazam

import (
	"math"
	"testing"
)

func TestSpectrogramNeverContainsInf(t *testing.T) {
	p := DefaultMusicProfile()
	p.WindowSize = 256
	p.OverlapRatio = 0.5

	silence := make([]float64, 2048)
	spec, rate, err := Spectrogram(silence, 44100, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 44100 {
		t.Errorf("expected unchanged sample rate for DSPRatio=1, got %d", rate)
	}
	if len(spec) == 0 {
		t.Fatal("expected at least one frame")
	}

	for _, row := range spec {
		for _, v := range row {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				t.Fatalf("spectrogram contains non-finite value %v", v)
			}
			if v < logFloorDB {
				t.Errorf("value %v fell below the floor %v", v, logFloorDB)
			}
		}
	}
}

func TestSpectrogramSineToneHasDominantBin(t *testing.T) {
	p := DefaultMusicProfile()
	p.WindowSize = 1024
	p.OverlapRatio = 0

	const sampleRate = 44100
	const freq = 1000.0

	samples := make([]float64, sampleRate/2)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	spec, effRate, err := Spectrogram(samples, sampleRate, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	freqResolution := float64(effRate) / float64(p.WindowSize)
	expectedBin := int(freq / freqResolution)

	frame := spec[len(spec)/2]
	peakBin, peakVal := 0, math.Inf(-1)
	for i, v := range frame {
		if v > peakVal {
			peakVal = v
			peakBin = i
		}
	}

	if math.Abs(float64(peakBin-expectedBin)) > 2 {
		t.Errorf("expected dominant bin near %d, got %d", expectedBin, peakBin)
	}
}

func TestSpectrogramDownsamplesWhenDSPRatioSet(t *testing.T) {
	p := DefaultAudiobookProfile()
	samples := make([]float64, 44100)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 44100)
	}

	_, effRate, err := Spectrogram(samples, 44100, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effRate != 44100/p.DSPRatio {
		t.Errorf("expected effective rate %d, got %d", 44100/p.DSPRatio, effRate)
	}
}
