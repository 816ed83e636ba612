package shazam

import "testing"

func makeFlatSpectrogram(frames, bins int, floor float64) [][]float64 {
	spec := make([][]float64, frames)
	for t := range spec {
		row := make([]float64, bins)
		for f := range row {
			row[f] = floor
		}
		spec[t] = row
	}
	return spec
}

func TestExtractPeaksLocalMaxFindsIsolatedSpike(t *testing.T) {
	p := DefaultMusicProfile()
	p.AmpMin = -50
	p.PeakNeighbors = 2

	spec := makeFlatSpectrogram(20, 20, -100)
	spec[10][10] = 0 // single spike, well clear of every neighbor

	peaks := ExtractPeaksLocalMax(spec, 44100, p)
	if len(peaks) != 1 {
		t.Fatalf("expected exactly 1 peak, got %d", len(peaks))
	}
	if peaks[0].TimeFrame != 10 || peaks[0].FreqBin != 10 {
		t.Errorf("expected peak at (t=10, f=10), got (t=%d, f=%d)", peaks[0].TimeFrame, peaks[0].FreqBin)
	}
}

func TestExtractPeaksLocalMaxRejectsBelowAmpMin(t *testing.T) {
	p := DefaultMusicProfile()
	p.AmpMin = -10
	p.PeakNeighbors = 1

	spec := makeFlatSpectrogram(10, 10, -100)
	spec[5][5] = -20 // above the flat floor, but still below AmpMin

	peaks := ExtractPeaksLocalMax(spec, 44100, p)
	if len(peaks) != 0 {
		t.Fatalf("expected no peaks below amp_min, got %d", len(peaks))
	}
}

func TestExtractPeaksLocalMaxExcludesBoundaryCells(t *testing.T) {
	p := DefaultMusicProfile()
	p.AmpMin = -50
	p.PeakNeighbors = 3

	spec := makeFlatSpectrogram(10, 10, -100)
	spec[0][0] = 0 // would be a peak but sits inside the excluded border

	peaks := ExtractPeaksLocalMax(spec, 44100, p)
	if len(peaks) != 0 {
		t.Fatalf("expected boundary spike to be excluded, got %d peaks", len(peaks))
	}
}

func TestExtractPeaksLocalMaxOutputIsTimeSorted(t *testing.T) {
	p := DefaultMusicProfile()
	p.AmpMin = -50
	p.PeakNeighbors = 1

	spec := makeFlatSpectrogram(20, 10, -100)
	spec[15][5] = 0
	spec[5][3] = 0
	spec[10][7] = 0

	peaks := ExtractPeaksLocalMax(spec, 44100, p)
	if len(peaks) != 3 {
		t.Fatalf("expected 3 peaks, got %d", len(peaks))
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].TimeFrame < peaks[i-1].TimeFrame {
			t.Fatalf("peaks not sorted by time: %+v", peaks)
		}
	}
}

func TestExtractPeaksBandsKeepsAboveFrameAverage(t *testing.T) {
	p := DefaultAudiobookProfile()
	p.AmpMin = -100

	frame := make([]float64, 1024)
	for i := range frame {
		frame[i] = -100
	}
	frame[50] = 0     // dominates band {0, 100}
	frame[200] = -60  // weaker peak in band {100, 350}
	frame[500] = -80  // weakest peak in band {350, 1024}

	peaks := ExtractPeaksBands([][]float64{frame}, 5512, p)
	if len(peaks) == 0 {
		t.Fatal("expected at least one band peak above the frame average")
	}

	foundDominant := false
	for _, peak := range peaks {
		if peak.FreqBin == 50 {
			foundDominant = true
		}
	}
	if !foundDominant {
		t.Errorf("expected the dominant bin (50) to clear the frame average, got %+v", peaks)
	}
}
