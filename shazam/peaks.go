package shazam

// Peak is a single constellation point: a time/frequency bin pair that
// stood out from the spectrogram. Transient — never persisted directly,
// only ever consumed by the hash generator.
type Peak struct {
	FreqBin   int // frequency bin index into the spectrogram row
	TimeFrame int // frame index into the spectrogram
	Freq      float64
	Time      float64
}

// ExtractPeaksLocalMax is the canonical peak picker: a
// cell (f, t) is a peak iff it clears amp_min and is strictly greater
// than every other cell in the (2*rho+1)x(2*rho+1) square neighborhood
// centered on it. Boundary cells within rho of any edge are excluded.
// Output is sorted by time ascending then frequency ascending, since
// hash generation depends on time-sorted peaks (PEAK_SORT = true).
func ExtractPeaksLocalMax(spectrogram [][]float64, effectiveSampleRate int, p Profile) []Peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	rho := p.PeakNeighbors
	if rho < 0 {
		rho = 0
	}

	hop := p.HopSize()
	if hop <= 0 {
		hop = p.WindowSize
	}
	frameDuration := float64(hop) / float64(effectiveSampleRate)
	freqResolution := float64(effectiveSampleRate) / float64(p.WindowSize)

	var peaks []Peak
	for t := rho; t < nFrames-rho; t++ {
		row := spectrogram[t]
		for f := rho; f < nBins-rho && f < len(row)-rho; f++ {
			val := row[f]
			if val <= p.AmpMin {
				continue
			}
			if isStrictLocalMax(spectrogram, t, f, rho) {
				peaks = append(peaks, Peak{
					FreqBin:   f,
					TimeFrame: t,
					Freq:      float64(f) * freqResolution,
					Time:      float64(t) * frameDuration,
				})
			}
		}
	}

	// already produced in (t, f) ascending order by the loop nesting
	// above, but sort explicitly since that invariant is load-bearing
	// for hash generation, not incidental.
	sortPeaks(peaks)
	return peaks
}

func isStrictLocalMax(spectrogram [][]float64, t, f, rho int) bool {
	val := spectrogram[t][f]
	for dt := -rho; dt <= rho; dt++ {
		row := spectrogram[t+dt]
		for df := -rho; df <= rho; df++ {
			if dt == 0 && df == 0 {
				continue
			}
			if row[f+df] >= val {
				return false
			}
		}
	}
	return true
}

func sortPeaks(peaks []Peak) {
	// insertion sort is fine here: peaks are already near-sorted by
	// construction (outer loop over t), this just guards the invariant.
	for i := 1; i < len(peaks); i++ {
		j := i
		for j > 0 && peakLess(peaks[j], peaks[j-1]) {
			peaks[j], peaks[j-1] = peaks[j-1], peaks[j]
			j--
		}
	}
}

func peakLess(a, b Peak) bool {
	if a.TimeFrame != b.TimeFrame {
		return a.TimeFrame < b.TimeFrame
	}
	return a.FreqBin < b.FreqBin
}

// ExtractPeaksBands is a band-relative picker kept for the audiobook
// profile: per frame, take the strongest bin in each configured
// frequency band and keep it only if it beats the per-frame band
// average. Cheaper than the strict local-maxima scan and tuned for
// long-form speech rather than music — an additive, non-canonical
// variant, not a replacement for the canonical picker.
func ExtractPeaksBands(spectrogram [][]float64, effectiveSampleRate int, p Profile) []Peak {
	if len(spectrogram) == 0 {
		return nil
	}

	type bandMax struct {
		mag     float64
		freqIdx int
	}

	hop := p.HopSize()
	if hop <= 0 {
		hop = p.WindowSize
	}
	frameDuration := float64(hop) / float64(effectiveSampleRate)
	freqResolution := float64(effectiveSampleRate) / float64(p.WindowSize)
	halfWindow := p.WindowSize / 2

	var peaks []Peak
	for frameIdx, frame := range spectrogram {
		var maxMags []float64
		var freqIndices []int

		for _, band := range p.FreqBands {
			hi := band[1]
			if hi > halfWindow {
				hi = halfWindow
			}
			if hi > len(frame) {
				hi = len(frame)
			}
			if band[0] >= hi {
				continue
			}

			var best bandMax
			best.mag = p.AmpMin
			for idx := band[0]; idx < hi; idx++ {
				if frame[idx] > best.mag {
					best = bandMax{frame[idx], idx}
				}
			}
			if best.freqIdx == 0 && best.mag == p.AmpMin {
				continue
			}

			maxMags = append(maxMags, best.mag)
			freqIndices = append(freqIndices, best.freqIdx)
		}

		if len(maxMags) == 0 {
			continue
		}

		var sum float64
		for _, m := range maxMags {
			sum += m
		}
		avg := sum / float64(len(maxMags))

		for i, mag := range maxMags {
			if mag > avg {
				peaks = append(peaks, Peak{
					TimeFrame: frameIdx,
					FreqBin:   freqIndices[i],
					Time:      float64(frameIdx) * frameDuration,
					Freq:      float64(freqIndices[i]) * freqResolution,
				})
			}
		}
	}

	sortPeaks(peaks)
	return peaks
}
