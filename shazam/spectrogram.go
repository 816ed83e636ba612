package shazam

import (
	"errors"
	"math"
	"math/cmplx"
)

// logFloorDB is the value substituted for zero-magnitude bins so the
// log-magnitude matrix never contains -Inf.
const logFloorDB = -160.0

// Spectrogram converts a mono PCM sample vector into a log-magnitude
// (dB) time/frequency matrix: Hann window, real FFT, magnitude, then
// 20*log10(mag) with a finite floor for silence. When p.DSPRatio > 1 the
// signal is low-pass filtered and downsampled first (the audiobook
// profile's long-form knob); the canonical music profile leaves the
// signal untouched. Returns the matrix and the effective sample rate the
// STFT actually ran at, which the peak picker needs for frequency
// resolution.
func Spectrogram(samples []float64, sampleRate int, p Profile) ([][]float64, int, error) {
	working := samples
	effectiveRate := sampleRate

	if p.DSPRatio > 1 {
		filtered := LowPassFilter(p.MaxFreqHz, float64(sampleRate), samples)
		targetRate := sampleRate / p.DSPRatio

		downsampled, err := Downsample(filtered, sampleRate, targetRate)
		if err != nil {
			return nil, 0, err
		}
		working = downsampled
		effectiveRate = targetRate
	}

	window := make([]float64, p.WindowSize)
	for i := range window {
		theta := 2 * math.Pi * float64(i) / float64(p.WindowSize-1)
		window[i] = 0.5 - 0.5*math.Cos(theta) // hanning
	}

	hop := p.HopSize()
	if hop <= 0 {
		hop = p.WindowSize
	}

	spectrogram := make([][]float64, 0, len(working)/hop)

	for start := 0; start+p.WindowSize <= len(working); start += hop {
		frame := make([]float64, p.WindowSize)
		copy(frame, working[start:start+p.WindowSize])

		for j := range window {
			frame[j] *= window[j]
		}

		fftResult := FFT(frame)

		magnitudeDB := make([]float64, len(fftResult)/2)
		for j := range magnitudeDB {
			mag := cmplx.Abs(fftResult[j])
			if mag == 0 {
				magnitudeDB[j] = logFloorDB
				continue
			}
			db := 20 * math.Log10(mag)
			if db < logFloorDB {
				db = logFloorDB
			}
			magnitudeDB[j] = db
		}

		spectrogram = append(spectrogram, magnitudeDB)
	}

	return spectrogram, effectiveRate, nil
}

// LowPassFilter is a first-order low-pass filter that attenuates high
// frequencies above cutoffFrequency.
func LowPassFilter(cutoffFrequency, sampleRate float64, input []float64) []float64 {
	rc := 1.0 / (2 * math.Pi * cutoffFrequency)
	dt := 1.0 / sampleRate
	alpha := dt / (rc + dt)

	filtered := make([]float64, len(input))
	var prevOutput float64

	for i, x := range input {
		if i == 0 {
			filtered[i] = x * alpha
		} else {
			filtered[i] = alpha*x + (1-alpha)*prevOutput
		}
		prevOutput = filtered[i]
	}
	return filtered
}

// Downsample averages input down from originalSampleRate to
// targetSampleRate.
func Downsample(input []float64, originalSampleRate, targetSampleRate int) ([]float64, error) {
	if targetSampleRate <= 0 || originalSampleRate <= 0 {
		return nil, errors.New("sample rates must be positive")
	}
	if targetSampleRate > originalSampleRate {
		return nil, errors.New("target sample rate must be less than or equal to original sample rate")
	}

	ratio := originalSampleRate / targetSampleRate
	if ratio <= 0 {
		return nil, errors.New("invalid ratio calculated from sample rates")
	}

	resampled := make([]float64, 0, len(input)/ratio)
	for i := 0; i < len(input); i += ratio {
		end := i + ratio
		if end > len(input) {
			end = len(input)
		}

		sum := 0.0
		for j := i; j < end; j++ {
			sum += input[j]
		}
		resampled = append(resampled, sum/float64(end-i))
	}

	return resampled, nil
}
