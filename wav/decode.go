package wav

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavInfo is a decoded, downmixed-to-mono PCM clip ready for the DSP
// core: samples are normalized to [-1.0, 1.0].
type WavInfo struct {
	SampleRate int
	Duration   float64
	Samples    []float64
}

// ReadWavInfo decodes a WAV file natively (no ffmpeg shellout) and
// downmixes any multichannel signal to mono by arithmetic mean across
// channels, per sample frame.
func ReadWavInfo(path string) (*WavInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %v", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm buffer: %v", err)
	}

	samples, err := downmixToMono(buf)
	if err != nil {
		return nil, err
	}

	sampleRate := int(decoder.SampleRate)
	return &WavInfo{
		SampleRate: sampleRate,
		Duration:   float64(len(samples)) / float64(sampleRate),
		Samples:    samples,
	}, nil
}

func downmixToMono(buf *audio.IntBuffer) ([]float64, error) {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float64(int(1) << (uint(bitDepth) - 1))

	nFrames := len(buf.Data) / channels
	samples := make([]float64, nFrames)

	for i := 0; i < nFrames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / maxVal
		}
		samples[i] = sum / float64(channels)
	}

	return samples, nil
}
