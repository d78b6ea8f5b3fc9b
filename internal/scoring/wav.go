package scoring

import (
	"bytes"
	"errors"
	"math"

	"github.com/go-audio/wav"
)

// AcousticFeatures are coarse signal statistics for PCM audio. They are
// placeholders for a pronunciation model.
type AcousticFeatures struct {
	SampleRate       int     `json:"sample_rate"`
	Channels         int     `json:"channels"`
	DurationSec      float64 `json:"duration_sec"`
	RMS              float64 `json:"rms"`
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
	SilenceRatio     float64 `json:"silence_ratio"`
}

var ErrNotPCMWAV = errors.New("not a 16-bit PCM wav file")

const (
	wavFormatPCM    = 1
	silenceFrameRMS = 0.01
)

// AnalyzeWAV decodes a 16-bit PCM wav buffer. Only the first channel is
// measured.
func AnalyzeWAV(buf []byte) (*AcousticFeatures, error) {
	dec := wav.NewDecoder(bytes.NewReader(buf))
	if !dec.IsValidFile() || dec.WavAudioFormat != wavFormatPCM || dec.BitDepth != 16 || dec.SampleRate == 0 {
		return nil, ErrNotPCMWAV
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, ErrNotPCMWAV
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	f := &AcousticFeatures{SampleRate: sampleRate, Channels: channels}
	n := len(pcm.Data) / channels
	if n == 0 {
		return f, nil
	}
	f.DurationSec = round2(float64(n) / float64(sampleRate))

	window := sampleRate / 50
	if window < 1 {
		window = 1
	}
	var sumSq, winSq float64
	var crossings, winLen, windows, silent int
	prev := 0.0
	for i := 0; i < n; i++ {
		s := float64(pcm.Data[i*channels]) / 32768.0
		sumSq += s * s
		winSq += s * s
		winLen++
		if i > 0 && (s >= 0) != (prev >= 0) {
			crossings++
		}
		prev = s
		if winLen == window {
			windows++
			if math.Sqrt(winSq/float64(winLen)) < silenceFrameRMS {
				silent++
			}
			winSq, winLen = 0, 0
		}
	}
	f.RMS = math.Round(math.Sqrt(sumSq/float64(n))*10000) / 10000
	f.ZeroCrossingRate = math.Round(float64(crossings)/float64(n)*10000) / 10000
	if windows > 0 {
		f.SilenceRatio = round2(float64(silent) / float64(windows))
	}
	return f, nil
}
