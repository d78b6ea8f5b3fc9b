package scoring

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestAnalyzeFluency(t *testing.T) {
	words := []TimedWord{
		{Text: "I", StartSec: 0.0, EndSec: 0.2},
		{Text: "um", StartSec: 0.3, EndSec: 0.5},
		{Text: "think", StartSec: 1.8, EndSec: 2.1},
		{Text: "you", StartSec: 2.2, EndSec: 2.3},
		{Text: "know,", StartSec: 2.3, EndSec: 2.6},
		{Text: "travel", StartSec: 3.0, EndSec: 3.6},
	}
	m := AnalyzeFluency(words, 0)
	if m.WordCount != 6 {
		t.Fatalf("WordCount: got %d", m.WordCount)
	}
	if m.DurationSec != 3.6 {
		t.Fatalf("DurationSec: got %v", m.DurationSec)
	}
	if m.PauseCount != 2 || m.LongPauseCount != 1 {
		t.Fatalf("pauses: got %d/%d want 2/1", m.PauseCount, m.LongPauseCount)
	}
	if m.FillerCount != 2 {
		t.Fatalf("FillerCount: got %d want 2", m.FillerCount)
	}
	if m.WordsPerMinute != 100 {
		t.Fatalf("WordsPerMinute: got %v want 100", m.WordsPerMinute)
	}
	if m.FluencyHint <= 0 || m.FluencyHint > 9 {
		t.Fatalf("FluencyHint: got %v", m.FluencyHint)
	}
}

func TestAnalyzeFluencyWithoutTimings(t *testing.T) {
	m := AnalyzeFluency([]TimedWord{{Text: "hello"}, {Text: "there"}}, 6)
	if m.DurationSec != 6 || m.WordsPerMinute != 20 || m.PauseCount != 0 {
		t.Fatalf("got %+v", m)
	}
	empty := AnalyzeFluency(nil, 4)
	if empty.DurationSec != 4 || empty.FluencyHint != 0 {
		t.Fatalf("empty: got %+v", empty)
	}
}

func TestAnalyzeWAV(t *testing.T) {
	const rate = 8000
	samples := make([]int16, rate)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	buf := pcmWAV(rate, samples)

	f, err := AnalyzeWAV(buf)
	if err != nil {
		t.Fatalf("AnalyzeWAV: %v", err)
	}
	if f.SampleRate != rate || f.Channels != 1 || f.DurationSec != 1 {
		t.Fatalf("header: got %+v", f)
	}
	if f.RMS < 0.2 || f.RMS > 0.23 {
		t.Fatalf("RMS: got %v", f.RMS)
	}
	if f.ZeroCrossingRate < 0.1 || f.ZeroCrossingRate > 0.12 {
		t.Fatalf("ZeroCrossingRate: got %v", f.ZeroCrossingRate)
	}
	if _, err := AnalyzeWAV([]byte("ID3 mp3 data")); err != ErrNotPCMWAV {
		t.Fatalf("non-wav: got %v", err)
	}
}

func TestAnalyzeWAVStereoMeasuresFirstChannel(t *testing.T) {
	const rate = 8000
	frames := make([]int16, 2*rate)
	for i := 0; i < rate; i++ {
		frames[2*i] = int16(10000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	var data bytes.Buffer
	_ = binary.Write(&data, binary.LittleEndian, frames)

	f, err := AnalyzeWAV(wavFile(rate, 2, 16, data.Bytes()))
	if err != nil {
		t.Fatalf("AnalyzeWAV: %v", err)
	}
	if f.Channels != 2 || f.DurationSec != 1 {
		t.Fatalf("header: got %+v", f)
	}
	if f.RMS < 0.2 || f.RMS > 0.23 || f.SilenceRatio != 0 {
		t.Fatalf("left channel: got %+v", f)
	}
}

func TestAnalyzeWAVRejectsNon16Bit(t *testing.T) {
	eightBit := make([]byte, 8000)
	for i := range eightBit {
		eightBit[i] = 128
	}
	cases := map[string][]byte{
		"8-bit":     wavFile(8000, 1, 8, eightBit),
		"truncated": []byte("RIFF\x04\x00\x00\x00WAVE"),
		"empty":     nil,
	}
	for name, buf := range cases {
		if _, err := AnalyzeWAV(buf); !errors.Is(err, ErrNotPCMWAV) {
			t.Fatalf("%s: got %v want ErrNotPCMWAV", name, err)
		}
	}
}

func pcmWAV(rate int, samples []int16) []byte {
	var data bytes.Buffer
	_ = binary.Write(&data, binary.LittleEndian, samples)
	return wavFile(rate, 1, 16, data.Bytes())
}

func wavFile(rate, channels, bits int, data []byte) []byte {
	blockAlign := channels * bits / 8
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}
