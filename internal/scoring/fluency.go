package scoring

import (
	"math"
	"strings"
)

const (
	pauseGapSec     = 0.3
	longPauseGapSec = 1.0
)

// TimedWord is a recognized word with offsets in seconds.
type TimedWord struct {
	Text     string
	StartSec float64
	EndSec   float64
}

// FluencyMetrics are timing heuristics derived from a transcript. They are
// hints for the examiner prompt, not a band on their own.
type FluencyMetrics struct {
	WordCount      int     `json:"word_count"`
	DurationSec    float64 `json:"duration_sec"`
	SpeakingSec    float64 `json:"speaking_sec"`
	WordsPerMinute float64 `json:"words_per_minute"`
	PauseCount     int     `json:"pause_count"`
	LongPauseCount int     `json:"long_pause_count"`
	PauseRatio     float64 `json:"pause_ratio"`
	MeanPauseSec   float64 `json:"mean_pause_sec"`
	FillerCount    int     `json:"filler_count"`
	FillerRate     float64 `json:"filler_rate"`
	LexicalDensity float64 `json:"lexical_density"`
	FluencyHint    float64 `json:"fluency_hint"`
}

var singleFillers = map[string]bool{
	"um": true, "umm": true, "uh": true, "uhh": true, "er": true, "erm": true,
	"hmm": true, "ah": true, "like": true,
}

var pairFillers = map[string]bool{
	"you know": true,
	"i mean":   true,
}

// AnalyzeFluency computes timing metrics. fallbackDuration is used when the
// recognizer returned no word offsets.
func AnalyzeFluency(words []TimedWord, fallbackDuration float64) FluencyMetrics {
	m := FluencyMetrics{WordCount: len(words)}
	if len(words) == 0 {
		m.DurationSec = fallbackDuration
		return m
	}

	timed := words[len(words)-1].EndSec > 0
	if timed {
		m.DurationSec = words[len(words)-1].EndSec - words[0].StartSec
	}
	if m.DurationSec <= 0 {
		m.DurationSec = fallbackDuration
	}

	var pauseTotal float64
	unique := make(map[string]bool, len(words))
	for i, w := range words {
		token := strings.ToLower(strings.Trim(w.Text, ".,!?;:\"'"))
		unique[token] = true
		if singleFillers[token] {
			m.FillerCount++
		}
		if i > 0 {
			prev := strings.ToLower(strings.Trim(words[i-1].Text, ".,!?;:\"'"))
			if pairFillers[prev+" "+token] {
				m.FillerCount++
			}
			if timed {
				gap := w.StartSec - words[i-1].EndSec
				if gap >= pauseGapSec {
					m.PauseCount++
					pauseTotal += gap
				}
				if gap >= longPauseGapSec {
					m.LongPauseCount++
				}
			}
		}
	}

	if m.DurationSec > 0 {
		m.WordsPerMinute = round2(float64(m.WordCount) / m.DurationSec * 60)
		m.PauseRatio = round2(math.Min(pauseTotal/m.DurationSec, 1))
		m.SpeakingSec = round2(m.DurationSec - pauseTotal)
	}
	if m.PauseCount > 0 {
		m.MeanPauseSec = round2(pauseTotal / float64(m.PauseCount))
	}
	m.FillerRate = round2(float64(m.FillerCount) / float64(m.WordCount))
	m.LexicalDensity = round2(float64(len(unique)) / float64(m.WordCount))
	m.FluencyHint = FluencyHint(m)
	return m
}

// FluencyHint maps timing metrics to a rough fluency band.
func FluencyHint(m FluencyMetrics) float64 {
	if m.WordCount == 0 {
		return 0
	}
	band := 9.0
	switch {
	case m.WordsPerMinute < 70:
		band -= 3
	case m.WordsPerMinute < 90:
		band -= 2
	case m.WordsPerMinute < 110:
		band -= 1
	case m.WordsPerMinute > 200:
		band -= 0.5
	}
	switch {
	case m.PauseRatio > 0.35:
		band -= 1.5
	case m.PauseRatio > 0.2:
		band -= 0.5
	}
	switch {
	case m.FillerRate > 0.08:
		band -= 1
	case m.FillerRate > 0.04:
		band -= 0.5
	}
	if m.LongPauseCount > 5 {
		band -= 0.5
	}
	if band < 1 {
		band = 1
	}
	return RoundBand(band)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
