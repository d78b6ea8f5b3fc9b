package srs

import (
	"math"
	"time"
)

const (
	MinEaseFactor     = 1.3
	DefaultEaseFactor = 2.5
	MaxQuality        = 5
)

// SM2 schedules reviews with the SuperMemo-2 algorithm.
type SM2 struct {
	PassThreshold    int
	MaxInterval      int
	InitialIntervals []int
}

func DefaultSM2() *SM2 {
	return &SM2{
		PassThreshold:    3,
		MaxInterval:      365,
		InitialIntervals: []int{1, 3, 7, 14},
	}
}

// State is the per-card scheduling state.
type State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

// Review applies a quality grade (0..5) and returns the next state and the
// time the card is due again.
func (s *SM2) Review(st State, quality int, now time.Time) (State, time.Time) {
	if quality < 0 {
		quality = 0
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}
	if st.EaseFactor < MinEaseFactor {
		st.EaseFactor = DefaultEaseFactor
	}

	q := float64(MaxQuality - quality)
	ef := st.EaseFactor + (0.1 - q*(0.08+q*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	next := State{EaseFactor: math.Round(ef*100) / 100}

	if quality >= s.PassThreshold {
		next.Repetitions = st.Repetitions + 1
		if next.Repetitions <= len(s.InitialIntervals) {
			next.IntervalDays = s.InitialIntervals[next.Repetitions-1]
		} else {
			next.IntervalDays = int(math.Round(float64(st.IntervalDays) * next.EaseFactor))
		}
	} else {
		next.Repetitions = 0
		next.IntervalDays = 1
	}
	if s.MaxInterval > 0 && next.IntervalDays > s.MaxInterval {
		next.IntervalDays = s.MaxInterval
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}
	return next, now.Add(time.Duration(next.IntervalDays) * 24 * time.Hour)
}
