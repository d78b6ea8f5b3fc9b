package srs

import (
	"testing"
	"time"
)

func TestReviewProgression(t *testing.T) {
	s := DefaultSM2()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := State{EaseFactor: DefaultEaseFactor}

	wantIntervals := []int{1, 3, 7, 14}
	for i, want := range wantIntervals {
		var due time.Time
		st, due = s.Review(st, 5, now)
		if st.IntervalDays != want {
			t.Fatalf("review %d: interval got %d want %d", i+1, st.IntervalDays, want)
		}
		if !due.Equal(now.Add(time.Duration(want) * 24 * time.Hour)) {
			t.Fatalf("review %d: due got %v", i+1, due)
		}
	}
	if st.EaseFactor != 2.9 {
		t.Fatalf("ease factor: got %v want 2.9", st.EaseFactor)
	}

	st, _ = s.Review(st, 4, now)
	if st.IntervalDays != 41 {
		t.Fatalf("fifth review: interval got %d want 41", st.IntervalDays)
	}
}

func TestReviewFailureResets(t *testing.T) {
	s := DefaultSM2()
	st := State{EaseFactor: 2.5, IntervalDays: 20, Repetitions: 6}
	next, _ := s.Review(st, 1, time.Now())
	if next.Repetitions != 0 || next.IntervalDays != 1 {
		t.Fatalf("got %+v", next)
	}
	if next.EaseFactor != 1.96 {
		t.Fatalf("ease factor: got %v want 1.96", next.EaseFactor)
	}
}

func TestReviewClampsEaseAndInterval(t *testing.T) {
	s := &SM2{PassThreshold: 3, MaxInterval: 30, InitialIntervals: []int{1}}
	st := State{EaseFactor: 1.3, IntervalDays: 25, Repetitions: 3}
	next, _ := s.Review(st, 3, time.Now())
	if next.EaseFactor != MinEaseFactor {
		t.Fatalf("ease floor: got %v", next.EaseFactor)
	}
	if next.IntervalDays != 30 {
		t.Fatalf("interval cap: got %d", next.IntervalDays)
	}
}
