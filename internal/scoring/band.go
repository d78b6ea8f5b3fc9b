package scoring

import (
	"fmt"
	"math"
)

const (
	MinBand = 0.0
	MaxBand = 9.0
)

// RoundBand rounds to the nearest half band. Averages ending in .25 go up to
// the next half band and averages ending in .75 go up to the next whole band.
func RoundBand(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return ClampBand(math.Floor(x*2+0.5+1e-9) / 2)
}

func ClampBand(x float64) float64 {
	if x < MinBand {
		return MinBand
	}
	if x > MaxBand {
		return MaxBand
	}
	return x
}

// ValidBand reports whether b is in range and on a half-band step.
func ValidBand(b float64) bool {
	if b < MinBand || b > MaxBand {
		return false
	}
	return math.Abs(b*2-math.Round(b*2)) < 1e-9
}

// OverallBand averages the four skill bands.
func OverallBand(listening, reading, writing, speaking float64) float64 {
	return RoundBand((listening + reading + writing + speaking) / 4)
}

// OverallFromMap requires a band for every one of the four skills.
func OverallFromMap(bands map[string]float64) (float64, error) {
	var l, r, w, s float64
	var ok bool
	if l, ok = bands["listening"]; !ok {
		return 0, fmt.Errorf("missing listening band")
	}
	if r, ok = bands["reading"]; !ok {
		return 0, fmt.Errorf("missing reading band")
	}
	if w, ok = bands["writing"]; !ok {
		return 0, fmt.Errorf("missing writing band")
	}
	if s, ok = bands["speaking"]; !ok {
		return 0, fmt.Errorf("missing speaking band")
	}
	return OverallBand(l, r, w, s), nil
}
