package scoring

import (
	"fmt"
	"sort"
)

const (
	CriterionTaskAchievement   = "task_achievement"
	CriterionTaskResponse      = "task_response"
	CriterionCoherenceCohesion = "coherence_cohesion"
	CriterionLexicalResource   = "lexical_resource"
	CriterionGrammaticalRange  = "grammatical_range"
	CriterionFluencyCoherence  = "fluency_coherence"
	CriterionPronunciation     = "pronunciation"
)

// CriteriaBands maps a criterion name to its band.
type CriteriaBands map[string]float64

func WritingCriteria(taskType string) []string {
	task := CriterionTaskResponse
	if taskType == "task1" {
		task = CriterionTaskAchievement
	}
	return []string{task, CriterionCoherenceCohesion, CriterionLexicalResource, CriterionGrammaticalRange}
}

func SpeakingCriteria() []string {
	return []string{CriterionFluencyCoherence, CriterionLexicalResource, CriterionGrammaticalRange, CriterionPronunciation}
}

// Normalize clamps every criterion to a half band and checks that exactly the
// expected criteria are present.
func (c CriteriaBands) Normalize(expected []string) (CriteriaBands, error) {
	out := make(CriteriaBands, len(expected))
	for _, name := range expected {
		v, ok := c[name]
		if !ok {
			return nil, fmt.Errorf("missing criterion %q", name)
		}
		out[name] = RoundBand(v)
	}
	return out, nil
}

// SkillBand is the rounded mean of the criteria.
func (c CriteriaBands) SkillBand() float64 {
	if len(c) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range c {
		sum += v
	}
	return RoundBand(sum / float64(len(c)))
}

// Weakest returns the lowest criterion; ties resolve alphabetically.
func (c CriteriaBands) Weakest() (string, float64, bool) {
	if len(c) == 0 {
		return "", 0, false
	}
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	best := names[0]
	for _, n := range names[1:] {
		if c[n] < c[best] {
			best = n
		}
	}
	return best, c[best], true
}

const (
	Task1MinWords  = 150
	Task2MinWords  = 250
	underLengthCap = 5.0
)

func MinWords(taskType string) int {
	if taskType == "task1" {
		return Task1MinWords
	}
	return Task2MinWords
}

// ApplyUnderLength caps the task criterion for responses under the word
// minimum. It reports whether the cap changed anything.
func ApplyUnderLength(c CriteriaBands, taskType string, words int) bool {
	if words >= MinWords(taskType) {
		return false
	}
	key := WritingCriteria(taskType)[0]
	if v, ok := c[key]; ok && v > underLengthCap {
		c[key] = underLengthCap
		return true
	}
	return false
}
