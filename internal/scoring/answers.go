package scoring

import (
	"sort"
	"strings"
	"unicode"
)

// QuestionResult records how one answer was marked.
type QuestionResult struct {
	QuestionID string   `json:"question_id"`
	Given      string   `json:"given"`
	Accepted   []string `json:"accepted"`
	Correct    bool     `json:"correct"`
}

// ObjectiveResult is the outcome of marking a reading or listening attempt.
type ObjectiveResult struct {
	Correct int              `json:"correct"`
	Total   int              `json:"total"`
	Raw40   int              `json:"raw_40"`
	Band    float64          `json:"band"`
	Results []QuestionResult `json:"results"`
}

// NormalizeAnswer lowercases, trims surrounding punctuation and spaces, then
// collapses inner whitespace so "( The  Harbour . )" matches "the harbour".
func NormalizeAnswer(s string) string {
	s = strings.TrimFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '%' && r != '$')
	})
	return strings.Join(strings.Fields(s), " ")
}

// Alternatives splits an answer key entry like "colour/color" or "A|B".
func Alternatives(key string) []string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := NormalizeAnswer(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func AnswerMatches(given, key string) bool {
	g := NormalizeAnswer(given)
	if g == "" {
		return false
	}
	for _, alt := range Alternatives(key) {
		if g == alt {
			return true
		}
	}
	return false
}

// MarkObjective checks answers against the key and converts the result to a
// band with the named table.
func MarkObjective(table string, key map[string]string, answers map[string]string) (*ObjectiveResult, error) {
	ids := make([]string, 0, len(key))
	for id := range key {
		ids = append(ids, id)
	}
	sortQuestionIDs(ids)

	res := &ObjectiveResult{Total: len(ids), Results: make([]QuestionResult, 0, len(ids))}
	for _, id := range ids {
		given := answers[id]
		ok := AnswerMatches(given, key[id])
		if ok {
			res.Correct++
		}
		res.Results = append(res.Results, QuestionResult{
			QuestionID: id,
			Given:      given,
			Accepted:   Alternatives(key[id]),
			Correct:    ok,
		})
	}
	res.Raw40 = ScaleTo40(res.Correct, res.Total)
	band, err := RawToBand(table, res.Raw40)
	if err != nil {
		return nil, err
	}
	res.Band = band
	return res, nil
}

// sortQuestionIDs orders "2" before "10" when ids are numeric.
func sortQuestionIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if isDigits(a) && isDigits(b) && len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
