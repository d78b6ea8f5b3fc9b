package scoring

import (
	"strings"
	"unicode"
)

// CountWords counts whitespace separated tokens that contain at least one
// letter or digit, so stray punctuation and bullets are not words.
func CountWords(text string) int {
	n := 0
	for _, tok := range strings.Fields(text) {
		if strings.IndexFunc(tok, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}
