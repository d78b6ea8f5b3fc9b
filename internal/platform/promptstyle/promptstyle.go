// Package promptstyle prefixes system prompts with the house rules every
// model call shares.
package promptstyle

import "strings"

const marker = "IELTS_PROMPT_STYLE_V1"

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// ApplySystem is idempotent: a prompt that already carries the marker is
// returned unchanged.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}
	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou work for an IELTS preparation platform.")
	b.WriteString("\nUse British English spelling.")
	b.WriteString("\nJudge only against the public IELTS band descriptors supplied in the prompt.")
	b.WriteString("\nNever invent exam results, official scores or examiner identities.")
	if mode == ModeJSON {
		b.WriteString("\nReturn exactly one JSON object matching the schema, with no extra keys or prose.")
	} else {
		b.WriteString("\nKeep answers short and concrete. Prefer examples over theory.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
