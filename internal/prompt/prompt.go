// Package prompt turns stored correction patterns into the context snippet
// the dictation pipeline appends to its LLM system prompt.
package prompt

import "strings"

// Header opens the snippet. The leading blank line separates it from the
// system prompt it is appended to.
const Header = "\n\nUser correction patterns (use these to better understand what the user means):"

// MaxPatterns caps how many patterns end up in the snippet.
const MaxPatterns = 20

// Pattern is one "heard X, meant Y" pair.
type Pattern struct {
	Heard string
	Meant string
}

// Line renders a single pattern. Quotes inside the texts are not escaped.
func Line(p Pattern) string {
	return `- When transcribed as "` + p.Heard + `", the user meant: "` + p.Meant + `"`
}

// Build returns the context snippet for patterns, taking the first
// MaxPatterns in the order given. No patterns yields "".
func Build(patterns []Pattern) string {
	if len(patterns) == 0 {
		return ""
	}
	if len(patterns) > MaxPatterns {
		patterns = patterns[:MaxPatterns]
	}

	var b strings.Builder
	b.WriteString(Header)
	for _, p := range patterns {
		b.WriteByte('\n')
		b.WriteString(Line(p))
	}
	return b.String()
}
