package speech

import (
	"regexp"
	"strings"
)

var (
	markdownMarks = regexp.MustCompile("[*_`#>]+")
	// Anything outside basic text, punctuation, and currency/math symbols is
	// dropped before synthesis so emoji and pictographs are never vocalized.
	unspeakable = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Zs}$+=<>|~^]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// NormalizeForSpeech strips markdown decoration and non-verbal glyphs from
// text and collapses whitespace, returning what a synthesizer should
// actually read aloud.
func NormalizeForSpeech(text string) string {
	text = markdownMarks.ReplaceAllString(text, "")
	text = unspeakable.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
