package segment

import (
	"iter"
	"regexp"
)

// Span is a run of prose, optionally rendered bold.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Bold spans never cross a line break and never nest.
var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// Emphasis splits prose into plain and bold spans. Pairs are matched
// left to right; a dangling "**" is kept as literal text.
func Emphasis(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		pos := 0
		for _, loc := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
			if loc[0] > pos {
				if !yield(Span{Text: text[pos:loc[0]]}) {
					return
				}
			}
			if !yield(Span{Text: text[loc[2]:loc[3]], Bold: true}) {
				return
			}
			pos = loc[1]
		}
		if pos < len(text) {
			yield(Span{Text: text[pos:]})
		}
	}
}
