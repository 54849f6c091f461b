// Package segment splits message content into prose and fenced code blocks.
//
// Parsing accepts partial input: while a reply is still
// streaming, a fence whose closing delimiter has not arrived yet is reported as
// plain text and turns into a code segment once the delimiter shows up.
package segment

import (
	"iter"
	"regexp"
	"strings"
)

// Kind distinguishes prose from code.
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
)

// Segment is a contiguous slice of the source content.
// Raw always holds the exact source bytes in [Start, End).
type Segment struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
	Raw      string `json:"-"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

var fencePattern = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")

// Parse yields the segments of content in order. The sequence is lazy and can
// be ranged over any number of times.
func Parse(content string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		pos := 0
		for pos < len(content) {
			loc := fencePattern.FindStringSubmatchIndex(content[pos:])
			if loc == nil {
				break
			}
			start, end := pos+loc[0], pos+loc[1]
			if start > pos {
				if !yield(textSegment(content, pos, start)) {
					return
				}
			}

			code := Segment{
				Kind:  KindCode,
				Code:  strings.TrimSpace(content[pos+loc[4] : pos+loc[5]]),
				Raw:   content[start:end],
				Start: start,
				End:   end,
			}
			if loc[2] >= 0 {
				code.Language = content[pos+loc[2] : pos+loc[3]]
			}
			if !yield(code) {
				return
			}
			pos = end
		}
		if pos < len(content) {
			yield(textSegment(content, pos, len(content)))
		}
	}
}

// All collects Parse(content) into a slice.
func All(content string) []Segment {
	var out []Segment
	for seg := range Parse(content) {
		out = append(out, seg)
	}
	return out
}

// CountCode returns the number of complete fences in content.
func CountCode(content string) int {
	n := 0
	for seg := range Parse(content) {
		if seg.Kind == KindCode {
			n++
		}
	}
	return n
}

// DisplayLanguage is the label shown above a code block.
func DisplayLanguage(seg Segment) string {
	if seg.Language == "" {
		return "CODE"
	}
	return strings.ToUpper(seg.Language)
}

func textSegment(content string, start, end int) Segment {
	return Segment{
		Kind:  KindText,
		Text:  content[start:end],
		Raw:   content[start:end],
		Start: start,
		End:   end,
	}
}
