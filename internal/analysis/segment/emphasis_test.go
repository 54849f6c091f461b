package segment_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/syntra/backend/internal/analysis/segment"
)

func TestEmphasis(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []segment.Span
	}{
		{
			name: "plain",
			in:   "nothing special",
			want: []segment.Span{{Text: "nothing special"}},
		},
		{
			name: "single bold",
			in:   "use **goroutines** wisely",
			want: []segment.Span{{Text: "use "}, {Text: "goroutines", Bold: true}, {Text: " wisely"}},
		},
		{
			name: "two pairs left to right",
			in:   "**a** and **b**",
			want: []segment.Span{{Text: "a", Bold: true}, {Text: " and "}, {Text: "b", Bold: true}},
		},
		{
			name: "unmatched marker is literal",
			in:   "**a** then ** dangling",
			want: []segment.Span{{Text: "a", Bold: true}, {Text: " then ** dangling"}},
		},
		{
			name: "no bold across lines",
			in:   "**open\nclose**",
			want: []segment.Span{{Text: "**open\nclose**"}},
		},
		{
			name: "lone marker",
			in:   "**",
			want: []segment.Span{{Text: "**"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(segment.Emphasis(tt.in)))
		})
	}
}
