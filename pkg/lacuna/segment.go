package lacuna

import (
	"iter"
	"strings"
)

// Segment is a literal run optionally followed by one gap.
type Segment struct {
	Literal string
	Gap     bool
}

// Text renders the segment with mask standing in for the gap.
func (s Segment) Text(mask string) string {
	if s.Gap {
		return s.Literal + mask
	}
	return s.Literal
}

// Split partitions query on mask, left to right. Every piece but the last ends in a gap;
// the last one does too only when query ends with mask. A query without mask yields a
// single gap-free segment.
func Split(query, mask string) []Segment {
	if mask == "" || !strings.Contains(query, mask) {
		return []Segment{{Literal: query}}
	}

	pieces := strings.Split(query, mask)
	if strings.HasSuffix(query, mask) {
		// the final piece is the empty remainder after the trailing mask
		pieces = pieces[:len(pieces)-1]
		segments := make([]Segment, len(pieces))
		for i, p := range pieces {
			segments[i] = Segment{Literal: p, Gap: true}
		}
		return segments
	}

	segments := make([]Segment, len(pieces))
	for i, p := range pieces {
		segments[i] = Segment{Literal: p, Gap: i < len(pieces)-1}
	}
	return segments
}

// Expand yields the candidates of a segment: the literal followed by every symbol when the
// segment ends in a gap, or the literal alone otherwise. The sequence is restartable.
func Expand(segment Segment, symbols []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !segment.Gap {
			yield(segment.Literal)
			return
		}
		for _, s := range symbols {
			if !yield(segment.Literal + s) {
				return
			}
		}
	}
}
