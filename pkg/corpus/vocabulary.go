package corpus

import (
	"sort"
	"strings"
)

// Vocabulary is an immutable set of symbols.
type Vocabulary struct {
	members map[string]struct{}
	sorted  []string
}

// NewVocabulary collects the distinct symbols of stream, skipping any listed in excluded.
func NewVocabulary(stream []string, excluded ...string) *Vocabulary {
	skip := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		skip[s] = struct{}{}
	}

	members := make(map[string]struct{})
	for _, s := range stream {
		if _, ok := skip[s]; ok {
			continue
		}
		members[s] = struct{}{}
	}

	sorted := make([]string, 0, len(members))
	for s := range members {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	return &Vocabulary{members: members, sorted: sorted}
}

// Contains reports whether symbol belongs to the vocabulary.
func (v *Vocabulary) Contains(symbol string) bool {
	if v == nil {
		return false
	}
	_, ok := v.members[symbol]
	return ok
}

// Len returns the number of symbols.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.sorted)
}

// Symbols returns the symbols in lexicographic order. The slice is a copy.
func (v *Vocabulary) Symbols() []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v.sorted))
	copy(out, v.sorted)
	return out
}

// Without returns a new vocabulary lacking the given symbols.
func (v *Vocabulary) Without(symbols ...string) *Vocabulary {
	if v == nil {
		return NewVocabulary(nil)
	}
	return NewVocabulary(v.sorted, symbols...)
}

// String joins the sorted symbols.
func (v *Vocabulary) String() string {
	if v == nil {
		return ""
	}
	return strings.Join(v.sorted, "")
}
