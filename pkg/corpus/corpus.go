/*
Package corpus turns plain training strings into the streams an n-gram model is fitted on.

Every string is split into symbols (NFC-normalised grapheme clusters), padded with
start and end sentinels, and expanded into its everygrams: every contiguous
sub-sequence of length 1..n. The flattened padded symbols form the vocabulary stream.

	opts := corpus.Options{Order: 3, BOS: "␂", EOS: "␃", PadLeft: true, PadRight: true}
	training := corpus.Build([]string{"cat", "car"}, opts)

The package does no markup or transliteration work; callers hand it clean text.
*/
package corpus

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// Gram is an ordered run of symbols.
type Gram []string

// Key joins the gram with the unit separator so it can be used as a map or trie key.
func (g Gram) Key() string {
	return strings.Join(g, KeySeparator)
}

// KeySeparator joins symbols inside encoded grams. It cannot occur in clean text.
const KeySeparator = "\x1f"

// Options controls padding and gram length.
type Options struct {
	Order    int
	BOS      string
	EOS      string
	PadLeft  bool
	PadRight bool
}

// Training is the output of Build: one everygram stream per input string and
// the flattened padded symbol stream.
type Training struct {
	Grams   [][]Gram
	Symbols []string
}

// Normalize returns the NFC form of s.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// Symbols splits s into grapheme clusters after NFC normalisation.
func Symbols(s string) []string {
	s = Normalize(s)
	out := make([]string, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// Pad surrounds symbols with order-1 sentinels on every enabled side.
func Pad(symbols []string, opts Options) []string {
	width := opts.Order - 1
	if width < 0 {
		width = 0
	}

	padded := make([]string, 0, len(symbols)+2*width)
	if opts.PadLeft {
		for i := 0; i < width; i++ {
			padded = append(padded, opts.BOS)
		}
	}
	padded = append(padded, symbols...)
	if opts.PadRight {
		for i := 0; i < width; i++ {
			padded = append(padded, opts.EOS)
		}
	}
	return padded
}

// Everygrams returns every contiguous sub-sequence of length 1..maxLen,
// ordered by start position then length.
func Everygrams(sequence []string, maxLen int) []Gram {
	if maxLen < 1 {
		return nil
	}

	grams := make([]Gram, 0, len(sequence)*maxLen)
	for start := range sequence {
		for length := 1; length <= maxLen && start+length <= len(sequence); length++ {
			grams = append(grams, Gram(sequence[start:start+length]))
		}
	}
	return grams
}

// BuildText pads a single string and returns its everygrams and padded symbols.
func BuildText(text string, opts Options) ([]Gram, []string) {
	padded := Pad(Symbols(text), opts)
	return Everygrams(padded, opts.Order), padded
}

// Build processes texts in order. The result is deterministic for identical input.
func Build(texts []string, opts Options) Training {
	training := Training{
		Grams: make([][]Gram, 0, len(texts)),
	}
	for _, text := range texts {
		grams, padded := BuildText(text, opts)
		training.Grams = append(training.Grams, grams)
		training.Symbols = append(training.Symbols, padded...)
	}
	return training
}
