// Package lm provides the smoothed character n-gram language model used to rank gap completions.
//
// A model is constructed, fitted once, and read concurrently afterwards. Scoring only consults the
// trailing order-1 symbols of a context, and every (symbol, context) pair receives a non-zero
// probability, so log scores are always finite.
package lm

import (
	"github.com/lacunae/lacuna/pkg/corpus"
)

// Unknown is the placeholder every out-of-vocabulary symbol is mapped to.
const Unknown = "<UNK>"

// Model is the contract a smoothed n-gram model fulfils once fitted.
type Model interface {
	// Order is the n of the n-gram model.
	Order() int

	// LogScore returns the natural log of Score.
	LogScore(symbol string, context []string) (float64, error)

	// Score returns the smoothed probability of symbol following context, in (0, 1].
	Score(symbol string, context []string) (float64, error)

	// Vocabulary returns the trained symbols, without sentinels or the unknown placeholder.
	Vocabulary() (*corpus.Vocabulary, error)

	// Generate samples count symbols continuing seed. Equal random seeds give equal output.
	Generate(count int, seed []string, randomSeed int64) ([]string, error)
}

// Trainer is a Model that can be fitted from corpus streams.
type Trainer interface {
	Model

	// Fit consumes the everygram streams and symbol stream exactly once.
	Fit(grams [][]corpus.Gram, symbols []string) error
}

// LogScoreSequence scores the last symbol of sequence against the ones before it.
func LogScoreSequence(m Model, sequence []string) (float64, error) {
	if len(sequence) == 0 {
		return 0, nil
	}
	return m.LogScore(sequence[len(sequence)-1], sequence[:len(sequence)-1])
}

// ScoreSequence is the probability counterpart of LogScoreSequence.
func ScoreSequence(m Model, sequence []string) (float64, error) {
	if len(sequence) == 0 {
		return 1, nil
	}
	return m.Score(sequence[len(sequence)-1], sequence[:len(sequence)-1])
}
