package lm

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/pkg/corpus"
)

const (
	bos = "<s>"
	eos = "</s>"
)

func trainModel(t *testing.T, order int, texts ...string) *KneserNey {
	t.Helper()
	training := corpus.Build(texts, corpus.Options{Order: order, BOS: bos, EOS: eos, PadLeft: true, PadRight: true})
	m := NewKneserNey(Options{Order: order, BOS: bos, EOS: eos, ChunkSize: 2})
	require.NoError(t, m.Fit(training.Grams, training.Symbols))
	return m
}

func TestKneserNeyHighestOrder(t *testing.T) {
	m := trainModel(t, 2, "cat", "car", "can")

	// known symbols: <s> </s> a c n r t, plus <UNK> => uniform 1/8
	tests := []struct {
		name     string
		symbol   string
		context  []string
		expected float64
	}{
		{"seen bigram", "t", []string{"a"}, 0.9/3 + 0.1*3/3/8},
		{"context is truncated", "t", []string{"c", "a"}, 0.9/3 + 0.1*3/3/8},
		{"unseen follower", "c", []string{"a"}, 0.1 * 3 / 3 / 8},
		{"unknown symbol", "z", []string{"a"}, 0.1 * 3 / 3 / 8},
		{"unknown context", "t", []string{"z"}, 1.0 / 8},
		{"empty context", "a", nil, 1.0 / 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Score(tt.symbol, tt.context)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, p, 1e-12)

			lp, err := m.LogScore(tt.symbol, tt.context)
			require.NoError(t, err)
			assert.InDelta(t, math.Log(tt.expected), lp, 1e-12)
		})
	}
}

func TestKneserNeyContinuationCounts(t *testing.T) {
	m := trainModel(t, 3, "ab")

	// "b" after "a" has one distinct left extension (<s>, a) => alpha 0.9, gamma 0.1
	p, err := m.Score("b", []string{"a"})
	require.NoError(t, err)
	assert.InDelta(t, 0.9+0.1/5, p, 1e-12)

	p, err = m.Score("b", []string{bos, "a"})
	require.NoError(t, err)
	assert.Greater(t, p, 0.9)
}

func TestKneserNeyScoresAreProbabilities(t *testing.T) {
	m := trainModel(t, 3, "cat", "car", "can", "tan", "")
	vocab, err := m.Vocabulary()
	require.NoError(t, err)

	contexts := [][]string{nil, {"c"}, {"c", "a"}, {bos, bos}, {"x", "y"}, {"a", "a", "a"}}
	for _, context := range contexts {
		for _, symbol := range append(vocab.Symbols(), eos, "?") {
			p, err := m.Score(symbol, context)
			require.NoError(t, err)
			assert.Greater(t, p, 0.0, "symbol %q context %v", symbol, context)
			assert.LessOrEqual(t, p, 1.0, "symbol %q context %v", symbol, context)

			lp, err := m.LogScore(symbol, context)
			require.NoError(t, err)
			assert.False(t, math.IsInf(lp, 0))
			assert.LessOrEqual(t, lp, 0.0)
		}
	}
}

func TestKneserNeyVocabulary(t *testing.T) {
	m := trainModel(t, 2, "cat", "car", "can")
	vocab, err := m.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "n", "r", "t"}, vocab.Symbols())
	assert.Equal(t, 2, m.Order())
	assert.True(t, m.Trained())
}

func TestKneserNeyLifecycleErrors(t *testing.T) {
	m := NewKneserNey(Options{Order: 2, BOS: bos, EOS: eos})

	_, err := m.Score("a", nil)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = m.LogScore("a", nil)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = m.Vocabulary()
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = m.Generate(3, nil, 1)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)

	empty := corpus.Build([]string{"", ""}, corpus.Options{Order: 2, BOS: bos, EOS: eos, PadLeft: true, PadRight: true})
	assert.ErrorIs(t, m.Fit(empty.Grams, empty.Symbols), lerrors.ErrEmptyVocabulary)
	assert.False(t, m.Trained())

	training := corpus.Build([]string{"ab"}, corpus.Options{Order: 2, BOS: bos, EOS: eos, PadLeft: true, PadRight: true})
	require.NoError(t, m.Fit(training.Grams, training.Symbols))
	assert.ErrorIs(t, m.Fit(training.Grams, training.Symbols), lerrors.ErrModelAlreadyTrained)
}

func TestKneserNeyShardingIsTransparent(t *testing.T) {
	texts := []string{"cat", "car", "can", "tan", "ran", "act"}
	training := corpus.Build(texts, corpus.Options{Order: 3, BOS: bos, EOS: eos, PadLeft: true, PadRight: true})

	single := NewKneserNey(Options{Order: 3, BOS: bos, EOS: eos, ChunkSize: len(texts)})
	require.NoError(t, single.Fit(training.Grams, training.Symbols))
	sharded := NewKneserNey(Options{Order: 3, BOS: bos, EOS: eos, ChunkSize: 1})
	require.NoError(t, sharded.Fit(training.Grams, training.Symbols))

	for _, context := range [][]string{{"c", "a"}, {"a"}, {bos, "t"}} {
		for _, symbol := range []string{"t", "r", "n", "a", eos} {
			want, err := single.Score(symbol, context)
			require.NoError(t, err)
			got, err := sharded.Score(symbol, context)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-12)
		}
	}
}

func TestKneserNeyGenerate(t *testing.T) {
	m := trainModel(t, 2, "cat", "car", "can")

	first, err := m.Generate(10, []string{"c", "a"}, 42)
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Contains(t, []string{"t", "r", "n"}, first[0])

	second, err := m.Generate(10, []string{"c", "a"}, 42)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	known := map[string]bool{bos: true, eos: true, "a": true, "c": true, "n": true, "r": true, "t": true}
	for _, s := range first {
		assert.True(t, known[s], "unexpected symbol %q", s)
	}

	none, err := m.Generate(0, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	negative, err := m.Generate(-1, []string{"c"}, 1)
	require.NoError(t, err)
	assert.Empty(t, negative)
}

func TestKneserNeyConcurrentReads(t *testing.T) {
	m := trainModel(t, 3, "cat", "car", "can")
	want, err := m.LogScore("t", []string{"c", "a"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.LogScore("t", []string{"c", "a"})
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestSequenceHelpers(t *testing.T) {
	m := trainModel(t, 2, "cat", "car", "can")

	lp, err := LogScoreSequence(m, []string{"c", "a", "t"})
	require.NoError(t, err)
	direct, err := m.LogScore("t", []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, direct, lp)

	p, err := ScoreSequence(m, []string{"a", "t"})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(direct), p, 1e-12)

	lp, err = LogScoreSequence(m, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lp)
}
