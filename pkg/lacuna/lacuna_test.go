package lacuna

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/pkg/config"
	"github.com/lacunae/lacuna/pkg/corpus"
	"github.com/lacunae/lacuna/pkg/lm"
)

var phrases = []string{
	"lovely day",
	"a lovely day today",
	"what a lovely way to go",
	"the bay was lovely",
	"lovely days and lovely nights",
}

func newTrained(t *testing.T, order int, texts ...string) *Lacuna {
	t.Helper()
	cfg := config.DefaultModelConfig()
	cfg.Order = order
	cfg.BOS = "<s>"
	cfg.EOS = "</s>"
	cfg.ChunkSize = 2
	l, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, l.Train(texts))
	return l
}

func TestFillSingleGapScenario(t *testing.T) {
	l := newTrained(t, 2, "cat", "car", "can")

	results, err := l.Fill("ca?", 10, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// t, r and n follow "a" once each, so they tie and keep vocabulary order
	assert.Equal(t, []string{"can", "car", "cat"}, texts(results))
	assert.Equal(t, results[0].Score, results[2].Score)
	assertSorted(t, results)
}

func TestFillMultiGapScenario(t *testing.T) {
	l := newTrained(t, 3, "cat", "car", "can")

	results, err := l.Fill("?a?", 25, 10)
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Contains(t, []string{"cat", "car", "can"}, results[0].Text)
	assertSorted(t, results)
}

func TestFillMultiGapTiesAtOrderTwo(t *testing.T) {
	l := newTrained(t, 2, "cat", "car", "can")
	assert.Equal(t, 2, l.Config().Order)

	// only the last filled symbol is scored, so the first gap never separates candidates
	results, err := l.Fill("?a?", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"aan", "aar", "aat", "can", "car"}, texts(results))
	for _, r := range results {
		assert.Equal(t, results[0].Score, r.Score)
	}
	assert.InDelta(t, -3.2426, results[0].Score, 1e-3)
}

func TestFillNoGapIsIdentity(t *testing.T) {
	l := newTrained(t, 3, phrases...)

	results, err := l.Fill("lovely day", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []Result{{Text: "lovely day", Score: NeutralScore}}, results)
}

func TestFillMatchesBruteForceForSingleGap(t *testing.T) {
	l := newTrained(t, 2, phrases...)
	vocab, err := l.Vocabulary()
	require.NoError(t, err)

	context := corpus.Symbols("lovely ")
	best, bestScore := "", 0.0
	for i, c := range vocab.Symbols() {
		score, err := l.LogScore(c, context)
		require.NoError(t, err)
		if i == 0 || score > bestScore {
			best, bestScore = c, score
		}
	}

	results, err := l.Fill("lovely ?ay", vocab.Len(), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "lovely "+best+"ay", results[0].Text)
}

func TestFillIsDeterministic(t *testing.T) {
	l := newTrained(t, 3, phrases...)

	first, err := l.Fill("lo?ely ?a?", 8, 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := l.Fill("lo?ely ?a?", 8, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFillConcurrentRequests(t *testing.T) {
	l := newTrained(t, 3, phrases...)
	want, err := l.Fill("?ovely", 10, 5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([][]Result, 16)
	errs := make([]error, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = l.Fill("?ovely", 10, 5)
		}(i)
	}
	wg.Wait()

	for i := range got {
		require.NoError(t, errs[i])
		assert.Equal(t, want, got[i])
	}
}

func TestBeamSearchRespectsWidth(t *testing.T) {
	l := newTrained(t, 3, phrases...)

	for _, width := range []int{1, 2, 5, 50} {
		beam, err := l.BeamSearch("?o??ly", width)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(beam), width)
		assert.NotEmpty(t, beam)
		for _, p := range beam {
			assert.True(t, p.Done())
			assert.Len(t, []rune(p.Prefix), 6)
		}
	}
}

func TestPruneBoundsEveryStep(t *testing.T) {
	l := newTrained(t, 3, phrases...)
	vocab, err := l.Vocabulary()
	require.NoError(t, err)
	symbols := vocab.Symbols()
	s := l.searcher

	for _, width := range []int{1, 2, 5, 50} {
		pool, err := s.successors(PartialResult{Remaining: Split("?o??ly", "?")}, symbols)
		require.NoError(t, err)
		beam := prune(pool, width)

		steps := 1
		for {
			require.NotEmpty(t, beam)
			assert.LessOrEqual(t, len(beam), width, "step %d", steps)
			for i := 1; i < len(beam); i++ {
				assert.GreaterOrEqual(t, beam[i-1].Score, beam[i].Score)
			}
			if beam[0].Done() {
				break
			}

			var next []PartialResult
			for _, parent := range beam {
				children, err := s.successors(parent, symbols)
				require.NoError(t, err)
				next = append(next, children...)
			}
			beam = prune(next, width)
			steps++
		}
		// one step per segment: three gaps and the trailing "ly"
		assert.Equal(t, 4, steps)
	}
}

func TestExtensionNeverRaisesScore(t *testing.T) {
	l := newTrained(t, 3, phrases...)
	vocab, err := l.Vocabulary()
	require.NoError(t, err)

	s := l.searcher
	parents, err := s.successors(PartialResult{Remaining: Split("lo?e?y", "?")}, vocab.Symbols())
	require.NoError(t, err)

	for _, parent := range parents {
		children, err := s.successors(parent, vocab.Symbols())
		require.NoError(t, err)
		for _, child := range children {
			assert.LessOrEqual(t, child.Score, parent.Score)
			assert.Equal(t, parent.Prefix+child.LastCandidate, child.Prefix)
			assert.Len(t, child.Remaining, len(parent.Remaining)-1)
		}
	}
}

func TestFillRejectsInvalidBeam(t *testing.T) {
	l := newTrained(t, 2, "cat")

	tests := []struct {
		name      string
		beamWidth int
		topK      int
	}{
		{"zero beam", 0, 1},
		{"zero top k", 5, 0},
		{"top k above beam", 2, 3},
		{"negative beam", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Fill("ca?", tt.beamWidth, tt.topK)
			assert.ErrorIs(t, err, lerrors.ErrInvalidBeamConfiguration)
		})
	}

	_, err := l.BeamSearch("ca?", 0)
	assert.ErrorIs(t, err, lerrors.ErrInvalidBeamConfiguration)
}

func TestUntrainedLacuna(t *testing.T) {
	l, err := New(config.DefaultModelConfig())
	require.NoError(t, err)
	assert.False(t, l.Trained())

	_, err = l.Fill("ca?", 5, 1)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = l.Fill("cat", 5, 1)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = l.LogScoreString("cat")
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = l.VocabularyString()
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
	_, err = l.Generate(5, "c", 1)
	assert.ErrorIs(t, err, lerrors.ErrUntrainedModel)
}

func TestTrainOnce(t *testing.T) {
	l := newTrained(t, 2, "cat")
	assert.ErrorIs(t, l.Train([]string{"dog"}), lerrors.ErrModelAlreadyTrained)

	empty, err := New(config.DefaultModelConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, empty.Train([]string{""}), lerrors.ErrEmptyVocabulary)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultModelConfig()
	cfg.Mask = ""
	_, err := New(cfg)
	assert.ErrorIs(t, err, lerrors.ErrInvalidModelConfiguration)
}

func TestTrainFromFileAndHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ncar\ncan"), 0644))

	cfg := config.DefaultModelConfig()
	cfg.Order = 2
	l, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, l.TrainFromFile(path))

	vocab, err := l.VocabularyString()
	require.NoError(t, err)
	assert.Equal(t, "acnrt", vocab)

	lp, err := l.LogScoreString("cat")
	require.NoError(t, err)
	direct, err := l.LogScore("t", []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, direct, lp)

	p, err := l.ScoreString("cat")
	require.NoError(t, err)
	assert.Greater(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)

	generated, err := l.Generate(12, "ca", 7)
	require.NoError(t, err)
	assert.Len(t, generated, 12)
	assert.Equal(t, 2, l.Model().Order())
	assert.Equal(t, "?", l.Config().Mask)
}

// emptyModel is a trained model without vocabulary.
type emptyModel struct{}

func (emptyModel) Order() int { return 2 }
func (emptyModel) LogScore(string, []string) (float64, error) { return 0, nil }
func (emptyModel) Score(string, []string) (float64, error)    { return 1, nil }
func (emptyModel) Vocabulary() (*corpus.Vocabulary, error)    { return corpus.NewVocabulary(nil), nil }
func (emptyModel) Generate(int, []string, int64) ([]string, error) {
	return nil, nil
}

var _ lm.Model = emptyModel{}

func TestFillWithoutCandidates(t *testing.T) {
	s := NewSearcher(emptyModel{}, "?")

	_, err := s.Fill("ab?", 3, 1)
	assert.ErrorIs(t, err, lerrors.ErrNoCandidates)

	results, err := s.Fill("ab", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []Result{{Text: "ab", Score: NeutralScore}}, results)
}

func TestRank(t *testing.T) {
	beam := []PartialResult{{Prefix: "can", Score: -1}, {Prefix: "car", Score: -2}}
	assert.Equal(t, []Result{{Text: "can", Score: -1}}, Rank(beam, 1))
	assert.Len(t, Rank(beam, 5), 2)
}

func texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

func assertSorted(t *testing.T, results []Result) {
	t.Helper()
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}
