package lm

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/pkg/corpus"
)

// DefaultDiscount is the absolute discount subtracted from every seen count.
const DefaultDiscount = 0.1

// DefaultChunkSize is the number of training strings counted per goroutine.
const DefaultChunkSize = 1000

// contextRoot prefixes every trie key so the empty context has a non-empty key.
const contextRoot = "\x1e"

// Options configures a KneserNey model.
type Options struct {
	Order     int
	Discount  float64
	BOS       string
	EOS       string
	ChunkSize int
}

// contextStats holds what the model knows about one context.
type contextStats struct {
	followers     map[string]int // raw counts of symbols seen after the context
	total         int
	continuations map[string]int // distinct left extensions of (context, symbol)
	contTotal     int
}

// KneserNey is an interpolated Kneser-Ney model. The highest order uses raw counts,
// lower orders use continuation counts, and the recursion bottoms out in a uniform
// distribution over every known symbol plus the unknown placeholder.
type KneserNey struct {
	order     int
	discount  float64
	bos       string
	eos       string
	chunkSize int

	contexts *patricia.Trie
	known    *corpus.Vocabulary
	vocab    *corpus.Vocabulary
	uniform  float64

	fitting atomic.Bool
	trained atomic.Bool
}

// NewKneserNey creates an untrained model.
func NewKneserNey(opts Options) *KneserNey {
	discount := opts.Discount
	if discount <= 0 || discount >= 1 {
		discount = DefaultDiscount
	}
	chunkSize := opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &KneserNey{
		order:     opts.Order,
		discount:  discount,
		bos:       opts.BOS,
		eos:       opts.EOS,
		chunkSize: chunkSize,
		contexts:  patricia.NewTrie(),
	}
}

// Order returns n.
func (m *KneserNey) Order() int {
	return m.order
}

// Trained reports whether Fit completed.
func (m *KneserNey) Trained() bool {
	return m.trained.Load()
}

func contextKey(context []string) patricia.Prefix {
	return patricia.Prefix(contextRoot + corpus.Gram(context).Key())
}

// Fit builds the counts. It may only be called once; refitting requires a new model.
func (m *KneserNey) Fit(grams [][]corpus.Gram, symbols []string) error {
	if !m.fitting.CompareAndSwap(false, true) {
		return lerrors.ErrModelAlreadyTrained
	}

	known := corpus.NewVocabulary(symbols)
	vocab := known.Without(m.bos, m.eos, Unknown)
	if vocab.Len() == 0 {
		m.fitting.Store(false)
		return lerrors.ErrEmptyVocabulary
	}

	merged := m.countShards(grams)
	m.addContinuations(merged)

	for key, stats := range merged {
		m.contexts.Insert(patricia.Prefix(key), stats)
	}

	m.known = known
	m.vocab = vocab
	// the unknown placeholder is always part of the vocabulary size
	m.uniform = 1.0 / float64(known.Without(Unknown).Len()+1)
	m.trained.Store(true)

	log.Debugf("Fitted order-%d model: %d contexts, %d symbols", m.order, len(merged), vocab.Len())
	return nil
}

type shardEntry struct {
	context []string
	stats   *contextStats
}

// countShards counts grams in chunks of training strings, one goroutine per chunk,
// and merges the partial counts in chunk order.
func (m *KneserNey) countShards(grams [][]corpus.Gram) map[string]*shardEntry {
	var shards [][][]corpus.Gram
	for start := 0; start < len(grams); start += m.chunkSize {
		end := min(start+m.chunkSize, len(grams))
		shards = append(shards, grams[start:end])
	}

	partial := make([]map[string]*shardEntry, len(shards))
	var wg sync.WaitGroup
	for i, shard := range shards {
		wg.Add(1)
		go func(i int, shard [][]corpus.Gram) {
			defer wg.Done()
			partial[i] = countGrams(shard)
		}(i, shard)
	}
	wg.Wait()

	merged := make(map[string]*shardEntry)
	for _, counts := range partial {
		for key, entry := range counts {
			target, ok := merged[key]
			if !ok {
				merged[key] = entry
				continue
			}
			for symbol, c := range entry.stats.followers {
				target.stats.followers[symbol] += c
			}
			target.stats.total += entry.stats.total
		}
	}
	log.Debugf("Counted %d training strings in %d shards", len(grams), len(shards))
	return merged
}

func countGrams(streams [][]corpus.Gram) map[string]*shardEntry {
	counts := make(map[string]*shardEntry)
	for _, stream := range streams {
		for _, gram := range stream {
			if len(gram) == 0 {
				continue
			}
			context := gram[:len(gram)-1]
			key := string(contextKey(context))
			entry, ok := counts[key]
			if !ok {
				entry = &shardEntry{
					context: append([]string(nil), context...),
					stats: &contextStats{
						followers:     make(map[string]int),
						continuations: make(map[string]int),
					},
				}
				counts[key] = entry
			}
			entry.stats.followers[gram[len(gram)-1]]++
			entry.stats.total++
		}
	}
	return counts
}

// addContinuations records, for every context c and symbol w, how many distinct
// symbols x were seen before (c, w).
func (m *KneserNey) addContinuations(merged map[string]*shardEntry) {
	for _, entry := range merged {
		if len(entry.context) == 0 {
			continue
		}
		suffix, ok := merged[string(contextKey(entry.context[1:]))]
		if !ok {
			continue
		}
		for symbol := range entry.stats.followers {
			suffix.stats.continuations[symbol]++
			suffix.stats.contTotal++
		}
	}
}

// Vocabulary returns the trained symbols without sentinels or the unknown placeholder.
func (m *KneserNey) Vocabulary() (*corpus.Vocabulary, error) {
	if !m.trained.Load() {
		return nil, lerrors.ErrUntrainedModel
	}
	return m.vocab, nil
}

// Score returns the smoothed probability of symbol after context.
func (m *KneserNey) Score(symbol string, context []string) (float64, error) {
	if !m.trained.Load() {
		return 0, lerrors.ErrUntrainedModel
	}
	p := m.interpolate(m.mask(symbol), m.maskContext(context))
	return math.Min(p, 1), nil
}

// LogScore returns the natural log of Score.
func (m *KneserNey) LogScore(symbol string, context []string) (float64, error) {
	p, err := m.Score(symbol, context)
	if err != nil {
		return 0, err
	}
	return math.Log(p), nil
}

func (m *KneserNey) mask(symbol string) string {
	if m.known.Contains(symbol) {
		return symbol
	}
	return Unknown
}

// maskContext keeps the trailing order-1 symbols and maps unknown ones to Unknown.
func (m *KneserNey) maskContext(context []string) []string {
	width := m.order - 1
	if width < 0 {
		width = 0
	}
	if len(context) > width {
		context = context[len(context)-width:]
	}
	masked := make([]string, len(context))
	for i, s := range context {
		masked[i] = m.mask(s)
	}
	return masked
}

func (m *KneserNey) lookup(context []string) *contextStats {
	item := m.contexts.Get(contextKey(context))
	if item == nil {
		return nil
	}
	return item.(*shardEntry).stats
}

func (m *KneserNey) interpolate(symbol string, context []string) float64 {
	if len(context) == 0 {
		return m.uniform
	}

	alpha, gamma := 0.0, 1.0
	if stats := m.lookup(context); stats != nil && stats.total > 0 {
		count, total := stats.continuations[symbol], stats.contTotal
		if len(context)+1 == m.order {
			count, total = stats.followers[symbol], stats.total
		}
		if total > 0 {
			alpha = math.Max(float64(count)-m.discount, 0) / float64(total)
			gamma = m.discount * float64(len(stats.followers)) / float64(total)
		}
	}
	return alpha + gamma*m.interpolate(symbol, context[1:])
}

// Generate samples count symbols. Each draw backs off to the longest trailing context with
// observed followers and weighs those followers by their smoothed probability.
func (m *KneserNey) Generate(count int, seed []string, randomSeed int64) ([]string, error) {
	if !m.trained.Load() {
		return nil, lerrors.ErrUntrainedModel
	}

	// a non-positive count yields an empty sequence
	count = max(count, 0)

	rng := rand.New(rand.NewSource(randomSeed))
	history := append([]string(nil), seed...)
	generated := make([]string, 0, count)

	for i := 0; i < count; i++ {
		context := m.maskContext(history)
		samples := m.followersOf(context)
		for len(samples) == 0 && len(context) > 0 {
			context = context[1:]
			samples = m.followersOf(context)
		}
		if len(samples) == 0 {
			samples = m.known.Symbols()
		}

		weights := make([]float64, len(samples))
		var sum float64
		for j, s := range samples {
			weights[j] = m.interpolate(s, context)
			sum += weights[j]
		}

		next := samples[len(samples)-1]
		x := rng.Float64() * sum
		for j, w := range weights {
			if x < w {
				next = samples[j]
				break
			}
			x -= w
		}

		generated = append(generated, next)
		history = append(history, next)
	}
	return generated, nil
}

func (m *KneserNey) followersOf(context []string) []string {
	stats := m.lookup(context)
	if stats == nil {
		return nil
	}
	samples := make([]string, 0, len(stats.followers))
	for s := range stats.followers {
		samples = append(samples, s)
	}
	sort.Strings(samples)
	return samples
}
