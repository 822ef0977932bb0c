/*
Package lacuna reconstructs missing characters in damaged text.

A query marks every missing character with the gap marker (default "?"). The query is split into
segments, each a literal run ending in at most one gap, and a left-to-right beam search replaces
every gap with each vocabulary symbol, scores the new prefix with a character n-gram model and
keeps the best beamWidth partial reconstructions.

	l, err := lacuna.New(config.DefaultModelConfig())
	err = l.Train([]string{"cat", "car", "can"})
	results, err := l.Fill("ca?", 10, 3)

A Lacuna is trained once and then read concurrently; training again returns an error.
*/
package lacuna

import (
	"github.com/charmbracelet/log"

	"github.com/lacunae/lacuna/pkg/config"
	"github.com/lacunae/lacuna/pkg/corpus"
	"github.com/lacunae/lacuna/pkg/lm"
)

// Lacuna ties a model configuration, its trained model and the searcher together.
type Lacuna struct {
	cfg      config.ModelConfig
	model    *lm.KneserNey
	searcher *Searcher
	cache    *ResultCache
}

// New validates cfg and returns an untrained Lacuna.
func New(cfg config.ModelConfig) (*Lacuna, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model := lm.NewKneserNey(lm.Options{
		Order:     cfg.Order,
		Discount:  cfg.Discount,
		BOS:       cfg.BOS,
		EOS:       cfg.EOS,
		ChunkSize: cfg.ChunkSize,
	})
	return &Lacuna{
		cfg:      cfg,
		model:    model,
		searcher: NewSearcher(model, cfg.Mask),
	}, nil
}

// Config returns the model configuration.
func (l *Lacuna) Config() config.ModelConfig {
	return l.cfg
}

// Model exposes the underlying language model.
func (l *Lacuna) Model() lm.Model {
	return l.model
}

// Trained reports whether Train completed.
func (l *Lacuna) Trained() bool {
	return l.model.Trained()
}

func (l *Lacuna) corpusOptions() corpus.Options {
	return corpus.Options{
		Order:    l.cfg.Order,
		BOS:      l.cfg.BOS,
		EOS:      l.cfg.EOS,
		PadLeft:  l.cfg.PadLeft,
		PadRight: l.cfg.PadRight,
	}
}

// Train fits the model on texts, one string per line or manuscript.
func (l *Lacuna) Train(texts []string) error {
	training := corpus.Build(texts, l.corpusOptions())
	if err := l.model.Fit(training.Grams, training.Symbols); err != nil {
		return err
	}

	vocab, err := l.model.Vocabulary()
	if err != nil {
		return err
	}
	if vocab.Contains(l.cfg.Mask) {
		log.Warnf("Gap marker '%s' is also a vocabulary symbol; literal occurrences in queries are read as gaps", l.cfg.Mask)
	}
	log.Debugf("Trained on %d strings, vocabulary: %s", len(texts), vocab.String())
	return nil
}

// TrainFromFile trains on the lines of filename.
func (l *Lacuna) TrainFromFile(filename string) error {
	lines, err := corpus.LoadLines(filename)
	if err != nil {
		return err
	}
	return l.Train(lines)
}

// LogScore is the natural-log probability of symbol after context.
func (l *Lacuna) LogScore(symbol string, context []string) (float64, error) {
	return l.model.LogScore(symbol, context)
}

// Score is the probability of symbol after context.
func (l *Lacuna) Score(symbol string, context []string) (float64, error) {
	return l.model.Score(symbol, context)
}

// LogScoreString scores the last symbol of s against the symbols before it.
func (l *Lacuna) LogScoreString(s string) (float64, error) {
	return lm.LogScoreSequence(l.model, corpus.Symbols(s))
}

// ScoreString is the probability counterpart of LogScoreString.
func (l *Lacuna) ScoreString(s string) (float64, error) {
	return lm.ScoreSequence(l.model, corpus.Symbols(s))
}

// Vocabulary returns the trained symbols.
func (l *Lacuna) Vocabulary() (*corpus.Vocabulary, error) {
	return l.model.Vocabulary()
}

// VocabularyString returns the sorted vocabulary joined into one string.
func (l *Lacuna) VocabularyString() (string, error) {
	vocab, err := l.model.Vocabulary()
	if err != nil {
		return "", err
	}
	return vocab.String(), nil
}

// Generate samples count symbols continuing seed.
func (l *Lacuna) Generate(count int, seed string, randomSeed int64) ([]string, error) {
	return l.model.Generate(count, corpus.Symbols(seed), randomSeed)
}

// BeamSearch returns the terminal beam for query.
func (l *Lacuna) BeamSearch(query string, beamWidth int) ([]PartialResult, error) {
	return l.searcher.BeamSearch(corpus.Normalize(query), beamWidth)
}

// EnableCache keeps the rankings of up to size recent queries. Call it before serving.
func (l *Lacuna) EnableCache(size int) {
	if size > 0 {
		l.cache = NewResultCache(size)
	}
}

// CacheStats reports the result cache counters, nil without a cache.
func (l *Lacuna) CacheStats() map[string]int {
	if l.cache == nil {
		return nil
	}
	return l.cache.Stats()
}

// Fill returns at most topK reconstructions of query, best first.
func (l *Lacuna) Fill(query string, beamWidth, topK int) ([]Result, error) {
	query = corpus.Normalize(query)
	if l.cache != nil {
		if results, ok := l.cache.Get(query, beamWidth, topK); ok {
			return results, nil
		}
	}

	results, err := l.searcher.Fill(query, beamWidth, topK)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Put(query, beamWidth, topK, results)
	}
	return results, nil
}
