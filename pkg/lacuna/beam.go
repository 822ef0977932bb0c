package lacuna

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	lerrors "github.com/lacunae/lacuna/internal/errors"
	"github.com/lacunae/lacuna/pkg/corpus"
	"github.com/lacunae/lacuna/pkg/lm"
)

// PartialResult is one reconstruction in progress.
type PartialResult struct {
	Prefix        string
	LastCandidate string
	Remaining     []Segment
	Score         float64

	// window holds the trailing symbols of Prefix the model can still condition on
	window []string
}

// Done reports whether every segment has been resolved.
func (p PartialResult) Done() bool {
	return len(p.Remaining) == 0
}

// Searcher runs the left-to-right beam search over a fitted model.
// It keeps no per-request state and may be shared between goroutines.
type Searcher struct {
	model lm.Model
	mask  string
}

// NewSearcher creates a Searcher for model using mask as gap marker.
func NewSearcher(model lm.Model, mask string) *Searcher {
	return &Searcher{model: model, mask: mask}
}

// extend appends candidate to parent and scores the last symbol of the new prefix
// against what precedes it.
func (s *Searcher) extend(parent PartialResult, candidate string, remaining []Segment) (PartialResult, error) {
	symbols := corpus.Symbols(candidate)
	full := make([]string, 0, len(parent.window)+len(symbols))
	full = append(full, parent.window...)
	full = append(full, symbols...)

	score, err := lm.LogScoreSequence(s.model, full)
	if err != nil {
		return PartialResult{}, err
	}

	keep := s.model.Order() - 1
	if keep < 0 {
		keep = 0
	}
	window := full
	if len(window) > keep {
		window = window[len(window)-keep:]
	}

	return PartialResult{
		Prefix:        parent.Prefix + candidate,
		LastCandidate: candidate,
		Remaining:     remaining,
		Score:         parent.Score + score,
		window:        window,
	}, nil
}

// successors expands the next segment of parent into scored children.
func (s *Searcher) successors(parent PartialResult, symbols []string) ([]PartialResult, error) {
	segment := parent.Remaining[0]
	rest := parent.Remaining[1:]

	var children []PartialResult
	for candidate := range Expand(segment, symbols) {
		child, err := s.extend(parent, candidate, rest)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, lerrors.NewNoCandidatesError(segment.Text(s.mask))
	}
	return children, nil
}

// prune sorts by descending score, first seen winning ties, and keeps the best width.
func prune(pool []PartialResult, width int) []PartialResult {
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})
	if len(pool) > width {
		pool = pool[:width]
	}
	return pool
}

// BeamSearch resolves every gap of query and returns the terminal beam, best first.
// The beam never holds more than beamWidth results.
func (s *Searcher) BeamSearch(query string, beamWidth int) ([]PartialResult, error) {
	if beamWidth < 1 {
		return nil, lerrors.NewInvalidBeamConfigurationError(beamWidth, 0, "beam width must be positive")
	}
	vocab, err := s.model.Vocabulary()
	if err != nil {
		return nil, err
	}
	symbols := vocab.Symbols()

	segments := Split(query, s.mask)
	root := PartialResult{Remaining: segments}

	beam, err := s.successors(root, symbols)
	if err != nil {
		return nil, err
	}
	beam = prune(beam, beamWidth)

	step := 1
	for !beam[0].Done() {
		pools := make([][]PartialResult, len(beam))
		errs := make([]error, len(beam))

		var wg sync.WaitGroup
		for i, parent := range beam {
			wg.Add(1)
			go func(i int, parent PartialResult) {
				defer wg.Done()
				pools[i], errs[i] = s.successors(parent, symbols)
			}(i, parent)
		}
		wg.Wait()

		var pool []PartialResult
		for i := range beam {
			if errs[i] != nil {
				return nil, errs[i]
			}
			pool = append(pool, pools[i]...)
		}
		beam = prune(pool, beamWidth)
		step++
	}

	log.Debugf("Beam search for '%s' finished after %d steps with %d results", query, step, len(beam))
	return beam, nil
}
