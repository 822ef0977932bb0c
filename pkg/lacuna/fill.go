package lacuna

import (
	"strings"

	lerrors "github.com/lacunae/lacuna/internal/errors"
)

// Result is a ranked reconstruction.
type Result struct {
	Text  string
	Score float64
}

// NeutralScore is the log score reported for a query without gaps.
const NeutralScore = 0.0

// ValidateBeam checks beamWidth >= 1 and 1 <= topK <= beamWidth.
func ValidateBeam(beamWidth, topK int) error {
	switch {
	case beamWidth < 1:
		return lerrors.NewInvalidBeamConfigurationError(beamWidth, topK, "beam width must be positive")
	case topK < 1:
		return lerrors.NewInvalidBeamConfigurationError(beamWidth, topK, "top_k must be positive")
	case topK > beamWidth:
		return lerrors.NewInvalidBeamConfigurationError(beamWidth, topK, "top_k exceeds beam_width")
	}
	return nil
}

// Fill returns at most topK reconstructions of query, best first.
// A query without gaps comes back unchanged with NeutralScore.
func (s *Searcher) Fill(query string, beamWidth, topK int) ([]Result, error) {
	if err := ValidateBeam(beamWidth, topK); err != nil {
		return nil, err
	}
	if _, err := s.model.Vocabulary(); err != nil {
		return nil, err
	}

	if !strings.Contains(query, s.mask) {
		return []Result{{Text: query, Score: NeutralScore}}, nil
	}

	beam, err := s.BeamSearch(query, beamWidth)
	if err != nil {
		return nil, err
	}
	return Rank(beam, topK), nil
}

// Rank slices the top results off a sorted terminal beam.
func Rank(beam []PartialResult, topK int) []Result {
	if topK > len(beam) {
		topK = len(beam)
	}
	results := make([]Result, topK)
	for i := range results {
		results[i] = Result{Text: beam[i].Prefix, Score: beam[i].Score}
	}
	return results
}
