package ranking

import "math"

// SimilarityScorer converts the vector distance into a similarity in [0, 1].
type SimilarityScorer struct {
	config *RankingConfig
}

// NewSimilarityScorer creates a new SimilarityScorer with the given config.
func NewSimilarityScorer(config *RankingConfig) *SimilarityScorer {
	return &SimilarityScorer{config: config}
}

// Name returns the scorer name.
func (s *SimilarityScorer) Name() string {
	return "similarity"
}

// Score returns max(0, 1 - distance/MaxDistance). Cosine distances lie in [0, 2].
func (s *SimilarityScorer) Score(ctx *ScoringContext) float64 {
	return math.Max(0, 1-ctx.Candidate.Distance/s.config.MaxDistance)
}

// LengthScorer penalizes texts too short to carry context and, mildly, texts long enough to add noise.
type LengthScorer struct {
	config *RankingConfig
}

// NewLengthScorer creates a new LengthScorer with the given config.
func NewLengthScorer(config *RankingConfig) *LengthScorer {
	return &LengthScorer{config: config}
}

// Name returns the scorer name.
func (s *LengthScorer) Name() string {
	return "length"
}

// Score is length/MinIdealLength below the ideal range, 1 inside it, and
// max(LongTextFloor, MaxIdealLength/length) above it.
func (s *LengthScorer) Score(ctx *ScoringContext) float64 {
	n := ctx.Length
	switch {
	case n < s.config.MinIdealLength:
		return float64(n) / float64(s.config.MinIdealLength)
	case n > s.config.MaxIdealLength:
		return math.Max(s.config.LongTextFloor, float64(s.config.MaxIdealLength)/float64(n))
	default:
		return 1
	}
}

// KeywordScorer measures which share of the query terms appear in the candidate text.
type KeywordScorer struct {
	config   *RankingConfig
	analyzer *QueryAnalyzer
}

// NewKeywordScorer creates a new KeywordScorer.
func NewKeywordScorer(config *RankingConfig, analyzer *QueryAnalyzer) *KeywordScorer {
	return &KeywordScorer{config: config, analyzer: analyzer}
}

// Name returns the scorer name.
func (s *KeywordScorer) Name() string {
	return "keyword"
}

// Score returns |query terms ∩ text tokens| / |query terms|. A query without
// usable terms scores EmptyQueryScore for every candidate.
func (s *KeywordScorer) Score(ctx *ScoringContext) float64 {
	if ctx.Query == nil || len(ctx.Query.Terms) == 0 {
		return s.config.EmptyQueryScore
	}
	docTokens := s.analyzer.TokenSet(ctx.Candidate.Text)
	overlap := 0
	for _, t := range ctx.Query.Terms {
		if _, ok := docTokens[t]; ok {
			overlap++
		}
	}
	return math.Min(1, float64(overlap)/float64(len(ctx.Query.Terms)))
}
