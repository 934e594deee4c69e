package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/pkg/utils"
	"go.uber.org/zap"
)

// Ranker combines the similarity, keyword, length and metadata scorers into one score
// and reorders candidates by it. A Ranker is immutable and safe for concurrent use.
type Ranker struct {
	config           *RankingConfig
	analyzer         *QueryAnalyzer
	similarityScorer Scorer
	keywordScorer    Scorer
	lengthScorer     Scorer
	metadataScorer   Scorer
	logger           *zap.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RankerOption {
	return func(r *Ranker) { r.logger = l }
}

// WithStopWords replaces the configured stop-word list.
func WithStopWords(sw StopWords) RankerOption {
	return func(r *Ranker) {
		r.analyzer = NewQueryAnalyzer(sw, r.config.MinTokenLength)
		r.keywordScorer = NewKeywordScorer(r.config, r.analyzer)
	}
}

// NewRanker creates a new Ranker. A nil config uses the defaults; zero fields are defaulted.
// Returns an error wrapping models.ErrInvalidConfiguration when the config is invalid.
func NewRanker(config *RankingConfig, opts ...RankerOption) (*Ranker, error) {
	cfg := DefaultRankingConfig()
	if config != nil {
		*cfg = *config
		cfg.ApplyDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sw, err := stopWordsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("stop words: %w", err)
	}
	analyzer := NewQueryAnalyzer(sw, cfg.MinTokenLength)
	r := &Ranker{
		config:           cfg,
		analyzer:         analyzer,
		similarityScorer: NewSimilarityScorer(cfg),
		keywordScorer:    NewKeywordScorer(cfg, analyzer),
		lengthScorer:     NewLengthScorer(cfg),
		metadataScorer:   NewMetadataScorer(cfg),
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.LoggerOrNop(r.logger)
	return r, nil
}

// Config returns a copy of the ranking configuration.
func (r *Ranker) Config() RankingConfig {
	return *r.config
}

// AnalyzeQuery parses and analyzes a query string.
func (r *Ranker) AnalyzeQuery(query string) *AnalyzedQuery {
	return r.analyzer.Analyze(query)
}

// RankWithBreakdown scores one candidate against an analyzed query.
func (r *Ranker) RankWithBreakdown(query *AnalyzedQuery, c *models.Candidate) *ScoreBreakdown {
	ctx := NewScoringContext(query, c)
	b := &ScoreBreakdown{
		SimilarityScore: r.similarityScorer.Score(ctx),
		KeywordScore:    r.keywordScorer.Score(ctx),
		LengthScore:     r.lengthScorer.Score(ctx),
		MetadataScore:   r.metadataScorer.Score(ctx),
	}
	// Score = Ws*Ss + Wk*Sk + Wl*Sl + Wm*Sm
	b.FinalScore = utils.Clamp01(r.config.SimilarityWeight*b.SimilarityScore +
		r.config.KeywordWeight*b.KeywordScore +
		r.config.LengthWeight*b.LengthScore +
		r.config.MetadataWeight*b.MetadataScore)
	return b
}

// Rerank scores every candidate, orders them by combined score descending (ties keep
// input order), and returns the first min(topK, len(candidates)). Candidates are not modified.
// Returns an error wrapping models.ErrInvalidArgument when topK is not positive or a
// candidate is nil or has a negative or NaN distance.
func (r *Ranker) Rerank(query string, candidates []*models.Candidate, topK int) ([]*models.ScoredCandidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidArgument, topK)
	}
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*models.ScoredCandidate{}, nil
	}

	analyzed := r.AnalyzeQuery(query)
	scored := make([]*models.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		b := r.RankWithBreakdown(analyzed, c)
		scored[i] = &models.ScoredCandidate{
			Candidate:       *c,
			Score:           b.FinalScore,
			SimilarityScore: b.SimilarityScore,
			KeywordScore:    b.KeywordScore,
			LengthScore:     b.LengthScore,
			MetadataScore:   b.MetadataScore,
			OriginalIndex:   i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	results := TopN(scored, topK)
	for i := range results {
		results[i].Rank = i + 1
	}

	r.logger.Debug("ranking reranked candidates",
		zap.Int("query_terms", len(analyzed.Terms)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(results)),
		zap.Float64("top_score", results[0].Score))
	return results, nil
}

// Explain returns the score breakdown of every candidate, in input order, for debugging.
func (r *Ranker) Explain(query string, candidates []*models.Candidate) ([]*Explanation, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}
	analyzed := r.AnalyzeQuery(query)
	out := make([]*Explanation, len(candidates))
	for i, c := range candidates {
		b := r.RankWithBreakdown(analyzed, c)
		meta := c.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		out[i] = &Explanation{
			DocumentPreview:  utils.Truncate(c.Text, r.config.PreviewLength),
			DocumentLength:   NewScoringContext(analyzed, c).Length,
			CombinedScore:    utils.Round(b.FinalScore, 3),
			SimilarityScore:  utils.Round(b.SimilarityScore, 3),
			KeywordScore:     utils.Round(b.KeywordScore, 3),
			LengthScore:      utils.Round(b.LengthScore, 3),
			MetadataScore:    utils.Round(b.MetadataScore, 3),
			OriginalDistance: utils.Round(c.Distance, 3),
			Metadata:         meta,
		}
	}
	return out, nil
}

func validateCandidates(candidates []*models.Candidate) error {
	for i, c := range candidates {
		if c == nil {
			return fmt.Errorf("%w: candidate %d is nil", models.ErrInvalidArgument, i)
		}
		if math.IsNaN(c.Distance) || c.Distance < 0 {
			return fmt.Errorf("%w: candidate %d has invalid distance %v", models.ErrInvalidArgument, i, c.Distance)
		}
	}
	return nil
}

// TopN returns the top N results.
func TopN(results []*models.ScoredCandidate, n int) []*models.ScoredCandidate {
	if n >= len(results) {
		return results
	}
	return results[:n]
}
