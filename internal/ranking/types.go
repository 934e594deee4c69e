// Package ranking reorders vector-search candidates by a composite relevance score.
package ranking

import (
	"unicode/utf8"

	"github.com/hyperjump/chunkrank/internal/models"
)

// AnalyzedQuery holds the keyword form of a query.
type AnalyzedQuery struct {
	// Original is the original query string.
	Original string
	// Terms are the distinct normalized tokens of the query, stop words removed, in first-seen order.
	Terms []string
}

// ScoringContext provides everything a scorer needs for one candidate.
type ScoringContext struct {
	// Query is the analyzed query, shared by all candidates of a rerank call.
	Query *AnalyzedQuery
	// Candidate is the candidate being scored.
	Candidate *models.Candidate
	// Length is the candidate text length in characters.
	Length int
}

// NewScoringContext creates a ScoringContext for a candidate.
func NewScoringContext(query *AnalyzedQuery, c *models.Candidate) *ScoringContext {
	return &ScoringContext{
		Query:     query,
		Candidate: c,
		Length:    utf8.RuneCountInString(c.Text),
	}
}

// Scorer is the interface for the sub-score components. Scores are in [0, 1].
type Scorer interface {
	// Score calculates the score for a candidate given the scoring context.
	Score(ctx *ScoringContext) float64
	// Name returns the name of the scorer for debugging/logging.
	Name() string
}

// ScoreBreakdown holds the sub-scores of one candidate and their weighted combination.
type ScoreBreakdown struct {
	FinalScore      float64
	SimilarityScore float64
	KeywordScore    float64
	LengthScore     float64
	MetadataScore   float64
}

// Explanation is the debugging view of how one candidate was scored.
// Scores and distance are rounded to 3 decimals.
type Explanation struct {
	DocumentPreview  string                 `json:"document_preview"`
	DocumentLength   int                    `json:"document_length"`
	CombinedScore    float64                `json:"combined_score"`
	SimilarityScore  float64                `json:"similarity_score"`
	KeywordScore     float64                `json:"keyword_score"`
	LengthScore      float64                `json:"length_score"`
	MetadataScore    float64                `json:"metadata_score"`
	OriginalDistance float64                `json:"original_distance"`
	Metadata         map[string]interface{} `json:"metadata"`
}
