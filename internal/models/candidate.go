package models

import (
	"fmt"
	"math"
)

// Candidate is one vector-search hit to be reranked.
// Distance is the vector-space distance reported by the search; smaller is more similar.
type Candidate struct {
	Text     string                 `json:"text"`
	Distance float64                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ScoredCandidate is a Candidate with its combined score and the sub-scores that produced it.
type ScoredCandidate struct {
	Candidate
	Score           float64 `json:"score"`
	SimilarityScore float64 `json:"similarity_score"`
	KeywordScore    float64 `json:"keyword_score"`
	LengthScore     float64 `json:"length_score"`
	MetadataScore   float64 `json:"metadata_score"`
	Rank            int     `json:"rank"`
	OriginalIndex   int     `json:"original_index"`
}

// CandidateInput is the wire form of a candidate. Distance is a pointer so a
// missing value can be told apart from zero.
type CandidateInput struct {
	Text     string                 `json:"text"`
	Distance *float64               `json:"distance"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RerankRequest is the request body for reranking. TopK is a pointer so an explicit
// zero is rejected instead of being replaced by the default.
type RerankRequest struct {
	Query      string            `json:"query"`
	Candidates []*CandidateInput `json:"candidates"`
	TopK       *int              `json:"top_k,omitempty"`
}

// Validate checks the request and fills a default top_k when absent.
// Returns an error wrapping ErrInvalidArgument for a top_k below one or a candidate without a usable distance.
func (r *RerankRequest) Validate(defaultTopK int) error {
	if r.TopK == nil {
		k := defaultTopK
		r.TopK = &k
	}
	if *r.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidArgument, *r.TopK)
	}
	for i, c := range r.Candidates {
		if c == nil {
			return fmt.Errorf("%w: candidate %d is null", ErrInvalidArgument, i)
		}
		if c.Distance == nil {
			return fmt.Errorf("%w: candidate %d is missing distance", ErrInvalidArgument, i)
		}
		if math.IsNaN(*c.Distance) || *c.Distance < 0 {
			return fmt.Errorf("%w: candidate %d has invalid distance %v", ErrInvalidArgument, i, *c.Distance)
		}
	}
	return nil
}

// K returns the requested top_k, or zero before Validate has run on a request without one.
func (r *RerankRequest) K() int {
	if r.TopK == nil {
		return 0
	}
	return *r.TopK
}

// ToCandidates converts validated wire candidates to Candidates.
func (r *RerankRequest) ToCandidates() []*Candidate {
	out := make([]*Candidate, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		var d float64
		if c.Distance != nil {
			d = *c.Distance
		}
		out = append(out, &Candidate{Text: c.Text, Distance: d, Metadata: c.Metadata})
	}
	return out
}

// RerankResponse is the response for a rerank request.
type RerankResponse struct {
	Query           string             `json:"query"`
	Results         []*ScoredCandidate `json:"results"`
	TotalCandidates int                `json:"total_candidates"`
	QueryTime       int64              `json:"query_time_ms"`
}
