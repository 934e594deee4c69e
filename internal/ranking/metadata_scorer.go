package ranking

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/chunkrank/internal/models"
)

// MetadataScorer boosts candidates from early chunks and from short documents.
type MetadataScorer struct {
	config *RankingConfig
}

// NewMetadataScorer creates a new MetadataScorer with the given config.
func NewMetadataScorer(config *RankingConfig) *MetadataScorer {
	return &MetadataScorer{config: config}
}

// Name returns the scorer name.
func (s *MetadataScorer) Name() string {
	return "metadata"
}

// Score starts from MetadataBaseline and adds a position boost from chunk_index and a
// conciseness boost from total_chunks. Missing or non-numeric fields add nothing.
func (s *MetadataScorer) Score(ctx *ScoringContext) float64 {
	score := s.config.MetadataBaseline
	metadata := ctx.Candidate.Metadata
	if len(metadata) == 0 {
		return score
	}

	if idx, ok := metadataNumber(metadata, models.MetaChunkIndex); ok {
		switch {
		case idx < float64(s.config.EarlyChunkLimit):
			score += s.config.EarlyChunkBoost
		case idx < float64(s.config.MiddleChunkLimit):
			score += s.config.MiddleChunkBoost
		default:
			score += s.config.LateChunkBoost
		}
	}

	if total, ok := metadataNumber(metadata, models.MetaTotalChunks); ok {
		switch {
		case total <= float64(s.config.ShortDocumentChunks):
			score += s.config.ShortDocumentBoost
		case total <= float64(s.config.MediumDocumentChunks):
			score += s.config.MediumDocumentBoost
		}
	}

	return math.Min(1, score)
}

// metadataNumber reads a numeric metadata value. Values decoded from JSON arrive as
// float64 or json.Number; values set in Go may be any integer type or a numeric string.
func metadataNumber(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
