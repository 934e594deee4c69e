package ranking

import (
	"fmt"
	"math"

	"github.com/hyperjump/chunkrank/internal/models"
)

// Stop-word list names accepted by RankingConfig.StopWords.
const (
	StopWordsDefault  = "default"
	StopWordsExtended = "extended"
	StopWordsNone     = "none"
)

// RankingConfig holds all configuration for the reranker.
type RankingConfig struct {
	// Weights of the combined score. When all four are zero the defaults apply.
	SimilarityWeight float64 `yaml:"similarity_weight"` // default: 0.4
	KeywordWeight    float64 `yaml:"keyword_weight"`    // default: 0.3
	LengthWeight     float64 `yaml:"length_weight"`     // default: 0.2
	MetadataWeight   float64 `yaml:"metadata_weight"`   // default: 0.1

	// Similarity: score = max(0, 1 - distance/MaxDistance)
	MaxDistance float64 `yaml:"max_distance"` // default: 2

	// Length scoring (characters)
	MinIdealLength int     `yaml:"min_ideal_length"` // default: 200
	MaxIdealLength int     `yaml:"max_ideal_length"` // default: 1500
	LongTextFloor  float64 `yaml:"long_text_floor"`  // default: 0.7

	// Keyword overlap
	MinTokenLength  int      `yaml:"min_token_length"`  // default: 3
	EmptyQueryScore float64  `yaml:"empty_query_score"` // default: 0.5
	StopWords       string   `yaml:"stop_words"`        // default: "default"
	CustomStopWords []string `yaml:"custom_stop_words"` // used instead of StopWords when set

	// Metadata scoring
	MetadataBaseline     float64 `yaml:"metadata_baseline"`      // default: 0.5
	EarlyChunkLimit      int     `yaml:"early_chunk_limit"`      // default: 3
	EarlyChunkBoost      float64 `yaml:"early_chunk_boost"`      // default: 0.3
	MiddleChunkLimit     int     `yaml:"middle_chunk_limit"`     // default: 6
	MiddleChunkBoost     float64 `yaml:"middle_chunk_boost"`     // default: 0.2
	LateChunkBoost       float64 `yaml:"late_chunk_boost"`       // default: 0.1
	ShortDocumentChunks  int     `yaml:"short_document_chunks"`  // default: 5
	ShortDocumentBoost   float64 `yaml:"short_document_boost"`   // default: 0.2
	MediumDocumentChunks int     `yaml:"medium_document_chunks"` // default: 10
	MediumDocumentBoost  float64 `yaml:"medium_document_boost"`  // default: 0.1

	// DefaultTopK is used by the HTTP and CLI surfaces when a request omits top_k.
	DefaultTopK int `yaml:"default_top_k"` // default: 3

	// PreviewLength bounds the text preview in explanations.
	PreviewLength int `yaml:"preview_length"` // default: 100
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		SimilarityWeight: 0.4,
		KeywordWeight:    0.3,
		LengthWeight:     0.2,
		MetadataWeight:   0.1,

		MaxDistance: 2,

		MinIdealLength: 200,
		MaxIdealLength: 1500,
		LongTextFloor:  0.7,

		MinTokenLength:  3,
		EmptyQueryScore: 0.5,
		StopWords:       StopWordsDefault,

		MetadataBaseline:     0.5,
		EarlyChunkLimit:      3,
		EarlyChunkBoost:      0.3,
		MiddleChunkLimit:     6,
		MiddleChunkBoost:     0.2,
		LateChunkBoost:       0.1,
		ShortDocumentChunks:  5,
		ShortDocumentBoost:   0.2,
		MediumDocumentChunks: 10,
		MediumDocumentBoost:  0.1,

		DefaultTopK:   3,
		PreviewLength: 100,
	}
}

// ApplyDefaults fills in zero values with defaults. Weights are defaulted as a group so a
// single weight can be set to zero explicitly.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if c.SimilarityWeight == 0 && c.KeywordWeight == 0 && c.LengthWeight == 0 && c.MetadataWeight == 0 {
		c.SimilarityWeight = defaults.SimilarityWeight
		c.KeywordWeight = defaults.KeywordWeight
		c.LengthWeight = defaults.LengthWeight
		c.MetadataWeight = defaults.MetadataWeight
	}
	if c.MaxDistance == 0 {
		c.MaxDistance = defaults.MaxDistance
	}

	// Length
	if c.MinIdealLength == 0 {
		c.MinIdealLength = defaults.MinIdealLength
	}
	if c.MaxIdealLength == 0 {
		c.MaxIdealLength = defaults.MaxIdealLength
	}
	if c.LongTextFloor == 0 {
		c.LongTextFloor = defaults.LongTextFloor
	}

	// Keywords
	if c.MinTokenLength == 0 {
		c.MinTokenLength = defaults.MinTokenLength
	}
	if c.EmptyQueryScore == 0 {
		c.EmptyQueryScore = defaults.EmptyQueryScore
	}
	if c.StopWords == "" {
		c.StopWords = defaults.StopWords
	}

	// Metadata
	if c.MetadataBaseline == 0 {
		c.MetadataBaseline = defaults.MetadataBaseline
	}
	if c.EarlyChunkLimit == 0 {
		c.EarlyChunkLimit = defaults.EarlyChunkLimit
	}
	if c.EarlyChunkBoost == 0 {
		c.EarlyChunkBoost = defaults.EarlyChunkBoost
	}
	if c.MiddleChunkLimit == 0 {
		c.MiddleChunkLimit = defaults.MiddleChunkLimit
	}
	if c.MiddleChunkBoost == 0 {
		c.MiddleChunkBoost = defaults.MiddleChunkBoost
	}
	if c.LateChunkBoost == 0 {
		c.LateChunkBoost = defaults.LateChunkBoost
	}
	if c.ShortDocumentChunks == 0 {
		c.ShortDocumentChunks = defaults.ShortDocumentChunks
	}
	if c.ShortDocumentBoost == 0 {
		c.ShortDocumentBoost = defaults.ShortDocumentBoost
	}
	if c.MediumDocumentChunks == 0 {
		c.MediumDocumentChunks = defaults.MediumDocumentChunks
	}
	if c.MediumDocumentBoost == 0 {
		c.MediumDocumentBoost = defaults.MediumDocumentBoost
	}

	if c.DefaultTopK == 0 {
		c.DefaultTopK = defaults.DefaultTopK
	}
	if c.PreviewLength == 0 {
		c.PreviewLength = defaults.PreviewLength
	}
}

// Validate checks the configuration. Returns an error wrapping models.ErrInvalidConfiguration.
func (c *RankingConfig) Validate() error {
	weights := []float64{c.SimilarityWeight, c.KeywordWeight, c.LengthWeight, c.MetadataWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%w: ranking weights must be non-negative", models.ErrInvalidConfiguration)
		}
		sum += w
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("%w: ranking weights sum to %.3f, must not exceed 1", models.ErrInvalidConfiguration, sum)
	}
	if c.MaxDistance <= 0 {
		return fmt.Errorf("%w: max_distance must be positive", models.ErrInvalidConfiguration)
	}
	if c.MinIdealLength <= 0 || c.MaxIdealLength < c.MinIdealLength {
		return fmt.Errorf("%w: ideal length range [%d, %d] is invalid",
			models.ErrInvalidConfiguration, c.MinIdealLength, c.MaxIdealLength)
	}
	if c.LongTextFloor < 0 || c.LongTextFloor > 1 {
		return fmt.Errorf("%w: long_text_floor must be in [0, 1]", models.ErrInvalidConfiguration)
	}
	if c.EmptyQueryScore < 0 || c.EmptyQueryScore > 1 {
		return fmt.Errorf("%w: empty_query_score must be in [0, 1]", models.ErrInvalidConfiguration)
	}
	if c.MinTokenLength < 1 {
		return fmt.Errorf("%w: min_token_length must be positive", models.ErrInvalidConfiguration)
	}
	switch c.StopWords {
	case StopWordsDefault, StopWordsExtended, StopWordsNone:
	default:
		return fmt.Errorf("%w: unknown stop_words list %q", models.ErrInvalidConfiguration, c.StopWords)
	}
	if c.EarlyChunkLimit > c.MiddleChunkLimit || c.ShortDocumentChunks > c.MediumDocumentChunks {
		return fmt.Errorf("%w: metadata thresholds must be increasing", models.ErrInvalidConfiguration)
	}
	if c.DefaultTopK < 1 {
		return fmt.Errorf("%w: default_top_k must be positive", models.ErrInvalidConfiguration)
	}
	return nil
}
