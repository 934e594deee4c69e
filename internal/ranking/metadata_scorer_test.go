package ranking

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/hyperjump/chunkrank/internal/models"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMetadataScorer_Score(t *testing.T) {
	config := DefaultRankingConfig()
	scorer := NewMetadataScorer(config)

	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     float64
	}{
		{name: "no metadata", metadata: nil, want: 0.5},
		{name: "unrelated keys", metadata: map[string]interface{}{"source": "a.pdf"}, want: 0.5},
		{
			name:     "first chunk of short document",
			metadata: map[string]interface{}{"chunk_index": 0, "total_chunks": 3},
			want:     1.0,
		},
		{
			name:     "middle chunk of medium document",
			metadata: map[string]interface{}{"chunk_index": 4, "total_chunks": 8},
			want:     0.8,
		},
		{
			name:     "late chunk of long document",
			metadata: map[string]interface{}{"chunk_index": 10, "total_chunks": 20},
			want:     0.6,
		},
		{
			name:     "boundary early limit is middle",
			metadata: map[string]interface{}{"chunk_index": 3},
			want:     0.7,
		},
		{
			name:     "boundary short document inclusive",
			metadata: map[string]interface{}{"total_chunks": 5},
			want:     0.7,
		},
		{
			name:     "json decoded float64",
			metadata: map[string]interface{}{"chunk_index": float64(1), "total_chunks": float64(10)},
			want:     0.9,
		},
		{
			name:     "json number",
			metadata: map[string]interface{}{"chunk_index": json.Number("7")},
			want:     0.6,
		},
		{
			name:     "numeric string",
			metadata: map[string]interface{}{"chunk_index": " 2 "},
			want:     0.8,
		},
		{
			name:     "non numeric values ignored",
			metadata: map[string]interface{}{"chunk_index": true, "total_chunks": "many"},
			want:     0.5,
		},
		{
			name:     "nil value ignored",
			metadata: map[string]interface{}{"chunk_index": nil},
			want:     0.5,
		},
		{
			name:     "uint and int64",
			metadata: map[string]interface{}{"chunk_index": uint8(0), "total_chunks": int64(2)},
			want:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Candidate{Text: "x", Metadata: tt.metadata}
			got := scorer.Score(NewScoringContext(&AnalyzedQuery{}, c))
			if !approxEqual(got, tt.want) {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("Score() = %v, outside [0, 1]", got)
			}
		})
	}
}

func TestMetadataScorer_Capped(t *testing.T) {
	config := DefaultRankingConfig()
	config.MetadataBaseline = 0.9
	scorer := NewMetadataScorer(config)

	c := &models.Candidate{Metadata: map[string]interface{}{"chunk_index": 0, "total_chunks": 1}}
	if got := scorer.Score(NewScoringContext(&AnalyzedQuery{}, c)); got != 1 {
		t.Errorf("Score() = %v, want 1", got)
	}
}

func TestMetadataNumber_NaN(t *testing.T) {
	m := map[string]interface{}{"chunk_index": math.NaN(), "total_chunks": "NaN"}
	if _, ok := metadataNumber(m, models.MetaChunkIndex); ok {
		t.Error("NaN float should not be numeric")
	}
	if _, ok := metadataNumber(m, models.MetaTotalChunks); ok {
		t.Error("NaN string should not be numeric")
	}
}

func TestMetadataScorer_Name(t *testing.T) {
	if got := NewMetadataScorer(DefaultRankingConfig()).Name(); got != "metadata" {
		t.Errorf("Name() = %q", got)
	}
}
