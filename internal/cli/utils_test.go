package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" json ", OutputJSON, false},
		{"yaml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func sampleIngestResult() *models.IngestResult {
	return &models.IngestResult{
		DocumentID:    "doc-1",
		Title:         "Contrato",
		CleanedLength: 120,
		TotalChunks:   2,
		Chunks: []*models.DocumentChunk{
			{ID: "doc-1_0", DocumentID: "doc-1", Chunk: models.Chunk{Text: "Primera parte del contrato.", Index: 0, Total: 2}},
			{ID: "doc-1_1", DocumentID: "doc-1", Chunk: models.Chunk{Text: "Segunda parte del contrato.", Index: 1, Total: 2}},
		},
	}
}

func TestWriteIngestResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIngestResults(&buf, []*models.IngestResult{sampleIngestResult()}, OutputJSON, 0); err != nil {
		t.Fatalf("WriteIngestResults(json): %v", err)
	}
	var decoded models.IngestResult
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not a single JSON object: %v", err)
	}
	if decoded.DocumentID != "doc-1" || len(decoded.Chunks) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := WriteIngestResults(&buf, []*models.IngestResult{sampleIngestResult(), sampleIngestResult()}, OutputJSON, 0); err != nil {
		t.Fatal(err)
	}
	var many []*models.IngestResult
	if err := json.NewDecoder(&buf).Decode(&many); err != nil || len(many) != 2 {
		t.Errorf("multiple results should be a JSON array: %v, %d", err, len(many))
	}
}

func TestWriteIngestResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIngestResults(&buf, []*models.IngestResult{sampleIngestResult()}, OutputText, 10); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Contrato: 2 chunks from 120 cleaned characters", "[1/2] doc-1_0", "[2/2] doc-1_1", "Primera pa..."} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteRerankResults(t *testing.T) {
	response := &models.RerankResponse{
		Query:           "machine learning",
		TotalCandidates: 4,
		QueryTime:       3,
		Results: []*models.ScoredCandidate{
			{Candidate: models.Candidate{Text: "Machine learning intro", Distance: 0.5}, Score: 0.75, Rank: 1, OriginalIndex: 2},
		},
	}

	var buf bytes.Buffer
	if err := WriteRerankResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Top 1 of 4 candidates", `"machine learning"`, "3ms", "Rank: 1", "Score: 0.7500", "Input position: 2", "Machine learning intro"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteRerankResults(&buf, response, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.RerankResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Text != "Machine learning intro" || decoded.QueryTime != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteExplanations(t *testing.T) {
	explanations := []*ranking.Explanation{
		{DocumentPreview: "texto", DocumentLength: 5, CombinedScore: 0.412, OriginalDistance: 0.3, Metadata: map[string]interface{}{}},
	}
	var buf bytes.Buffer
	if err := WriteExplanations(&buf, explanations, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "combined=0.412") || !strings.Contains(buf.String(), "distance=0.300 length=5") {
		t.Errorf("text output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteExplanations(&buf, explanations, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"combined_score": 0.412`) {
		t.Errorf("json output:\n%s", buf.String())
	}
}

func TestWriteEvaluation(t *testing.T) {
	c := evaluation.Criteria{Accuracy: 85, Coverage: 80, Clarity: 90, Citations: 70, Hallucination: 95, Safety: 100}
	var buf bytes.Buffer
	if err := WriteEvaluation(&buf, 72.75, c, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"Score: 72.75", "Accuracy:      85/100", "Hallucination: 95/100"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("text output missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WriteEvaluation(&buf, 72.75, c, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Score    float64             `json:"score"`
		Criteria evaluation.Criteria `json:"criteria"`
	}
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Score != 72.75 || decoded.Criteria != c {
		t.Errorf("decoded = %+v", decoded)
	}
}
