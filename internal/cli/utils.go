// Package cli provides output formatting for the chunkrank command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"github.com/hyperjump/chunkrank/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

const separator = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIngestResults writes chunking results to w in the given format.
// Text output previews each chunk up to previewLen characters (0 prints it whole).
func WriteIngestResults(w io.Writer, results []*models.IngestResult, format OutputFormat, previewLen int) error {
	if format == OutputJSON {
		if len(results) == 1 {
			return writeJSON(w, results[0])
		}
		return writeJSON(w, results)
	}
	for _, res := range results {
		fmt.Fprintf(w, "\n%s: %d chunks from %d cleaned characters\n", displayTitle(res), res.TotalChunks, res.CleanedLength)
		for _, ch := range res.Chunks {
			fmt.Fprintln(w, separator)
			fmt.Fprintf(w, "[%d/%d] %s (%d chars)\n", ch.Chunk.Index+1, ch.Chunk.Total, ch.ID, len([]rune(ch.Chunk.Text)))
			fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(ch.Chunk.Text, previewLen))
		}
	}
	return nil
}

func displayTitle(res *models.IngestResult) string {
	if res.Title != "" {
		return res.Title
	}
	return res.DocumentID
}

// WriteRerankResults writes rerank results to w in the given format.
func WriteRerankResults(w io.Writer, response *models.RerankResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nTop %d of %d candidates for %q in %dms\n\n",
		len(response.Results), response.TotalCandidates, response.Query, response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Similarity: %.4f, Keyword: %.4f, Length: %.4f, Metadata: %.4f)\n",
			r.Rank, r.Score, r.SimilarityScore, r.KeywordScore, r.LengthScore, r.MetadataScore)
		fmt.Fprintf(w, "Input position: %d | Distance: %.4f\n", r.OriginalIndex, r.Distance)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Text, 200))
	}
	return nil
}

// WriteExplanations writes per-candidate score breakdowns to w in the given format.
func WriteExplanations(w io.Writer, explanations []*ranking.Explanation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, explanations)
	}
	for i, e := range explanations {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "#%d combined=%.3f similarity=%.3f keyword=%.3f length=%.3f metadata=%.3f\n",
			i, e.CombinedScore, e.SimilarityScore, e.KeywordScore, e.LengthScore, e.MetadataScore)
		fmt.Fprintf(w, "distance=%.3f length=%d\n", e.OriginalDistance, e.DocumentLength)
		fmt.Fprintf(w, "%s\n", e.DocumentPreview)
	}
	return nil
}

// WriteEvaluation writes an answer score and its criteria to w in the given format.
func WriteEvaluation(w io.Writer, score float64, c evaluation.Criteria, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"score": score, "criteria": c})
	}
	fmt.Fprintf(w, "Score: %.2f\n", score)
	fmt.Fprintf(w, "  Accuracy:      %.0f/100\n", c.Accuracy)
	fmt.Fprintf(w, "  Coverage:      %.0f/100\n", c.Coverage)
	fmt.Fprintf(w, "  Clarity:       %.0f/100\n", c.Clarity)
	fmt.Fprintf(w, "  Citations:     %.0f/100\n", c.Citations)
	fmt.Fprintf(w, "  Hallucination: %.0f/100 (100 = none)\n", c.Hallucination)
	fmt.Fprintf(w, "  Safety:        %.0f/100\n", c.Safety)
	return nil
}
