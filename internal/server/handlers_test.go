package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/chunkrank/internal/config"
	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/indexer"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"go.uber.org/zap"
)

const paragraph = "El contrato establece las condiciones generales del servicio prestado al cliente."

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	chunker, err := indexer.NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	idx := indexer.NewIndexer(nil, chunker, extract.NewExtractor())
	ranker, err := ranking.NewRanker(nil)
	if err != nil {
		t.Fatal(err)
	}
	evaluator, err := evaluation.NewScorer(nil)
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(idx, ranker, evaluator, &config.ServerConfig{Port: 8080}, zap.NewNop())
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestHandleChunkDocument(t *testing.T) {
	h := newTestServer(t)
	w := doJSON(t, h, "/api/v1/documents/chunk", &models.DocumentInput{
		ID:      "doc-1",
		Title:   "Contrato",
		Content: "Página 1\n" + paragraph,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var res models.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.DocumentID != "doc-1" || res.TotalChunks != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Chunks[0].Chunk.Text != paragraph {
		t.Errorf("chunk text: %q", res.Chunks[0].Chunk.Text)
	}

	w = doJSON(t, h, "/api/v1/documents/chunk", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid body status: got %d, want 400", w.Code)
	}
}

func TestHandleUploadDocument(t *testing.T) {
	h := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(paragraph))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var res models.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Title != "notes.txt" || res.TotalChunks != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	// Form without the file field
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()
	r = httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file status: got %d, want 400", w.Code)
	}
}

func TestHandleUploadDocument_ErrorStatus(t *testing.T) {
	chunker, err := indexer.NewChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	idx := indexer.NewIndexer(nil, chunker, extract.NewExtractor(extract.WithMaxBytes(64)))
	ranker, err := ranking.NewRanker(nil)
	if err != nil {
		t.Fatal(err)
	}
	evaluator, err := evaluation.NewScorer(nil)
	if err != nil {
		t.Fatal(err)
	}
	h := NewServer(idx, ranker, evaluator, &config.ServerConfig{Port: 8080}, zap.NewNop()).Handler()

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"over size limit", "big.txt", strings.Repeat("a", 65), http.StatusRequestEntityTooLarge},
		{"malformed pdf", "broken.pdf", "%PDF-garbage", http.StatusBadRequest},
		{"malformed docx", "broken.docx", "not a zip", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, err := mw.CreateFormFile("file", tt.filename)
			if err != nil {
				t.Fatal(err)
			}
			fw.Write([]byte(tt.content))
			mw.Close()

			r := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
			r.Header.Set("Content-Type", mw.FormDataContentType())
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandleRerank(t *testing.T) {
	h := newTestServer(t)
	a := strings.Repeat("Cooking pasta requires boiling water and salt. ", 5)
	b := strings.Repeat("Machine learning basics explained simply. ", 5)
	w := doJSON(t, h, "/api/v1/rerank", fmt.Sprintf(
		`{"query": "machine learning basics", "top_k": 2, "candidates": [{"text": %q, "distance": 0.1}, {"text": %q, "distance": 1.0}]}`,
		a, b))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RerankResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalCandidates != 2 || len(resp.Results) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].Text != b || resp.Results[0].Rank != 1 || resp.Results[0].OriginalIndex != 1 {
		t.Errorf("expected keyword match first, got %+v", resp.Results[0])
	}
}

func TestHandleRerank_DefaultTopK(t *testing.T) {
	h := newTestServer(t)
	req := `{"query": "contrato", "candidates": [
		{"text": "uno", "distance": 0.1}, {"text": "dos", "distance": 0.2},
		{"text": "tres", "distance": 0.3}, {"text": "cuatro", "distance": 0.4},
		{"text": "cinco", "distance": 0.5}]}`
	w := doJSON(t, h, "/api/v1/rerank", req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.RerankResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 || resp.TotalCandidates != 5 {
		t.Errorf("results=%d total=%d, want 3 of 5", len(resp.Results), resp.TotalCandidates)
	}
}

func TestHandleRerank_BadRequests(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"query": `},
		{"missing distance", `{"query": "q", "candidates": [{"text": "x"}]}`},
		{"negative distance", `{"query": "q", "candidates": [{"text": "x", "distance": -1}]}`},
		{"negative top k", `{"query": "q", "top_k": -1, "candidates": []}`},
		{"zero top k", `{"query": "q", "top_k": 0, "candidates": [{"text": "x", "distance": 0.1}]}`},
		{"null candidate", `{"query": "q", "candidates": [null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, "/api/v1/rerank", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleExplain(t *testing.T) {
	h := newTestServer(t)
	w := doJSON(t, h, "/api/v1/rerank/explain",
		`{"query": "contrato", "candidates": [{"text": "otro tema", "distance": 0.2}, {"text": "el contrato", "distance": 0.9, "metadata": {"chunk_index": 0}}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Query        string                 `json:"query"`
		Explanations []*ranking.Explanation `json:"explanations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "contrato" || len(resp.Explanations) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Explanations[0].DocumentPreview != "otro tema" || resp.Explanations[0].KeywordScore != 0 {
		t.Errorf("explanations should keep input order: %+v", resp.Explanations[0])
	}
	if resp.Explanations[1].KeywordScore != 1 || resp.Explanations[1].MetadataScore != 0.8 {
		t.Errorf("unexpected second explanation: %+v", resp.Explanations[1])
	}
}

func TestHandleEvaluate(t *testing.T) {
	h := newTestServer(t)
	w := doJSON(t, h, "/api/v1/evaluate",
		`{"exactitud": 85, "cobertura": 80, "claridad": 90, "citas": 70, "alucinacion": 95, "seguridad": 100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Score    float64             `json:"score"`
		Criteria evaluation.Criteria `json:"criteria"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Score != 72.75 || resp.Criteria.Accuracy != 85 {
		t.Errorf("unexpected response: %+v", resp)
	}

	w = doJSON(t, h, "/api/v1/evaluate", `{"accuracy": 85}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("incomplete criteria status: got %d, want 400", w.Code)
	}
}

func TestHandleUnknownRoute(t *testing.T) {
	h := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/rerank", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", w.Code)
	}
}
