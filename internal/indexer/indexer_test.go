package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/fileid"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const paragraph = "El contrato establece las condiciones generales del servicio prestado al cliente."

func testIndexer(t *testing.T, size, overlap int, opts ...IndexerOption) *Indexer {
	t.Helper()
	chunker, err := NewChunker(size, overlap)
	if err != nil {
		t.Fatal(err)
	}
	return NewIndexer(nil, chunker, extract.NewExtractor(), append([]IndexerOption{WithLogger(zap.NewNop())}, opts...)...)
}

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"txt", "md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		if got := extensionAllowed(tt.ext, tt.allowed); got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func TestProcess(t *testing.T) {
	idx := testIndexer(t, 200, 40)
	content := "Página 1\n"
	for i := 1; i <= 4; i++ {
		content += fmt.Sprintf("Sección %d. %s\n\n", i, paragraph)
	}
	content += "Página 2"
	res, err := idx.Process(context.Background(), &models.DocumentInput{
		ID:       "doc-1",
		Title:    "Contrato",
		Content:  content,
		Metadata: map[string]interface{}{"author": "legal"},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.DocumentID != "doc-1" || res.Title != "Contrato" {
		t.Errorf("unexpected result header: %+v", res)
	}
	if strings.Contains(res.Chunks[0].Chunk.Text, "Página") {
		t.Error("footer should be cleaned before chunking")
	}
	if res.TotalChunks != len(res.Chunks) || res.TotalChunks != 2 {
		t.Fatalf("TotalChunks=%d len=%d", res.TotalChunks, len(res.Chunks))
	}
	for i, ch := range res.Chunks {
		if ch.ID != "doc-1_"+string(rune('0'+i)) {
			t.Errorf("chunk %d ID=%s", i, ch.ID)
		}
		if ch.DocumentID != "doc-1" || ch.Chunk.Index != i || ch.Chunk.Total != res.TotalChunks {
			t.Errorf("chunk %d: %+v", i, ch)
		}
		if ch.Metadata[models.MetaChunkIndex] != i || ch.Metadata[models.MetaTotalChunks] != res.TotalChunks {
			t.Errorf("chunk %d metadata: %v", i, ch.Metadata)
		}
		if ch.Metadata[models.MetaDocumentID] != "doc-1" || ch.Metadata[models.MetaTitle] != "Contrato" || ch.Metadata["author"] != "legal" {
			t.Errorf("chunk %d metadata: %v", i, ch.Metadata)
		}
	}
	// Chunks do not share the input map.
	res.Chunks[0].Metadata["author"] = "changed"
	if res.Chunks[1].Metadata["author"] != "legal" {
		t.Error("chunk metadata should be copied per chunk")
	}
}

func TestProcess_generatesID(t *testing.T) {
	idx := testIndexer(t, 1000, 200)
	res, err := idx.Process(context.Background(), &models.DocumentInput{Content: paragraph})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(res.DocumentID); err != nil {
		t.Errorf("DocumentID %q is not a UUID: %v", res.DocumentID, err)
	}
	if res.TotalChunks != 1 || res.Chunks[0].ID != res.DocumentID+"_0" {
		t.Errorf("unexpected chunks: %+v", res.Chunks)
	}
}

func TestProcess_emptyAndErrors(t *testing.T) {
	idx := testIndexer(t, 1000, 200)
	res, err := idx.Process(context.Background(), &models.DocumentInput{ID: "e", Content: "Página 1\n[2]"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalChunks != 0 || len(res.Chunks) != 0 || res.CleanedLength != 0 {
		t.Errorf("all-noise document should yield no chunks: %+v", res)
	}
	if _, err := idx.Process(context.Background(), nil); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("nil input: got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Process(ctx, &models.DocumentInput{Content: paragraph}); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: got %v", err)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	idx := testIndexer(t, 1000, 200)
	fPath := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(fPath, []byte(paragraph), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := idx.ProcessFile(context.Background(), fPath)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "doc.txt" || res.TotalChunks != 1 || res.Chunks[0].Chunk.Text != paragraph {
		t.Errorf("unexpected result: %+v", res)
	}
	abs, _ := filepath.Abs(fPath)
	if res.Chunks[0].Metadata[models.MetaSourcePath] != abs {
		t.Errorf("source_path: got %v", res.Chunks[0].Metadata[models.MetaSourcePath])
	}
	if res.DocumentID != fileid.FromPath(abs) {
		t.Errorf("DocumentID = %q, want the path-derived ID", res.DocumentID)
	}
	again, err := idx.ProcessFile(context.Background(), fPath)
	if err != nil || again.Chunks[0].ID != res.Chunks[0].ID {
		t.Errorf("re-processing the same file should keep chunk IDs: %v", err)
	}

	if _, err := idx.ProcessFile(context.Background(), dir); err == nil {
		t.Error("expected error for directory")
	}
	if _, err := idx.ProcessFile(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProcessFile_excel(t *testing.T) {
	dir := t.TempDir()
	idx := testIndexer(t, 1000, 200)
	fPath := filepath.Join(dir, "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", paragraph)
	if err := f.SaveAs(fPath); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	res, err := idx.ProcessFile(context.Background(), fPath)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if res.Title != "data.xlsx" || res.TotalChunks != 1 || res.Chunks[0].Chunk.Text != paragraph {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProcessReader(t *testing.T) {
	idx := testIndexer(t, 1000, 200)
	res, err := idx.ProcessReader(context.Background(), strings.NewReader("\ufeff"+paragraph), "uploads/notes.md")
	if err != nil {
		t.Fatalf("ProcessReader: %v", err)
	}
	if res.Title != "notes.md" || res.TotalChunks != 1 || res.Chunks[0].Chunk.Text != paragraph {
		t.Errorf("unexpected result: %+v", res)
	}
	same, err := idx.ProcessReader(context.Background(), strings.NewReader("\ufeff"+paragraph), "copy.md")
	if err != nil || same.DocumentID != res.DocumentID {
		t.Errorf("identical uploads should share a document ID: %+v, %v", same, err)
	}

	limited := NewIndexer(nil, idx.chunker, extract.NewExtractor(extract.WithMaxBytes(10)))
	if _, err := limited.ProcessReader(context.Background(), strings.NewReader(paragraph), "big.txt"); err == nil {
		t.Error("expected error for oversized upload")
	}

	plain := NewIndexer(nil, idx.chunker, nil)
	res, err = plain.ProcessReader(context.Background(), strings.NewReader(paragraph), "raw")
	if err != nil || res.TotalChunks != 1 {
		t.Errorf("ProcessReader without extractor: %+v, %v", res, err)
	}
	if res.DocumentID == same.DocumentID {
		t.Error("different uploads should not share a document ID")
	}
}

func TestProcessBatch(t *testing.T) {
	idx := testIndexer(t, 1000, 200, WithWorkers(2))
	inputs := make([]*models.DocumentInput, 10)
	for i := range inputs {
		inputs[i] = &models.DocumentInput{ID: string(rune('a' + i)), Content: paragraph}
	}
	results, err := idx.ProcessBatch(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("got %d results", len(results))
	}
	for i, res := range results {
		if res.DocumentID != inputs[i].ID {
			t.Errorf("result %d is %s, want input order", i, res.DocumentID)
		}
	}

	inputs[5] = nil
	if _, err := idx.ProcessBatch(context.Background(), inputs); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("batch with nil document: got %v", err)
	}
	if results, err := idx.ProcessBatch(context.Background(), nil); err != nil || len(results) != 0 {
		t.Errorf("empty batch: %v %v", results, err)
	}
}

func TestProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	idx := testIndexer(t, 1000, 200)
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md"), filepath.Join(sub, "c.txt"), filepath.Join(dir, "skip.xyz")} {
		if err := os.WriteFile(p, []byte(paragraph), 0600); err != nil {
			t.Fatal(err)
		}
	}

	results, err := idx.ProcessDirectory(context.Background(), dir, []string{".txt", ".md"})
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("processed %d files, want 3", len(results))
	}
	titles := []string{results[0].Title, results[1].Title, results[2].Title}
	if strings.Join(titles, ",") != "a.txt,b.md,c.txt" {
		t.Errorf("titles in walk order: %v", titles)
	}

	if _, err := idx.ProcessDirectory(context.Background(), filepath.Join(dir, "a.txt"), nil); err == nil {
		t.Error("expected error for a file path")
	}
}
