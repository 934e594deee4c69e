package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/fileid"
	"github.com/hyperjump/chunkrank/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the batch concurrency used when none is configured.
const DefaultWorkers = 4

// Indexer turns documents into embedding-ready chunks: extract, clean, split, stamp metadata.
type Indexer struct {
	cleaner   *Cleaner
	chunker   *Chunker
	extractor *extract.Extractor
	workers   int
	logger    *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (document processed, file skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithWorkers bounds the number of documents processed concurrently by ProcessBatch.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// NewIndexer creates an indexer. cleaner may be nil (default thresholds).
// extractor may be nil; when nil, ProcessFile treats all files as plain text.
func NewIndexer(cleaner *Cleaner, chunker *Chunker, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	if cleaner == nil {
		cleaner = defaultCleaner
	}
	idx := &Indexer{
		cleaner:   cleaner,
		chunker:   chunker,
		extractor: extractor,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Process cleans and splits one document. The document ID is generated when empty.
// Every chunk carries document_id, title, chunk_index and total_chunks in its metadata,
// on top of a copy of the input metadata.
func (idx *Indexer) Process(ctx context.Context, input *models.DocumentInput) (*models.IngestResult, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: document is nil", models.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docID := input.ID
	if docID == "" {
		docID = uuid.New().String()
	}
	cleaned := idx.cleaner.Clean(input.Content)
	chunks := idx.chunker.Split(cleaned)

	result := &models.IngestResult{
		DocumentID:    docID,
		Title:         input.Title,
		CleanedLength: utf8.RuneCountInString(cleaned),
		TotalChunks:   len(chunks),
		Chunks:        make([]*models.DocumentChunk, len(chunks)),
	}
	for i, ch := range chunks {
		meta := make(map[string]interface{}, len(input.Metadata)+4)
		for k, v := range input.Metadata {
			meta[k] = v
		}
		meta[models.MetaDocumentID] = docID
		meta[models.MetaChunkIndex] = ch.Index
		meta[models.MetaTotalChunks] = ch.Total
		if input.Title != "" {
			meta[models.MetaTitle] = input.Title
		}
		result.Chunks[i] = &models.DocumentChunk{
			ID:         fmt.Sprintf("%s_%d", docID, ch.Index),
			DocumentID: docID,
			Chunk:      *ch,
			Metadata:   meta,
		}
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document processed",
			zap.String("doc_id", docID),
			zap.Int("raw_length", utf8.RuneCountInString(input.Content)),
			zap.Int("cleaned_length", result.CleanedLength),
			zap.Int("chunks", result.TotalChunks))
	}
	return result, nil
}

// ProcessFile reads a file, extracts its text by extension, and processes it.
// The title is the file's base name, the absolute path is stored as source_path and the
// document ID is derived from that path.
func (idx *Indexer) ProcessFile(ctx context.Context, path string) (*models.IngestResult, error) {
	if idx.logger != nil {
		idx.logger.Debug("indexer processing file", zap.String("path", path))
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	text, err := idx.extractContent(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	return idx.Process(ctx, &models.DocumentInput{
		ID:       fileid.FromPath(absPath),
		Title:    filepath.Base(absPath),
		Content:  text,
		Metadata: map[string]interface{}{models.MetaSourcePath: absPath},
	})
}

// ProcessReader extracts the text of an uploaded document, choosing the format from name's
// extension, and processes it. The title is name's base name and the document ID is
// derived from the uploaded bytes.
func (idx *Indexer) ProcessReader(ctx context.Context, r io.Reader, name string) (*models.IngestResult, error) {
	ext := filepath.Ext(name)
	cr := fileid.NewContentReader(r)
	var text string
	if idx.extractor != nil {
		var err error
		if text, err = idx.extractor.ExtractReader(cr, ext); err != nil {
			return nil, fmt.Errorf("extract content: %w", err)
		}
	} else {
		content, err := io.ReadAll(cr)
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		text = string(content)
	}
	return idx.Process(ctx, &models.DocumentInput{
		ID:      cr.ID(),
		Title:   filepath.Base(name),
		Content: text,
	})
}

// ProcessBatch processes documents concurrently, at most the configured number of workers
// at a time. Results are returned in input order. The first failure cancels the remaining work.
func (idx *Indexer) ProcessBatch(ctx context.Context, inputs []*models.DocumentInput) ([]*models.IngestResult, error) {
	results := make([]*models.IngestResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := idx.Process(gctx, in)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessDirectory walks dir recursively and processes each regular file whose extension
// is in allowedExts (if non-empty; otherwise all files). Files are processed concurrently
// like ProcessBatch and returned in walk order.
func (idx *Indexer) ProcessDirectory(ctx context.Context, dir string, allowedExts []string) ([]*models.IngestResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are processed
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			if idx.logger != nil {
				idx.logger.Debug("indexer skipping path", zap.String("path", path))
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	results := make([]*models.IngestResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := idx.ProcessFile(gctx, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (idx *Indexer) extractContent(path string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
