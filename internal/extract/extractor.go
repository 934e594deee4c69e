// Package extract turns document files into raw text for cleaning and chunking.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxBytes caps the size of a document read through ExtractReader.
const DefaultMaxBytes = 64 << 20

var (
	// ErrTooLarge reports content over the extractor's byte limit.
	ErrTooLarge = errors.New("content too large")
	// ErrMalformed reports content that cannot be decoded as its declared format.
	ErrMalformed = errors.New("malformed document")
)

// extractFunc converts the bytes of one format into text.
type extractFunc func(content []byte) (string, error)

var formats = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
	".txt":  extractPlain,
	".md":   extractPlain,
	".rst":  extractPlain,
	".csv":  extractPlain,
}

// Extractor extracts raw text from document files. Paragraph structure is kept where the
// format has one (blank lines between PDF pages, DOCX paragraphs and spreadsheet sheets)
// so the chunker can split on it.
type Extractor struct {
	maxBytes int64
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxBytes limits how many bytes ExtractReader accepts.
func WithMaxBytes(n int64) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its text content.
// Returns an error if the file cannot be read or the binary format cannot be decoded.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractReader reads at most the configured byte limit from r and extracts it as ext.
// Returns an error wrapping ErrTooLarge when r holds more than the limit.
func (e *Extractor) ExtractReader(r io.Reader, ext string) (string, error) {
	content, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if int64(len(content)) > e.maxBytes {
		return "", fmt.Errorf("%w: content exceeds %d bytes", ErrTooLarge, e.maxBytes)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension
// (with or without the leading dot, any case). Unknown extensions are read as plain text.
// Decoding failures wrap ErrMalformed.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	fn, ok := formats[normalizeExt(ext)]
	if !ok {
		fn = extractPlain
	}
	text, err := fn(content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return text, nil
}

// Supported reports whether ext has a dedicated extractor.
func Supported(ext string) bool {
	_, ok := formats[normalizeExt(ext)]
	return ok
}

// Extensions lists the extensions with a dedicated extractor, sorted.
func Extensions() []string {
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
