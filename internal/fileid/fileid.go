// Package fileid derives stable document IDs for files and uploads, so chunking the same
// source twice yields the same chunk IDs and a vector store can upsert instead of duplicating.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"path/filepath"
)

const (
	pathPrefix    = "file:"
	contentPrefix = "upload:"
	// idBytes is how much of the SHA-256 digest is kept (128 bits).
	idBytes = 16
)

// FromPath returns the document ID for a file path. The path is cleaned first,
// so callers should pass the absolute path.
func FromPath(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return pathPrefix + hex.EncodeToString(sum[:idBytes])
}

// ContentReader hashes everything read through it.
type ContentReader struct {
	r io.Reader
	h hash.Hash
}

// NewContentReader wraps r.
func NewContentReader(r io.Reader) *ContentReader {
	h := sha256.New()
	return &ContentReader{r: io.TeeReader(r, h), h: h}
}

func (c *ContentReader) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// ID returns the document ID of the bytes read so far. Identical uploads share an ID.
func (c *ContentReader) ID() string {
	return contentPrefix + hex.EncodeToString(c.h.Sum(nil)[:idBytes])
}
