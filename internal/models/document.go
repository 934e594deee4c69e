// Package models defines core data structures for documents, chunks, and rerank candidates.
package models

// Chunk is a contiguous excerpt of cleaned document text sized for embedding.
// Index is the zero-based position among the chunks of one document; Total is the chunk count.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// DocumentChunk is a chunk ready to be handed to the embedding and vector-store step.
type DocumentChunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Chunk      Chunk                  `json:"chunk"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// DocumentInput is the input for chunking one document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IngestResult is the outcome of cleaning and chunking one document.
type IngestResult struct {
	DocumentID    string           `json:"document_id"`
	Title         string           `json:"title,omitempty"`
	CleanedLength int              `json:"cleaned_length"`
	TotalChunks   int              `json:"total_chunks"`
	Chunks        []*DocumentChunk `json:"chunks"`
}

// Metadata keys stamped on every DocumentChunk. The ranking package reads
// MetaChunkIndex and MetaTotalChunks back from candidate metadata.
const (
	MetaDocumentID  = "document_id"
	MetaTitle       = "title"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaSourcePath  = "source_path"
)
