package config

import (
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/indexer"
)

// Chunking defaults, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == nil {
		o := DefaultChunkOverlap
		cfg.Chunking.ChunkOverlap = &o
	}
	cfg.Cleaning.ApplyDefaults()
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = indexer.DefaultWorkers
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = extract.Extensions()
	}
	if cfg.Ingest.MaxFileSize == 0 {
		cfg.Ingest.MaxFileSize = extract.DefaultMaxBytes
	}
	cfg.Ranking.ApplyDefaults()
	cfg.Evaluation.ApplyDefaults()
}
