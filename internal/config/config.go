// Package config provides configuration loading and structs for the chunkrank server and CLI.
package config

import (
	"fmt"
	"os"

	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/indexer"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool                  `yaml:"debug"`
	Server     ServerConfig          `yaml:"server"`
	Chunking   ChunkingConfig        `yaml:"chunking"`
	Cleaning   indexer.CleanerConfig `yaml:"cleaning"`
	Ingest     IngestConfig          `yaml:"ingest"`
	Ranking    ranking.RankingConfig `yaml:"ranking"`
	Evaluation evaluation.Weights    `yaml:"evaluation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ChunkingConfig holds chunk size settings, in characters.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// OverlapOrDefault returns the chunk overlap; defaults to DefaultChunkOverlap when unset.
// An explicit 0 disables overlap.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return DefaultChunkOverlap
}

// IngestConfig holds document ingestion settings.
type IngestConfig struct {
	Workers     int      `yaml:"workers"`
	Extensions  []string `yaml:"extensions"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration after defaults are applied.
// Returns an error wrapping models.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", models.ErrInvalidConfiguration, c.Server.Port)
	}
	if err := c.Cleaning.Validate(); err != nil {
		return fmt.Errorf("cleaning: %w", err)
	}
	if _, err := indexer.NewChunker(c.Chunking.ChunkSize, c.Chunking.OverlapOrDefault()); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("%w: ingest workers must be positive", models.ErrInvalidConfiguration)
	}
	for _, ext := range c.Ingest.Extensions {
		if !extract.Supported(ext) {
			return fmt.Errorf("%w: unsupported ingest extension %q", models.ErrInvalidConfiguration, ext)
		}
	}
	if c.Ingest.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", models.ErrInvalidConfiguration)
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if err := c.Evaluation.Validate(); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	return nil
}
