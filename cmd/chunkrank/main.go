// Package main is the chunkrank CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/chunkrank/internal/cli"
	"github.com/hyperjump/chunkrank/internal/config"
	"github.com/hyperjump/chunkrank/internal/evaluation"
	"github.com/hyperjump/chunkrank/internal/extract"
	"github.com/hyperjump/chunkrank/internal/indexer"
	"github.com/hyperjump/chunkrank/internal/models"
	"github.com/hyperjump/chunkrank/internal/ranking"
	"github.com/hyperjump/chunkrank/internal/server"
	"github.com/hyperjump/chunkrank/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chunkrank/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if neither that nor the default
// file exists, the built-in defaults are used and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return loadAndValidate(fallback)
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	return loadAndValidate(path)
}

func loadAndValidate(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chunk":
		runChunk()
	case "rerank":
		runRerank()
	case "evaluate":
		runEvaluate()
	case "version", "--version", "-v":
		fmt.Printf("chunkrank version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, chunking, reranking)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}

	srv := server.NewServer(
		components.Indexer,
		components.Ranker,
		components.Evaluator,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// joinArgs joins positional args with spaces so multi-word queries work the same
// with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// commandSetup loads config, builds a logger and the components shared by one-shot commands.
func commandSetup(configPath string) (*config.Config, *Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, components, logger
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runChunk() {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	size := fs.Int("size", 0, "chunk size in characters (default from config)")
	overlap := fs.Int("overlap", -1, "chunk overlap in characters (default from config)")
	preview := fs.Int("preview", 200, "characters of each chunk to print in text output (0 = whole chunk)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: chunkrank chunk [flags] <file-or-directory>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *size > 0 {
		cfg.Chunking.ChunkSize = *size
	}
	if *overlap >= 0 {
		cfg.Chunking.ChunkOverlap = overlap
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	results, err := chunkPath(context.Background(), components.Indexer, fs.Arg(0), cfg.Ingest.Extensions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chunking failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIngestResults(os.Stdout, results, format, *preview); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// chunkPath processes a single file, or every file with an allowed extension under a directory.
func chunkPath(ctx context.Context, idx *indexer.Indexer, path string, exts []string) ([]*models.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if info.IsDir() {
		return idx.ProcessDirectory(ctx, path, exts)
	}
	// Single file: no extension filter
	res, err := idx.ProcessFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return []*models.IngestResult{res}, nil
}

func printRerankUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: chunkrank rerank [flags] <candidates.json> <query>\n\n")
	fmt.Fprintf(fs.Output(), "candidates.json holds a JSON array of {\"text\", \"distance\", \"metadata\"} objects,\n")
	fmt.Fprintf(fs.Output(), "or a rerank request object with a \"candidates\" field. Use - to read stdin.\n\n")
	fs.PrintDefaults()
}

func runRerank() {
	fs := flag.NewFlagSet("rerank", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topK := fs.Int("top-k", 0, "number of results (default from config)")
	explain := fs.Bool("explain", false, "print the score breakdown of every candidate instead of the top results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRerankUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 2 {
		printRerankUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	cfg, components, logger := commandSetup(*configPath)
	defer logger.Sync()

	candidates, err := readCandidates(fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read candidates: %v\n", err)
		os.Exit(1)
	}
	req := &models.RerankRequest{Query: joinArgs(fs.Args()[1:]), Candidates: candidates}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "top-k" {
			req.TopK = topK
		}
	})
	if err := req.Validate(cfg.Ranking.DefaultTopK); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid candidates: %v\n", err)
		os.Exit(1)
	}

	if *explain {
		explanations, err := components.Ranker.Explain(req.Query, req.ToCandidates())
		if err == nil {
			err = cli.WriteExplanations(os.Stdout, explanations, format)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Explain failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	start := time.Now()
	results, err := components.Ranker.Rerank(req.Query, req.ToCandidates(), req.K())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rerank failed: %v\n", err)
		os.Exit(1)
	}
	response := &models.RerankResponse{
		Query:           req.Query,
		Results:         results,
		TotalCandidates: len(candidates),
		QueryTime:       time.Since(start).Milliseconds(),
	}
	if err := cli.WriteRerankResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readCandidates accepts either a JSON array of candidates or an object with a "candidates" field.
func readCandidates(path string, stdin io.Reader) ([]*models.CandidateInput, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var list []*models.CandidateInput
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("parse candidates: %w", err)
		}
		return list, nil
	}
	var req models.RerankRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return req.Candidates, nil
}

func runEvaluate() {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: chunkrank evaluate [flags] <criteria.json | judge-reply.txt | ->")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	_, components, logger := commandSetup(*configPath)
	defer logger.Sync()

	score, criteria, err := evaluateInput(components.Evaluator, fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEvaluation(os.Stdout, score, criteria, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func evaluateInput(scorer *evaluation.Scorer, path string, stdin io.Reader) (float64, evaluation.Criteria, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return 0, evaluation.Criteria{}, err
	}
	criteria, err := evaluation.ParseCriteria(string(data))
	if err != nil {
		return 0, evaluation.Criteria{}, err
	}
	score, err := scorer.Score(criteria)
	if err != nil {
		return 0, evaluation.Criteria{}, err
	}
	return score, criteria, nil
}

// Components holds the services built from config.
type Components struct {
	Indexer   *indexer.Indexer
	Ranker    *ranking.Ranker
	Evaluator *evaluation.Scorer
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}
	extractor := extract.NewExtractor(extract.WithMaxBytes(cfg.Ingest.MaxFileSize))

	idxOpts := []indexer.IndexerOption{indexer.WithWorkers(cfg.Ingest.Workers)}
	rankOpts := []ranking.RankerOption{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		rankOpts = append(rankOpts, ranking.WithLogger(logger))
	}
	cleaner, err := indexer.NewCleaner(&cfg.Cleaning)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cleaner: %w", err)
	}
	idx := indexer.NewIndexer(cleaner, chunker, extractor, idxOpts...)

	ranker, err := ranking.NewRanker(&cfg.Ranking, rankOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ranker: %w", err)
	}
	evaluator, err := evaluation.NewScorer(&cfg.Evaluation)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize evaluator: %w", err)
	}
	if logger != nil {
		logger.Debug("components initialized",
			zap.Int("chunk_size", chunker.ChunkSize()),
			zap.Int("chunk_overlap", chunker.ChunkOverlap()),
			zap.Int("workers", cfg.Ingest.Workers),
			zap.String("stop_words", cfg.Ranking.StopWords))
	}
	return &Components{Indexer: idx, Ranker: ranker, Evaluator: evaluator}, nil
}

func printUsage() {
	fmt.Println(`chunkrank - RAG text cleaning, chunking and candidate reranking

Usage:
  chunkrank server [flags]                             Start the HTTP server
  chunkrank chunk [flags] <file-or-directory>          Clean and chunk documents
  chunkrank rerank [flags] <candidates.json> <query>   Rerank vector-search candidates
  chunkrank evaluate [flags] <criteria.json>           Score an answer from judge criteria
  chunkrank version                                    Show version
  chunkrank help                                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/chunkrank/config.yaml)
  --debug            Enable debug logging

Chunk Flags:
  --config string    Config file path
  --size int         Chunk size in characters (default from config: 1000)
  --overlap int      Chunk overlap in characters (default from config: 200)
  --preview int      Characters of each chunk to print (default: 200, 0 = whole chunk)
  --output string    Output format: text or json (default: text)

Rerank Flags:
  --config string    Config file path
  --top-k int        Number of results (default from config: 3)
  --explain          Print every candidate's score breakdown
  --output string    Output format: text or json (default: text)

Evaluate Flags:
  --config string    Config file path (evaluation weights)
  --output string    Output format: text or json (default: text)

Examples:
  chunkrank server
  chunkrank chunk --size 500 --overlap 100 contrato.pdf
  chunkrank chunk --output json ./docs
  chunkrank rerank hits.json machine learning basics
  chunkrank rerank --top-k 5 --explain hits.json "machine learning"
  chunkrank evaluate judge-reply.txt`)
}
