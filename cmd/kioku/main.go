// Package main is the kioku CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/docstore"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_ = cli.NewWriter(stdout, cli.OutputJSON).Failure(cli.InvalidCommand)
		return 1
	}
	command, rest := args[0], args[1:]
	switch command {
	case "add":
		return runAdd(ctx, rest, stdout, stderr)
	case "add-file":
		return runAddFile(ctx, rest, stdout, stderr)
	case "search":
		return runSearch(ctx, rest, stdout, stderr)
	case "get":
		return runGet(ctx, rest, stdout, stderr)
	case "status":
		return runStatus(ctx, rest, stdout, stderr)
	case "watch":
		return runWatch(ctx, rest, stdout, stderr)
	case "version", "--version", "-v":
		_ = cli.NewWriter(stdout, cli.OutputJSON).Version(version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_ = cli.NewWriter(stdout, cli.OutputJSON).Failure(cli.InvalidCommand)
		return 1
	}
}

// commonFlags are accepted by every command that opens the store.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, &commonFlags{
		configPath: fs.String("config", config.DefaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging on stderr"),
		output:     fs.String("output", string(cli.OutputJSON), "output format: json or text"),
	}
}

// session is everything a command needs once flags are parsed.
type session struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	store      *docstore.Store
	out        *cli.Writer
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close store failed", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// fail writes a failure object and returns exit status 1.
func fail(out *cli.Writer, err error) int {
	_ = out.Failure(err.Error())
	return 1
}

// parse parses flags (which may follow positionals) and opens the store.
func parse(ctx context.Context, fs *flag.FlagSet, flags *commonFlags, args []string, stdout io.Writer) (*session, []string, *cli.Writer, error) {
	out := cli.NewWriter(stdout, cli.OutputJSON)
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return nil, nil, out, err
	}
	format, err := cli.ParseOutputFormat(*flags.output)
	if err != nil {
		return nil, nil, out, err
	}
	out = cli.NewWriter(stdout, format)

	cfg, resolved, err := loadConfig(*flags.configPath)
	if err != nil {
		return nil, nil, out, err
	}
	debug := cfg.Debug || *flags.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, out, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, out, err
	}
	return &session{cfg: cfg, configPath: resolved, logger: logger, store: store, out: out}, fs.Args(), out, nil
}

// loadConfig loads path. For the default path it falls back to ./config.yaml and then
// to built-in defaults; an explicit path must exist.
func loadConfig(path string) (*config.Config, string, error) {
	if path == config.DefaultConfigPath {
		fallback := "config.yaml"
		if cwd, err := os.Getwd(); err == nil {
			fallback = filepath.Join(cwd, "config.yaml")
		}
		return config.LoadFirst(path, fallback)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openStore wires the configured embedder, index and record storage into a document store.
// The sqlite index keeps its document records in the same database; other indexes keep them in memory.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*docstore.Store, error) {
	embedder, err := embedding.New(ctx, embedding.Options{
		Provider:   cfg.Embedding.Provider,
		ModelPath:  cfg.Embedding.ModelPath,
		Model:      cfg.Embedding.Model,
		APIKeyEnv:  cfg.Embedding.APIKeyEnv,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := vector.NewVectorIndex(vector.Options{
		Type:         cfg.Vector.IndexType,
		Dimensions:   embedder.Dimensions(),
		DatabasePath: cfg.Storage.DatabasePath,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	var records storage.Storage
	if index.Type() == string(vector.IndexTypeSQLite) {
		records, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			_ = errors.Join(index.Close(), embedder.Close())
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	store, err := newStore(cfg, index, embedder, records, logger)
	if err != nil {
		closeErr := errors.Join(index.Close(), embedder.Close())
		if records != nil {
			closeErr = errors.Join(closeErr, records.Close())
		}
		if closeErr != nil {
			logger.Warn("cleanup after failed start", zap.Error(closeErr))
		}
		return nil, err
	}
	logger.Debug("store ready",
		zap.String("index_type", index.Type()),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", index.Dimensions()))
	return store, nil
}

func newStore(cfg *config.Config, index vector.VectorIndex, embedder embedding.Embedder, records storage.Storage, logger *zap.Logger) (*docstore.Store, error) {
	chunker, err := indexer.NewChunker(
		indexer.WithChunkSize(cfg.Chunking.ChunkSize),
		indexer.WithOverlap(cfg.Chunking.ChunkOverlap),
		indexer.WithMinChunkLength(cfg.Chunking.MinChunkLength),
	)
	if err != nil {
		return nil, err
	}
	return docstore.New(index, embedder, records,
		docstore.WithChunker(chunker),
		docstore.WithChunkThreshold(cfg.Chunking.Threshold),
		docstore.WithLogger(logger),
	)
}

func runAdd(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("add", stderr)
	id := fs.String("id", "", "document id (generated when empty)")
	s, pos, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()
	if len(pos) != 2 {
		return fail(out, errors.New("usage: kioku add [flags] <content> <filename>"))
	}

	docID, err := s.store.Ingest(ctx, &models.DocumentInput{ID: *id, Content: pos[0], Filename: pos[1]})
	if err != nil {
		return fail(out, err)
	}
	_ = out.Added(docID, "")
	return 0
}

func runAddFile(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("add-file", stderr)
	s, pos, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()
	if len(pos) != 1 {
		return fail(out, errors.New("usage: kioku add-file [flags] <path>"))
	}

	docID, err := s.store.IngestFile(ctx, pos[0])
	if err != nil {
		return fail(out, err)
	}
	fileType := ""
	if rec, ok, err := s.store.Document(ctx, docID); err == nil && ok {
		fileType = rec.Metadata.FileType
	}
	_ = out.Added(docID, fileType)
	return 0
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("search", stderr)
	s, pos, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()

	query, k, err := searchArgs(pos, s.cfg.Search.DefaultResults)
	if err != nil {
		return fail(out, err)
	}
	if k > s.cfg.Search.MaxResults {
		s.logger.Debug("n_results capped", zap.Int("requested", k), zap.Int("max", s.cfg.Search.MaxResults))
		k = s.cfg.Search.MaxResults
	}
	results, err := s.store.Search(ctx, query, k)
	if err != nil {
		return fail(out, err)
	}
	_ = out.Results(results)
	return 0
}

// searchArgs splits positionals into the query and an optional trailing n_results.
// A multi-word query works with or without quotes.
func searchArgs(pos []string, defaultK int) (string, int, error) {
	k := defaultK
	if len(pos) > 1 {
		if n, err := strconv.Atoi(pos[len(pos)-1]); err == nil {
			if n <= 0 {
				return "", 0, fmt.Errorf("%w: n_results must be positive, got %d", models.ErrInvalidArgument, n)
			}
			k = n
			pos = pos[:len(pos)-1]
		}
	}
	query := strings.TrimSpace(strings.Join(pos, " "))
	if query == "" {
		return "", 0, errors.New("usage: kioku search [flags] <query> [n_results]")
	}
	return query, k, nil
}

func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("get", stderr)
	s, pos, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()
	if len(pos) != 1 {
		return fail(out, errors.New("usage: kioku get [flags] <doc_id>"))
	}

	rec, _, err := s.store.Get(ctx, pos[0])
	if err != nil {
		return fail(out, err)
	}
	_ = out.Document(rec)
	return 0
}

func runStatus(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("status", stderr)
	s, _, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return fail(out, err)
	}
	st := &cli.Status{
		Documents:         stats.Documents,
		Entries:           stats.Entries,
		IndexType:         stats.IndexType,
		Dimensions:        stats.Dimensions,
		Metric:            stats.Metric,
		EmbeddingProvider: s.cfg.Embedding.Provider,
		ChunkSize:         s.cfg.Chunking.ChunkSize,
		ChunkOverlap:      s.cfg.Chunking.ChunkOverlap,
		ChunkThreshold:    s.cfg.Chunking.Threshold,
		ConfigPath:        s.configPath,
	}
	if stats.IndexType == string(vector.IndexTypeSQLite) {
		st.DatabasePath = s.cfg.Storage.DatabasePath
		if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(st.DatabasePath)...); err == nil {
			st.DiskUsageBytes = &n
		}
	}
	_ = out.Status(st)
	return 0
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, flags := newFlagSet("watch", stderr)
	s, dirs, out, err := parse(ctx, fs, flags, args, stdout)
	if err != nil {
		return fail(out, err)
	}
	defer s.Close()
	if len(dirs) == 0 {
		return fail(out, errors.New("usage: kioku watch [flags] <dir>..."))
	}

	ingest := func(ctx context.Context, path string) (bool, error) {
		_, ingested, err := s.store.SyncFile(ctx, path)
		return ingested, err
	}
	w := watcher.New(dirs, ingest,
		watcher.WithExtensions(s.cfg.Watch.Extensions),
		watcher.WithRecursive(s.cfg.Watch.RecursiveOrDefault()),
		watcher.WithLogger(s.logger),
	)
	if err := w.Run(ctx); err != nil {
		return fail(out, err)
	}
	st := w.Stats()
	_ = out.Watched(dirs, st.Ingested, st.Skipped, st.Failed)
	return 0
}

// reorderArgs moves every flag, with its value unless it is boolean, ahead of the
// positionals so the flag package sees them wherever they were given. Positionals keep
// their order and follow a "--"; anything after a "--" in args stays positional.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positionals []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || isBoolFlag(fs, name) {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if len(positionals) == 0 {
		return flags
	}
	return append(append(flags, "--"), positionals...)
}

func isBoolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kioku - Local document store with vector similarity search

Usage:
  kioku add [flags] <content> <filename>     Add a text document
  kioku add-file [flags] <path>              Extract and add a file (pdf, docx, doc, odt, rtf, xlsx, md, html, text)
  kioku search [flags] <query> [n_results]   Find the closest documents and chunks (default 5 results)
  kioku get [flags] <doc_id>                 Look up a document or chunk by id
  kioku status [flags]                       Show counts and configuration
  kioku watch [flags] <dir>...               Ingest a directory and keep it ingested until interrupted
  kioku version                              Show version
  kioku help                                 Show this help

Flags:
  -config string    Config file path (default: /usr/local/etc/kioku/config.yaml, then ./config.yaml)
  -debug            Enable debug logging on stderr
  -output string    Output format: json or text (default: json)
  -id string        Document id for add (generated when empty)

Every command prints one JSON object on stdout. Failures print
{"success":false,"error":"..."} and exit with status 1.

Examples:
  kioku add "Vector search finds similar text." notes.txt
  kioku add -id readme "$(cat README.md)" README.md
  kioku add-file ~/docs/report.pdf
  kioku search "similar text" 3
  kioku get readme_chunk_0
  kioku status -output text
  kioku watch ~/docs`)
}
