package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	cfgPkg "github.com/xhad/docembed/pkg/config"
	"github.com/xhad/docembed/pkg/extractor"
	"github.com/xhad/docembed/pkg/llm"
	"github.com/xhad/docembed/pkg/pipeline"
	"github.com/xhad/docembed/pkg/processor"
	"github.com/xhad/docembed/pkg/tokenizer"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	if os.Getenv("DOCEMBED_GOPS") == "1" {
		startGops()
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serveCmd(ctx, os.Args[2:])
	case "embed":
		err = embedCmd(ctx, os.Args[2:])
	case "preview":
		err = previewCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: docembed <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve    Run the HTTP embedding service")
	fmt.Fprintln(os.Stderr, "  embed    Chunk and embed a .txt or .pdf file")
	fmt.Fprintln(os.Stderr, "  preview  Show extracted text without embedding")
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}

// loadConfig loads and validates the configuration. Any validation error
// is fatal for the caller. The provider credential is only required when
// the command embeds.
func loadConfig(path string, embeds bool) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	errs := cfg.ValidateOffline()
	if embeds {
		errs = cfg.Validate()
	}
	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

func newLogger(cfg *cfgPkg.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Log.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildPipeline wires the tokenizer, extractor, chunker and embedder from
// cfg. The embedder is only built when withEmbedder is set so previews
// work without provider credentials.
func buildPipeline(ctx context.Context, cfg *cfgPkg.Config, logger *slog.Logger, withEmbedder bool) (*pipeline.Pipeline, error) {
	tok, err := tokenizer.NewWithConfig(tokenizer.TokenizerConfig{
		Model:            cfg.Tokenizer.Model,
		FallbackEncoding: cfg.Tokenizer.FallbackEncoding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	logger.Debug("tokenizer ready", "encoding", tok.Name())

	ext, err := extractor.NewWithConfig(extractor.ExtractorConfig{
		FallbackEncodings: cfg.Processor.FallbackEncodings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	proc, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	}, tok)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor: %w", err)
	}

	components := pipeline.Components{
		Tokenizer: tok,
		Extractor: ext,
		Chunker:   proc,
		Embedder:  unavailableEmbedder{},
		Logger:    logger,
	}
	if withEmbedder {
		embedder, err := llm.NewEmbedderWithConfig(ctx, llm.EmbedderConfig{
			Provider: cfg.Provider.Type,
			Model:    cfg.Provider.Model,
			BaseURL:  cfg.Provider.BaseURL,
			APIKey:   cfg.Provider.APIKey,
			Timeout:  cfg.Provider.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		components.Embedder = embedder
	}

	return pipeline.NewWithConfig(pipeline.PipelineConfig{
		MaxFileSize:  cfg.Processor.MaxUploadBytes,
		Pacing:       cfg.Processor.Pacing,
		PreviewChars: cfg.Processor.PreviewChars,
	}, components)
}

type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedder not configured")
}
