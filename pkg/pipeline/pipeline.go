package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xhad/docembed/internal/errortypes"
	"github.com/xhad/docembed/internal/models"
	"github.com/xhad/docembed/internal/types"
)

const (
	DefaultMaxFileSize  = 10 * 1024 * 1024
	DefaultPacing       = 100 * time.Millisecond
	DefaultPreviewChars = 200

	ellipsis = "..."
)

type PipelineConfig struct {
	MaxFileSize  int           // bytes
	Pacing       time.Duration // pause between consecutive embedding calls
	PreviewChars int
}

// Components are the collaborators a pipeline drives. Sleeper and Logger
// are optional.
type Components struct {
	Tokenizer types.Tokenizer
	Extractor types.Extractor
	Chunker   types.Chunker
	Embedder  types.Embedder
	Sleeper   types.Sleeper
	Logger    *slog.Logger
}

// Pipeline turns one document into per-chunk embeddings. It holds no
// per-request state and may serve concurrent runs.
type Pipeline struct {
	config    PipelineConfig
	tokenizer types.Tokenizer
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	sleeper   types.Sleeper
	logger    *slog.Logger
}

// ProgressFunc is called after each chunk is embedded.
type ProgressFunc func(done, total int)

func NewWithConfig(config PipelineConfig, c Components) (*Pipeline, error) {
	if config.MaxFileSize == 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if config.Pacing == 0 {
		config.Pacing = DefaultPacing
	}
	if config.PreviewChars == 0 {
		config.PreviewChars = DefaultPreviewChars
	}
	if c.Tokenizer == nil || c.Extractor == nil || c.Chunker == nil || c.Embedder == nil {
		return nil, fmt.Errorf("tokenizer, extractor, chunker and embedder are required")
	}
	if c.Sleeper == nil {
		c.Sleeper = ClockSleeper{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return &Pipeline{
		config:    config,
		tokenizer: c.Tokenizer,
		extractor: c.Extractor,
		chunker:   c.Chunker,
		embedder:  c.Embedder,
		sleeper:   c.Sleeper,
		logger:    c.Logger,
	}, nil
}

func (p *Pipeline) Run(ctx context.Context, doc models.Document) (*models.PipelineResult, error) {
	return p.RunWithProgress(ctx, doc, nil)
}

// RunWithProgress extracts, chunks and embeds doc. Chunks are embedded one
// at a time in order with a fixed pause between calls. Any failure
// discards the chunks embedded so far.
func (p *Pipeline) RunWithProgress(ctx context.Context, doc models.Document, progress ProgressFunc) (*models.PipelineResult, error) {
	started := time.Now()

	format, text, err := p.extract(doc)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, errortypes.EmptyContent()
	}

	chunks, err := p.chunker.Split(text)
	if err != nil {
		return nil, errortypes.Chunking(err)
	}
	if len(chunks) == 0 {
		return nil, errortypes.Chunking(errors.New("no chunks produced"))
	}

	embeddings := make([]models.ChunkEmbedding, 0, len(chunks))
	totalTokens := 0

	for i, chunk := range chunks {
		if i > 0 {
			if err := p.sleeper.Sleep(ctx, p.config.Pacing); err != nil {
				return nil, fmt.Errorf("pacing before chunk %d: %w", i, err)
			}
		}

		tokenCount := p.tokenizer.Count(chunk)
		totalTokens += tokenCount

		vector, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			p.logger.Warn("chunk embedding failed",
				"file", doc.Name(), "chunk", i, "total_chunks", len(chunks), "error", err)
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		embeddings = append(embeddings, models.ChunkEmbedding{
			ChunkIndex: i,
			Text:       Truncate(chunk, p.config.PreviewChars),
			Embedding:  vector,
			TokenCount: tokenCount,
		})

		p.logger.Debug("chunk embedded", "file", doc.Name(), "chunk", i, "tokens", tokenCount, "dim", len(vector))
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}

	p.logger.Info("document embedded",
		"file", doc.Name(),
		"format", format,
		"chunks", len(chunks),
		"tokens", totalTokens,
		"elapsed", time.Since(started))

	return &models.PipelineResult{
		Filename:    doc.Name(),
		FileType:    doc.Extension(),
		Format:      format,
		TotalChunks: len(chunks),
		TotalTokens: totalTokens,
		Embeddings:  embeddings,
	}, nil
}

// Preview extracts doc and returns the start of its text. No embedding
// calls are made.
func (p *Pipeline) Preview(doc models.Document) (*models.Preview, error) {
	format, text, err := p.extract(doc)
	if err != nil {
		return nil, err
	}

	return &models.Preview{
		Filename:      doc.Name(),
		FileType:      doc.Extension(),
		Format:        format,
		ContentLength: utf8.RuneCountInString(text),
		Preview:       Truncate(text, p.config.PreviewChars),
	}, nil
}

// EmbedText embeds a single piece of raw text without chunking.
func (p *Pipeline) EmbedText(ctx context.Context, text string) (*models.Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errortypes.EmptyContent()
	}

	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return &models.Embedding{Embedding: vector, Dim: len(vector)}, nil
}

// extract validates the extension and size before any decoding happens.
func (p *Pipeline) extract(doc models.Document) (models.Format, string, error) {
	ext := doc.Extension()
	format, ok := models.FormatFor(ext)
	if !ok {
		return "", "", errortypes.UnsupportedFormat(ext, models.SupportedExtensions())
	}

	if len(doc.Content) > p.config.MaxFileSize {
		return "", "", errortypes.PayloadTooLarge(len(doc.Content), p.config.MaxFileSize)
	}

	text, err := p.extractor.Extract(format, doc.Content)
	if err != nil {
		if _, ok := errortypes.KindOf(err); ok {
			return "", "", err
		}
		return "", "", errortypes.Extraction(err)
	}
	return format, text, nil
}

// Truncate keeps the first n characters of text and appends "..." when
// anything was cut.
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + ellipsis
}

// ClockSleeper waits on the wall clock.
type ClockSleeper struct{}

func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
