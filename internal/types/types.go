package types

import (
	"context"
	"time"

	"github.com/xhad/docembed/internal/models"
)

// Core interfaces
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	Count(text string) int
}

type Extractor interface {
	Extract(format models.Format, content []byte) (string, error)
}

type Chunker interface {
	Split(text string) ([]string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Sleeper pauses between provider calls. Tests swap in a fake.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}
