package processor

import (
	"fmt"
	"strings"

	"github.com/xhad/docembed/internal/types"
)

type ProcessorConfig struct {
	ChunkSize    int // tokens per chunk
	ChunkOverlap int // tokens repeated at the start of the next chunk
}

// Processor splits text into overlapping, token-bounded chunks.
type Processor struct {
	config    ProcessorConfig
	tokenizer types.Tokenizer
}

func NewWithConfig(config ProcessorConfig, tokenizer types.Tokenizer) (*Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 800
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", config.ChunkOverlap)
	}
	if tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}

	return &Processor{
		config:    config,
		tokenizer: tokenizer,
	}, nil
}

func (p *Processor) Config() ProcessorConfig {
	return p.config
}

func (p *Processor) Split(text string) ([]string, error) {
	return Chunk(p.tokenizer, text, p.config.ChunkSize, p.config.ChunkOverlap), nil
}

// Chunk windows text over its token sequence. Text that fits in one window
// is returned as is, without a decode round trip. Consecutive windows share
// overlap tokens; the last window ends at the final token. When overlap is
// not smaller than chunkSize the windows cannot advance, so only the first
// one is emitted. chunkSize must be positive.
func Chunk(tokenizer types.Tokenizer, text string, chunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := tokenizer.Encode(text)
	n := len(tokens)
	if n <= chunkSize {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < n; {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, tokenizer.Decode(tokens[start:end]))
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			break
		}
		start = next
	}

	return chunks
}
