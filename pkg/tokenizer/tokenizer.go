package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

type TokenizerConfig struct {
	Model            string // primary: encoding registered for this model
	FallbackEncoding string // secondary: encoding looked up by name
}

// Tokenizer measures and windows text with one fixed BPE encoding. It is
// immutable after construction and safe for concurrent use.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string
}

var loaderOnce sync.Once

func NewWithConfig(config TokenizerConfig) (*Tokenizer, error) {
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.FallbackEncoding == "" {
		config.FallbackEncoding = "cl100k_base"
	}

	// BPE ranks ship with the binary instead of being downloaded at startup.
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(config.Model)
	if err == nil {
		return &Tokenizer{encoding: enc, name: config.Model}, nil
	}

	enc, fallbackErr := tiktoken.GetEncoding(config.FallbackEncoding)
	if fallbackErr != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: model %q: %v; encoding %q: %w",
			config.Model, err, config.FallbackEncoding, fallbackErr)
	}
	return &Tokenizer{encoding: enc, name: config.FallbackEncoding}, nil
}

func New() (*Tokenizer, error) {
	return NewWithConfig(TokenizerConfig{})
}

// Name reports which model or encoding was selected.
func (t *Tokenizer) Name() string {
	return t.name
}

// Special tokens in the input are encoded as ordinary text.
func (t *Tokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

func (t *Tokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}

func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}
