package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xhad/docembed/internal/types"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	DefaultGeminiModel = "gemini-embedding-001"
	DefaultOllamaModel = "nomic-embed-text:latest"
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultTimeout     = 30 * time.Second
)

// EmbedderConfig represents the configuration for an embedding client.
type EmbedderConfig struct {
	Provider   string
	Model      string
	BaseURL    string // provider endpoint override
	APIKey     string
	Timeout    time.Duration // per call
	HTTPClient *http.Client
}

// NewEmbedderWithConfig builds the embedder for the configured provider.
// Each returned embedder sends one text per call and reports failures as
// transport, provider or malformed-response errors.
func NewEmbedderWithConfig(ctx context.Context, config EmbedderConfig) (types.Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "", ProviderGemini:
		return NewGeminiEmbedder(ctx, config)
	case ProviderOllama:
		return NewOllamaEmbedder(config)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", config.Provider)
}
