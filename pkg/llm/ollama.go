package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/docembed/internal/errortypes"
)

// OllamaEmbedder embeds text with a local Ollama server.
type OllamaEmbedder struct {
	config EmbedderConfig
	embed  *ollama.LLM
}

func NewOllamaEmbedder(config EmbedderConfig) (*OllamaEmbedder, error) {
	if config.Model == "" {
		config.Model = DefaultOllamaModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	emb, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}

	return &OllamaEmbedder{
		config: config,
		embed:  emb,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	embeddings, err := e.embed.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, classifyOllamaError(err)
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, errortypes.MalformedResponse("no embeddings returned")
	}

	return embeddings[0], nil
}

func classifyOllamaError(err error) error {
	if errors.Is(err, ollama.ErrEmptyResponse) || errors.Is(err, ollama.ErrIncompleteEmbedding) {
		return errortypes.MalformedResponse(err.Error())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &errortypes.Error{
			Kind:    errortypes.KindMalformedResponse,
			Message: "invalid response format from embedding provider",
			Err:     err,
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return errortypes.Transport(err)
	}

	// The client does not expose the upstream status code.
	return errortypes.Provider(0, err.Error(), err)
}
