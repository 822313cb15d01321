package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/xhad/docembed/internal/errortypes"
)

// GeminiEmbedder calls the Gemini embedding API through the genai SDK.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	config EmbedderConfig
}

func NewGeminiEmbedder(ctx context.Context, config EmbedderConfig) (*GeminiEmbedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client: client,
		model:  config.Model,
		config: config,
	}, nil
}

// Embed returns the provider's vector verbatim.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: text},
			},
		},
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{})
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errortypes.MalformedResponse("no embeddings returned")
	}
	if len(result.Embeddings[0].Values) == 0 {
		return nil, errortypes.MalformedResponse("empty embedding vector")
	}

	return result.Embeddings[0].Values, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return errortypes.Provider(apiErr.Code, apiErr.Message, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return errortypes.Provider(apiErrPtr.Code, apiErrPtr.Message, err)
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

	return errortypes.Transport(err)
}
