package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	return c.validate(true)
}

// ValidateOffline validates everything except the provider credential,
// for commands that never call the embedding provider.
func (c *Config) ValidateOffline() []ValidationError {
	return c.validate(false)
}

func (c *Config) validate(requireCredential bool) []ValidationError {
	var errors []ValidationError

	// Validate Server config
	if c.Server.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Message: "listen address is required",
		})
	}

	if c.Server.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Server.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.burst",
			Message: "burst must be positive",
		})
	}

	// Validate Provider config
	switch c.Provider.Type {
	case "gemini":
		if requireCredential && c.Provider.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "provider.api_key",
				Message: "GEMINI_API_KEY environment variable is required",
			})
		}
	case "ollama":
	default:
		errors = append(errors, ValidationError{
			Field:   "provider.type",
			Message: fmt.Sprintf("unknown provider %q, expected gemini or ollama", c.Provider.Type),
		})
	}

	if c.Provider.BaseURL != "" {
		if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "provider.base_url",
				Message: "invalid provider base URL",
			})
		}
	}

	if c.Provider.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "provider.timeout",
			Message: "timeout must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Processor.MaxUploadBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.max_upload_bytes",
			Message: "max_upload_bytes must be positive",
		})
	}

	if c.Processor.Pacing < 0 {
		errors = append(errors, ValidationError{
			Field:   "processor.pacing",
			Message: "pacing cannot be negative",
		})
	}

	if c.Processor.PreviewChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.preview_chars",
			Message: "preview_chars must be positive",
		})
	}

	// Validate Log config
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid log format: %s", c.Log.Format),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid log level: %s", c.Log.Level),
		})
	}

	return errors
}
