package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DOCEMBED_PROVIDER", "")
	t.Setenv("DOCEMBED_ADDR", "")

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  addr: ":9090"
  rate_limit: 5
  burst: 10
  read_timeout: 30s

provider:
  type: "gemini"
  model: "text-embedding-004"
  api_key: "file-key"
  timeout: 15s

processor:
  chunk_size: 500
  chunk_overlap: 50
  max_upload_bytes: 1048576
  pacing: 250ms

log:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, 5.0, config.Server.RateLimit)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, "text-embedding-004", config.Provider.Model)
	assert.Equal(t, "file-key", config.Provider.APIKey)
	assert.Equal(t, 15*time.Second, config.Provider.Timeout)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 50, config.Processor.ChunkOverlap)
	assert.Equal(t, 1048576, config.Processor.MaxUploadBytes)
	assert.Equal(t, 250*time.Millisecond, config.Processor.Pacing)
	assert.Equal(t, "json", config.Log.Format)

	// Unset values fall back to defaults
	assert.Equal(t, 200, config.Processor.PreviewChars)
	assert.Equal(t, "gpt-3.5-turbo", config.Tokenizer.Model)
	assert.Equal(t, []string{"latin-1", "cp1252", "iso-8859-1"}, config.Processor.FallbackEncodings)
	assert.Empty(t, config.Validate())
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, ":8000", config.Server.Addr)
	assert.Equal(t, "gemini", config.Provider.Type)
	assert.Equal(t, "gemini-embedding-001", config.Provider.Model)
	assert.Equal(t, 800, config.Processor.ChunkSize)
	assert.Equal(t, 100, config.Processor.ChunkOverlap)
	assert.Equal(t, 10*1024*1024, config.Processor.MaxUploadBytes)
	assert.Equal(t, 100*time.Millisecond, config.Processor.Pacing)
	assert.Equal(t, 200, config.Processor.PreviewChars)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		c.Provider.APIKey = "key"
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:          "missing gemini credential",
			mutate:        func(c *Config) { c.Provider.APIKey = "" },
			errorMessages: []string{"provider.api_key: GEMINI_API_KEY environment variable is required"},
		},
		{
			name: "ollama needs no credential",
			mutate: func(c *Config) {
				c.Provider.Type = "ollama"
				c.Provider.APIKey = ""
				c.Provider.BaseURL = "http://localhost:11434"
			},
		},
		{
			name: "invalid chunking",
			mutate: func(c *Config) {
				c.Processor.ChunkSize = 0
				c.Processor.ChunkOverlap = 0
			},
			errorMessages: []string{
				"processor.chunk_size: chunk_size must be positive",
				"processor.chunk_overlap: chunk_overlap must be non-negative and less than chunk_size",
			},
		},
		{
			name:          "overlap not smaller than chunk size",
			mutate:        func(c *Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			errorMessages: []string{"processor.chunk_overlap"},
		},
		{
			name: "invalid provider and log",
			mutate: func(c *Config) {
				c.Provider.Type = "cohere"
				c.Provider.BaseURL = "not a url"
				c.Log.Format = "xml"
			},
			errorMessages: []string{
				"provider.type: unknown provider",
				"provider.base_url: invalid provider base URL",
				"log.format: invalid log format: xml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			assert.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				if i < len(errors) {
					assert.Contains(t, errors[i].Error(), msg)
				}
			}
		})
	}
}

func TestValidateOfflineSkipsCredential(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	require.Len(t, config.Validate(), 1)
	assert.Equal(t, "provider.api_key", config.Validate()[0].Field)
	assert.Empty(t, config.ValidateOffline())

	config.Processor.ChunkSize = -1
	errors := config.ValidateOffline()
	require.NotEmpty(t, errors)
	assert.Equal(t, "processor.chunk_size", errors[0].Field)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DOCEMBED_ADDR", ":7000")
	t.Setenv("DOCEMBED_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-key", config.Provider.APIKey)
	assert.Equal(t, ":7000", config.Server.Addr)
	assert.Equal(t, "ollama", config.Provider.Type)
	assert.Equal(t, "http://env-ollama:11434", config.Provider.BaseURL)
}
