package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		RateLimit    float64       `yaml:"rate_limit"` // requests per second
		Burst        int           `yaml:"burst"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		CORSOrigins  []string      `yaml:"cors_origins"`
	} `yaml:"server"`

	Provider struct {
		Type    string        `yaml:"type"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"provider"`

	Tokenizer struct {
		Model            string `yaml:"model"`
		FallbackEncoding string `yaml:"fallback_encoding"`
	} `yaml:"tokenizer"`

	Processor struct {
		ChunkSize         int           `yaml:"chunk_size"`
		ChunkOverlap      int           `yaml:"chunk_overlap"`
		MaxUploadBytes    int           `yaml:"max_upload_bytes"`
		Pacing            time.Duration `yaml:"pacing"`
		PreviewChars      int           `yaml:"preview_chars"`
		FallbackEncodings []string      `yaml:"fallback_encodings"`
	} `yaml:"processor"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docembed/config.yaml"),
			"/etc/docembed/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.Server.RateLimit == 0 {
		config.Server.RateLimit = 20
	}
	if config.Server.Burst == 0 {
		config.Server.Burst = 40
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 60 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 10 * time.Minute
	}
	if len(config.Server.CORSOrigins) == 0 {
		config.Server.CORSOrigins = []string{"*"}
	}

	if config.Provider.Type == "" {
		config.Provider.Type = "gemini"
	}
	if config.Provider.Model == "" {
		switch config.Provider.Type {
		case "ollama":
			config.Provider.Model = "nomic-embed-text:latest"
		default:
			config.Provider.Model = "gemini-embedding-001"
		}
	}
	if config.Provider.Type == "ollama" && config.Provider.BaseURL == "" {
		config.Provider.BaseURL = "http://localhost:11434"
	}
	if config.Provider.Timeout == 0 {
		config.Provider.Timeout = 30 * time.Second
	}

	if config.Tokenizer.Model == "" {
		config.Tokenizer.Model = "gpt-3.5-turbo"
	}
	if config.Tokenizer.FallbackEncoding == "" {
		config.Tokenizer.FallbackEncoding = "cl100k_base"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 800
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 100
	}
	if config.Processor.MaxUploadBytes == 0 {
		config.Processor.MaxUploadBytes = 10 * 1024 * 1024
	}
	if config.Processor.Pacing == 0 {
		config.Processor.Pacing = 100 * time.Millisecond
	}
	if config.Processor.PreviewChars == 0 {
		config.Processor.PreviewChars = 200
	}
	if len(config.Processor.FallbackEncodings) == 0 {
		config.Processor.FallbackEncodings = []string{"latin-1", "cp1252", "iso-8859-1"}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("DOCEMBED_PROVIDER"); provider != "" {
		config.Provider.Type = provider
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Provider.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && config.Provider.Type == "ollama" {
		config.Provider.BaseURL = baseURL
	}
	if addr := os.Getenv("DOCEMBED_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
}
