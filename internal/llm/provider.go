// Package llm provides the LLM provider abstraction for the ATT&CK assistant
package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/adk/model"
)

// Supported providers
const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOllama = "ollama"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOllamaModel = "llama3.2"
	DefaultOllamaURL   = "http://localhost:11434"
)

// Config holds LLM configuration
type Config struct {
	Provider       string // "gemini", "vertex" or "ollama"
	Model          string // model name (e.g., "gemini-2.0-flash", "llama3.2")
	APIKey         string // for Gemini (GEMINI_API_KEY)
	OllamaURL      string // for Ollama (default: http://localhost:11434)
	VertexProject  string // GCP project for Vertex AI
	VertexLocation string // GCP region for Vertex AI
}

// ConfigFromEnv creates a Config from environment variables
func ConfigFromEnv() Config {
	return Config{
		Provider:       os.Getenv("LLM_PROVIDER"),
		Model:          os.Getenv("LLM_MODEL"),
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		OllamaURL:      os.Getenv("OLLAMA_URL"),
		VertexProject:  os.Getenv("VERTEX_PROJECT"),
		VertexLocation: os.Getenv("VERTEX_LOCATION"),
	}.WithDefaults()
}

// WithDefaults fills the provider, model and Ollama URL when unset
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	if c.Model == "" {
		if c.Provider == ProviderOllama {
			c.Model = DefaultOllamaModel
		} else {
			c.Model = DefaultGeminiModel
		}
	}
	if c.OllamaURL == "" {
		c.OllamaURL = DefaultOllamaURL
	}
	return c
}

// NewModel creates an ADK-compatible model based on the config
func NewModel(ctx context.Context, cfg Config) (model.LLM, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiModel(ctx, cfg)
	case ProviderVertex:
		return NewVertexModel(ctx, cfg)
	case ProviderOllama:
		return NewOllamaModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, vertex, ollama)", cfg.Provider)
	}
}

// Validate checks if the config is valid for the selected provider
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, "":
		if c.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required for Gemini provider")
		}
	case ProviderVertex:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEX_PROJECT is required for Vertex AI provider")
		}
		if c.VertexLocation == "" {
			return fmt.Errorf("VERTEX_LOCATION is required for Vertex AI provider")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("OLLAMA_URL is required for Ollama provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.Provider)
	}
	return nil
}

// SetupHelp returns short setup instructions for the configured provider
func (c Config) SetupHelp() string {
	switch c.Provider {
	case ProviderGemini, "":
		return "Set GEMINI_API_KEY\nto enable"
	case ProviderVertex:
		return "Set VERTEX_PROJECT\nand VERTEX_LOCATION"
	case ProviderOllama:
		return "Start Ollama:\n  ollama serve"
	default:
		return "Configure LLM_PROVIDER\nand credentials"
	}
}
