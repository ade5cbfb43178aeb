package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		errMsg string
	}{
		{name: "gemini without API key", config: Config{Provider: "gemini"}, errMsg: "GEMINI_API_KEY"},
		{name: "gemini with API key", config: Config{Provider: "gemini", APIKey: "test-key"}},
		{name: "empty provider defaults to gemini", config: Config{APIKey: "test-key"}},
		{name: "vertex without project", config: Config{Provider: "vertex"}, errMsg: "VERTEX_PROJECT"},
		{name: "vertex without location", config: Config{Provider: "vertex", VertexProject: "my-project"}, errMsg: "VERTEX_LOCATION"},
		{
			name:   "vertex with all fields",
			config: Config{Provider: "vertex", VertexProject: "my-project", VertexLocation: "us-central1"},
		},
		{name: "ollama without URL", config: Config{Provider: "ollama"}, errMsg: "OLLAMA_URL"},
		{name: "ollama with URL", config: Config{Provider: "ollama", OllamaURL: DefaultOllamaURL}},
		{name: "unknown provider", config: Config{Provider: "openrouter"}, errMsg: "unknown LLM provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("default provider is gemini", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "")
		t.Setenv("LLM_MODEL", "")
		cfg := ConfigFromEnv()
		assert.Equal(t, ProviderGemini, cfg.Provider)
		assert.Equal(t, DefaultGeminiModel, cfg.Model)
	})

	t.Run("ollama default model", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "ollama")
		t.Setenv("LLM_MODEL", "")
		cfg := ConfigFromEnv()
		assert.Equal(t, DefaultOllamaModel, cfg.Model)
	})

	t.Run("custom model", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "gemini")
		t.Setenv("LLM_MODEL", "gemini-1.5-pro")
		assert.Equal(t, "gemini-1.5-pro", ConfigFromEnv().Model)
	})

	t.Run("default ollama URL", func(t *testing.T) {
		t.Setenv("OLLAMA_URL", "")
		assert.Equal(t, DefaultOllamaURL, ConfigFromEnv().OllamaURL)
	})

	t.Run("reads all env vars", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "vertex")
		t.Setenv("GEMINI_API_KEY", "gemini-key")
		t.Setenv("VERTEX_PROJECT", "my-project")
		t.Setenv("VERTEX_LOCATION", "us-east1")
		t.Setenv("OLLAMA_URL", "http://custom:11434")

		cfg := ConfigFromEnv()
		assert.Equal(t, Config{
			Provider:       ProviderVertex,
			Model:          DefaultGeminiModel,
			APIKey:         "gemini-key",
			OllamaURL:      "http://custom:11434",
			VertexProject:  "my-project",
			VertexLocation: "us-east1",
		}, cfg)
	})
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Provider: ProviderOllama, Model: "mistral", OllamaURL: "http://gpu:11434"}.WithDefaults()
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, "http://gpu:11434", cfg.OllamaURL)
}

func TestSetupHelp(t *testing.T) {
	assert.Contains(t, Config{}.SetupHelp(), "GEMINI_API_KEY")
	assert.Contains(t, Config{Provider: ProviderVertex}.SetupHelp(), "VERTEX_PROJECT")
	assert.Contains(t, Config{Provider: ProviderOllama}.SetupHelp(), "ollama serve")
	assert.Contains(t, Config{Provider: "other"}.SetupHelp(), "LLM_PROVIDER")
}

func TestNewModelErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewModel(ctx, Config{Provider: "bogus"})
	assert.ErrorContains(t, err, "unknown LLM provider")

	_, err = NewModel(ctx, Config{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = NewModel(ctx, Config{Provider: ProviderVertex, VertexProject: "p"})
	assert.ErrorContains(t, err, "VERTEX_LOCATION")
}

func TestNewModelOllama(t *testing.T) {
	m, err := NewModel(context.Background(), Config{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, m.Name())
}
