package llm

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// NewGeminiModel creates an ADK model backed by the Gemini API
func NewGeminiModel(ctx context.Context, cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
	}
	return newGenAIModel(ctx, "Gemini", cfg.Model, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
}

// NewVertexModel creates an ADK model using the Vertex AI backend.
// Requires Application Default Credentials (run `gcloud auth application-default login`).
func NewVertexModel(ctx context.Context, cfg Config) (model.LLM, error) {
	if cfg.VertexProject == "" {
		return nil, fmt.Errorf("VERTEX_PROJECT is required for Vertex AI provider")
	}
	if cfg.VertexLocation == "" {
		return nil, fmt.Errorf("VERTEX_LOCATION is required for Vertex AI provider")
	}
	return newGenAIModel(ctx, "Vertex AI", cfg.Model, &genai.ClientConfig{
		Project:  cfg.VertexProject,
		Location: cfg.VertexLocation,
		Backend:  genai.BackendVertexAI,
	})
}

func newGenAIModel(ctx context.Context, label, name string, cc *genai.ClientConfig) (model.LLM, error) {
	if name == "" {
		name = DefaultGeminiModel
	}
	m, err := gemini.NewModel(ctx, name, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", label, err)
	}
	return m, nil
}
