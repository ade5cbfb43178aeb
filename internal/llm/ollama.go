package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

var errStopped = errors.New("iteration stopped")

// OllamaModel implements the ADK model.LLM interface on a local Ollama server
type OllamaModel struct {
	client *api.Client
	name   string
}

// NewOllamaModel creates a new Ollama model
func NewOllamaModel(ctx context.Context, cfg Config) (model.LLM, error) {
	raw := cfg.OllamaURL
	if raw == "" {
		raw = DefaultOllamaURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_URL: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultOllamaModel
	}

	return &OllamaModel{
		client: api.NewClient(u, http.DefaultClient),
		name:   name,
	}, nil
}

// Name returns the model name
func (m *OllamaModel) Name() string {
	return m.name
}

// GenerateContent implements the ADK model.LLM interface
func (m *OllamaModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		chatReq := &api.ChatRequest{
			Model:    m.name,
			Messages: ollamaMessages(req),
			Tools:    ollamaTools(req.Config),
			Stream:   &stream,
		}

		var err error
		if stream {
			err = m.stream(ctx, chatReq, yield)
		} else {
			err = m.collect(ctx, chatReq, yield)
		}
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, fmt.Errorf("Ollama chat error: %w", err))
		}
	}
}

// stream yields each text chunk as a partial response, then the aggregated turn.
func (m *OllamaModel) stream(ctx context.Context, req *api.ChatRequest, yield func(*model.LLMResponse, error) bool) error {
	var text strings.Builder
	var calls []api.ToolCall
	return m.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
			partial := toLLMResponse(resp.Message.Content, nil)
			partial.Partial = true
			if !yield(partial, nil) {
				return errStopped
			}
		}
		calls = append(calls, resp.Message.ToolCalls...)
		if resp.Done {
			final := toLLMResponse(text.String(), calls)
			final.TurnComplete = true
			if !yield(final, nil) {
				return errStopped
			}
		}
		return nil
	})
}

func (m *OllamaModel) collect(ctx context.Context, req *api.ChatRequest, yield func(*model.LLMResponse, error) bool) error {
	var text strings.Builder
	var calls []api.ToolCall
	err := m.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		calls = append(calls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		return err
	}
	final := toLLMResponse(text.String(), calls)
	final.TurnComplete = true
	yield(final, nil)
	return nil
}

func toLLMResponse(text string, calls []api.ToolCall) *model.LLMResponse {
	var parts []*genai.Part
	if text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	for _, tc := range calls {
		args := make(map[string]any, len(tc.Function.Arguments))
		for k, v := range tc.Function.Arguments {
			args[k] = v
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{Name: tc.Function.Name, Args: args},
		})
	}
	if len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(""))
	}
	return &model.LLMResponse{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
	}
}

// ollamaMessages flattens the system instruction and conversation into chat messages.
// Function responses become "tool" messages.
func ollamaMessages(req *model.LLMRequest) []api.Message {
	var messages []api.Message

	if req.Config != nil && req.Config.SystemInstruction != nil {
		if sys := contentText(req.Config.SystemInstruction); sys != "" {
			messages = append(messages, api.Message{Role: "system", Content: sys})
		}
	}

	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		role := content.Role
		if role == genai.RoleModel {
			role = "assistant"
		}

		msg := api.Message{Role: role}
		var text strings.Builder
		for _, part := range content.Parts {
			switch {
			case part.FunctionCall != nil:
				args := make(api.ToolCallFunctionArguments)
				for k, v := range part.FunctionCall.Args {
					args[k] = v
				}
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{Name: part.FunctionCall.Name, Arguments: args},
				})
			case part.FunctionResponse != nil:
				body, err := json.Marshal(part.FunctionResponse.Response)
				if err != nil {
					body = []byte(`{}`)
				}
				messages = append(messages, api.Message{Role: "tool", Content: string(body)})
			case part.Text != "":
				text.WriteString(part.Text)
			}
		}
		msg.Content = text.String()
		if msg.Content != "" || len(msg.ToolCalls) > 0 {
			messages = append(messages, msg)
		}
	}

	return messages
}

func contentText(c *genai.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// paramSchema is the subset of a JSON schema Ollama needs for tool parameters
type paramSchema struct {
	Required   []string `json:"required"`
	Properties map[string]struct {
		Type        any    `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
}

// ollamaTools converts the request's function declarations into Ollama tools
func ollamaTools(cfg *genai.GenerateContentConfig) []api.Tool {
	if cfg == nil {
		return nil
	}
	var tools []api.Tool
	for _, t := range cfg.Tools {
		if t == nil {
			continue
		}
		for _, decl := range t.FunctionDeclarations {
			tools = append(tools, api.Tool{
				Type: "function",
				Function: api.ToolFunction{
					Name:        decl.Name,
					Description: decl.Description,
					Parameters:  toolParameters(decl),
				},
			})
		}
	}
	return tools
}

func toolParameters(decl *genai.FunctionDeclaration) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       "object",
		Properties: map[string]api.ToolProperty{},
	}

	var schema any = decl.ParametersJsonSchema
	if schema == nil && decl.Parameters != nil {
		schema = decl.Parameters
	}
	if schema == nil {
		return params
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return params
	}
	var ps paramSchema
	if err := json.Unmarshal(raw, &ps); err != nil {
		return params
	}

	params.Required = ps.Required
	for name, prop := range ps.Properties {
		params.Properties[name] = api.ToolProperty{
			Type:        api.PropertyType{schemaType(prop.Type)},
			Description: prop.Description,
		}
	}
	return params
}

// schemaType normalises a JSON schema "type", which may be a list or an
// upper-case genai type name, to a single lower-case type.
func schemaType(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return strings.ToLower(t)
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "null" {
				return strings.ToLower(s)
			}
		}
	}
	return "string"
}
