package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestOllamaMessages(t *testing.T) {
	req := &model.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are an ATT&CK analyst.", genai.RoleUser),
		},
		Contents: []*genai.Content{
			genai.NewContentFromText("What is T1566?", genai.RoleUser),
			{
				Role: genai.RoleModel,
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{Name: "get_technique", Args: map[string]any{"id": "T1566"}},
				}},
			},
			{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{Name: "get_technique", Response: map[string]any{"name": "Phishing"}},
				}},
			},
		},
	}

	msgs := ollamaMessages(req)
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "You are an ATT&CK analyst.", msgs[0].Content)

	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "What is T1566?", msgs[1].Content)

	assert.Equal(t, "assistant", msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "get_technique", msgs[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "T1566", msgs[2].ToolCalls[0].Function.Arguments["id"])

	assert.Equal(t, "tool", msgs[3].Role)
	assert.JSONEq(t, `{"name":"Phishing"}`, msgs[3].Content)
}

func TestOllamaToolsFromDeclarations(t *testing.T) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "search_techniques",
					Description: "Search techniques",
					ParametersJsonSchema: map[string]any{
						"type":     "object",
						"required": []string{"query"},
						"properties": map[string]any{
							"query": map[string]any{"type": "string", "description": "search text"},
							"limit": map[string]any{"type": []any{"null", "integer"}},
						},
					},
				},
				{
					Name: "get_technique",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"id": {Type: genai.TypeString, Description: "ATT&CK id"},
						},
						Required: []string{"id"},
					},
				},
				{Name: "list_tactics"},
			},
		}},
	}

	tools := ollamaTools(cfg)
	require.Len(t, tools, 3)

	search := tools[0].Function
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "search_techniques", search.Name)
	assert.Equal(t, []string{"query"}, search.Parameters.Required)
	assert.Equal(t, api.PropertyType{"string"}, search.Parameters.Properties["query"].Type)
	assert.Equal(t, "search text", search.Parameters.Properties["query"].Description)
	assert.Equal(t, api.PropertyType{"integer"}, search.Parameters.Properties["limit"].Type)

	get := tools[1].Function
	assert.Equal(t, []string{"id"}, get.Parameters.Required)
	assert.Equal(t, api.PropertyType{"string"}, get.Parameters.Properties["id"].Type)

	assert.Equal(t, "object", tools[2].Function.Parameters.Type)
	assert.Empty(t, tools[2].Function.Parameters.Properties)

	assert.Nil(t, ollamaTools(nil))
}

func newOllamaServer(t *testing.T, lines ...string) *OllamaModel {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req api.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	t.Cleanup(srv.Close)

	m, err := NewOllamaModel(context.Background(), Config{OllamaURL: srv.URL})
	require.NoError(t, err)
	return m.(*OllamaModel)
}

func TestOllamaGenerateContentStream(t *testing.T) {
	m := newOllamaServer(t,
		`{"model":"llama3.2","message":{"role":"assistant","content":"Phishing "},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":"is T1566."},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true}`,
	)

	req := &model.LLMRequest{Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)}}

	var partial []string
	var final *model.LLMResponse
	for resp, err := range m.GenerateContent(context.Background(), req, true) {
		require.NoError(t, err)
		if resp.Partial {
			partial = append(partial, resp.Content.Parts[0].Text)
			continue
		}
		final = resp
	}

	assert.Equal(t, []string{"Phishing ", "is T1566."}, partial)
	require.NotNil(t, final)
	assert.True(t, final.TurnComplete)
	assert.Equal(t, "Phishing is T1566.", final.Content.Parts[0].Text)
}

func TestOllamaGenerateContentToolCall(t *testing.T) {
	m := newOllamaServer(t,
		`{"model":"llama3.2","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"get_technique","arguments":{"id":"T1059"}}}]},"done":true}`,
	)

	var got []*model.LLMResponse
	for resp, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		require.NoError(t, err)
		got = append(got, resp)
	}

	require.Len(t, got, 1)
	parts := got[0].Content.Parts
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].FunctionCall)
	assert.Equal(t, "get_technique", parts[0].FunctionCall.Name)
	assert.Equal(t, "T1059", parts[0].FunctionCall.Args["id"])
}

func TestOllamaGenerateContentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"llama3.2\" not found"}`)
	}))
	defer srv.Close()

	m, err := NewOllamaModel(context.Background(), Config{OllamaURL: srv.URL})
	require.NoError(t, err)

	var gotErr error
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		gotErr = err
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "not found")
}

func TestSchemaType(t *testing.T) {
	assert.Equal(t, "string", schemaType("STRING"))
	assert.Equal(t, "integer", schemaType([]any{"null", "integer"}))
	assert.Equal(t, "string", schemaType(nil))
}
