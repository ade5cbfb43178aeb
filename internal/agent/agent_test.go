package agent

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/ethanolivertroy/attack-tui/internal/api/apitest"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
)

// scriptedModel asks for get_technique(T1566) and answers once the tool result is back
type scriptedModel struct{}

func (scriptedModel) Name() string { return "scripted" }

func (scriptedModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		last := req.Contents[len(req.Contents)-1]
		for _, p := range last.Parts {
			if p.FunctionResponse != nil {
				yield(&model.LLMResponse{
					Content:      genai.NewContentFromText("T1566 is Phishing.", genai.RoleModel),
					TurnComplete: true,
				}, nil)
				return
			}
		}
		yield(&model.LLMResponse{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{Name: "get_technique", Args: map[string]any{"id": "T1566"}},
				}},
			},
			TurnComplete: true,
		}, nil)
	}
}

func newTestAgent(t *testing.T) *MatrixAgent {
	t.Helper()
	a, err := NewWithModel(scriptedModel{}, apitest.NewClient(t))
	require.NoError(t, err)
	return a
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), llm.Config{Provider: llm.ProviderGemini}, nil)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestAgentName(t *testing.T) {
	a := newTestAgent(t)
	assert.Equal(t, "attack_agent", a.Agent().Name())
}

func TestQuery(t *testing.T) {
	a := newTestAgent(t)
	out, err := a.Query(context.Background(), "what is T1566?")
	require.NoError(t, err)
	assert.Contains(t, out, "T1566 is Phishing.")
}

func TestChatStream(t *testing.T) {
	a := newTestAgent(t)
	ch := make(chan AgentEvent, 16)
	go a.ChatStream(context.Background(), "what is T1566?", ch)

	var events []AgentEvent
	for ev := range ch {
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	var kinds []EventKind
	var text string
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventText {
			text += ev.Text
		}
		if ev.Kind == EventToolStart {
			assert.Equal(t, "get_technique", ev.ToolName)
			assert.Equal(t, "T1566", ev.Params["id"])
		}
	}
	assert.Contains(t, kinds, EventToolStart)
	assert.Contains(t, kinds, EventToolDone)
	assert.Equal(t, "T1566 is Phishing.", text)
	assert.Equal(t, EventDone, events[len(events)-1].Kind)
}

func TestChatKeepsSessionUntilCleared(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	_, err := a.Chat(ctx, "what is T1566?")
	require.NoError(t, err)
	first := a.sessionID
	require.NotEmpty(t, first)

	_, err = a.Chat(ctx, "and again?")
	require.NoError(t, err)
	assert.Equal(t, first, a.sessionID)

	a.ClearSession()
	assert.Empty(t, a.sessionID)

	_, err = a.Chat(ctx, "fresh start")
	require.NoError(t, err)
	assert.NotEqual(t, first, a.sessionID)
}

func TestChatStreamCancelled(t *testing.T) {
	a := newTestAgent(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan AgentEvent)
	done := make(chan struct{})
	go func() {
		a.ChatStream(ctx, "hello", ch)
		close(done)
	}()
	for range ch {
	}
	<-done
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "tool_start", EventToolStart.String())
	assert.Equal(t, "done", EventDone.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}
