package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

const appName = "attack-tui"

// SystemInstruction for Scout
const SystemInstruction = `You are Scout, a threat-intelligence analyst who knows the MITRE ATT&CK matrices (Enterprise, Mobile and PRE-ATT&CK) inside out.

Be action-oriented:
- When a user mentions a technique id, tactic, platform or behaviour, use your tools first and explain after
- Do not ask clarifying questions when a reasonable assumption exists; default to the Enterprise domain
- If a search returns nothing, say so briefly and suggest a broader query

Examples:
- "what is T1566?" → get_technique(id="T1566")
- "how do attackers get in on Linux?" → techniques_by_tactic(tactic="initial-access", platform="Linux")
- "anything about PowerShell?" → search_techniques(query="PowerShell")
- "what tactics does mobile have?" → list_tactics(domain="mobile")
- "give me a navigator layer for execution" → export_layer(tactic="execution")

Your tools:
- search_techniques: search by keyword, tactic or platform
- get_technique: full details of one technique
- list_tactics: the tactic columns of a matrix in kill-chain order
- techniques_by_tactic: every technique under one tactic
- get_matrix_stats: technique counts per tactic and platform
- export_layer: write an ATT&CK Navigator layer (or JSON/CSV/Markdown/YAML) to disk

When presenting results:
- Lead with technique ids and names, keep explanations brief
- Say whether a tactic belongs to the prepare or act phase when it matters
- Mention sub-techniques as children of their parent (T1059.001 under T1059)
- Use markdown for clarity

Only steer back to ATT&CK if the question has nothing to do with adversary behaviour or defence.`

// MatrixAgent wraps the ADK agent with the ATT&CK toolset
type MatrixAgent struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	log            *logger.Logger

	// chat session reused across turns
	mu        sync.Mutex
	userID    string
	sessionID string
}

// New creates an agent for the configured LLM provider, reading ATT&CK data through client
func New(ctx context.Context, cfg llm.Config, client *api.Client) (*MatrixAgent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}
	return NewWithModel(m, client)
}

// NewWithModel builds the agent around an already constructed model
func NewWithModel(m model.LLM, client *api.Client) (*MatrixAgent, error) {
	if client == nil {
		client = api.NewClient()
	}

	tools, err := CreateTools(NewToolset(client, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create tools: %w", err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        "attack_agent",
		Description: "Threat-intelligence assistant for exploring the MITRE ATT&CK matrices",
		Model:       m,
		Instruction: SystemInstruction,
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	sessionSvc := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          a,
		SessionService: sessionSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &MatrixAgent{
		agent:          a,
		runner:         r,
		sessionService: sessionSvc,
		log:            logger.Global().WithComponent("agent"),
	}, nil
}

// SetLogger replaces the agent's logger
func (a *MatrixAgent) SetLogger(l *logger.Logger) {
	a.log = l.WithComponent("agent")
}

// Agent returns the underlying ADK agent for use with launchers
func (a *MatrixAgent) Agent() agent.Agent {
	return a.agent
}

func (a *MatrixAgent) newSession(ctx context.Context, userID string) (string, error) {
	resp, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return resp.Session.ID(), nil
}

// chatSession returns the persistent chat session, creating it on first use
func (a *MatrixAgent) chatSession(ctx context.Context) (string, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID == "" {
		id, err := a.newSession(ctx, "chat-user")
		if err != nil {
			return "", "", err
		}
		a.userID = "chat-user"
		a.sessionID = id
		a.log.Debug().Str("session", id).Msg("started chat session")
	}
	return a.userID, a.sessionID, nil
}

func userMessage(query string) *genai.Content {
	return genai.NewContentFromText(query, genai.RoleUser)
}

func (a *MatrixAgent) collect(ctx context.Context, userID, sessionID, query string) (string, error) {
	var response strings.Builder
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage(query), agent.RunConfig{}) {
		if err != nil {
			return "", fmt.Errorf("agent error: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			if part.Text != "" {
				response.WriteString(part.Text)
			}
		}
	}
	return response.String(), nil
}

// Query answers a single question in a fresh session
func (a *MatrixAgent) Query(ctx context.Context, query string) (string, error) {
	sessionID, err := a.newSession(ctx, "user")
	if err != nil {
		return "", err
	}
	return a.collect(ctx, "user", sessionID, query)
}

// Chat answers within the persistent session so follow-up questions keep context
func (a *MatrixAgent) Chat(ctx context.Context, query string) (string, error) {
	userID, sessionID, err := a.chatSession(ctx)
	if err != nil {
		return "", err
	}
	return a.collect(ctx, userID, sessionID, query)
}

// ChatStream runs one chat turn and reports its progress on ch, which is
// closed when the turn ends. The last event is EventDone or EventError.
func (a *MatrixAgent) ChatStream(ctx context.Context, query string, ch chan<- AgentEvent) {
	defer close(ch)

	send := func(ev AgentEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	userID, sessionID, err := a.chatSession(ctx)
	if err != nil {
		send(AgentEvent{Kind: EventError, Err: err})
		return
	}

	cfg := agent.RunConfig{StreamingMode: agent.StreamingModeSSE}
	streamed := false
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage(query), cfg) {
		if err != nil {
			a.log.Warn().Err(err).Msg("chat turn failed")
			send(AgentEvent{Kind: EventError, Err: fmt.Errorf("agent error: %w", err)})
			return
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			var ev AgentEvent
			switch {
			case part.FunctionCall != nil:
				ev = AgentEvent{Kind: EventToolStart, ToolName: part.FunctionCall.Name, Params: part.FunctionCall.Args}
			case part.FunctionResponse != nil:
				ev = AgentEvent{Kind: EventToolDone, ToolName: part.FunctionResponse.Name}
			case part.Text != "":
				// the final event of a streamed response repeats its partial chunks
				if !event.Partial && streamed {
					continue
				}
				ev = AgentEvent{Kind: EventText, Text: part.Text}
			default:
				continue
			}
			if !send(ev) {
				return
			}
		}
		streamed = event.Partial
	}

	send(AgentEvent{Kind: EventDone})
}

// ClearSession drops the chat session; the next Chat starts fresh
func (a *MatrixAgent) ClearSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = ""
	a.sessionID = ""
}
