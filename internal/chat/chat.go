// Package chat is the Scout conversation panel shown next to the matrix browser.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/agent"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

// AssistantName labels the agent's replies
const AssistantName = "Scout"

// ErrNoAgent is reported when a question is sent before an agent is attached
var ErrNoAgent = errors.New("no agent configured")

// Streamer is the part of the agent the chat panel drives
type Streamer interface {
	ChatStream(ctx context.Context, query string, ch chan<- agent.AgentEvent)
	ClearSession()
}

// MessageRole differentiates user vs agent messages
type MessageRole int

const (
	RoleUser MessageRole = iota
	RoleAgent
	RoleSystem
	RoleTool
)

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role      MessageRole
	Content   string
	Timestamp time.Time
	IsError   bool
}

// StreamChunkMsg delivers a text chunk during streaming
type StreamChunkMsg struct {
	Text string
}

// ToolCallMsg indicates a tool call starting or completing
type ToolCallMsg struct {
	ToolName string
	Params   map[string]any
	Done     bool
}

// StreamDoneMsg signals the agent turn is complete
type StreamDoneMsg struct{}

// StreamErrorMsg signals an error during streaming
type StreamErrorMsg struct {
	Err error
}

// toolStatus tracks a tool call's display state
type toolStatus struct {
	Name   string
	Params map[string]any
	Done   bool
}

// turn is the in-flight agent reply
type turn struct {
	text   string
	tools  []toolStatus
	events chan agent.AgentEvent
}

func (t turn) activeTools() int {
	n := 0
	for _, s := range t.tools {
		if !s.Done {
			n++
		}
	}
	return n
}

// Model is the chat panel
type Model struct {
	ctx       context.Context
	agent     Streamer
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	messages  []ChatMessage
	thinking  bool
	width     int
	height    int

	currentTechnique *model.TechniqueItem
	markdown         *glamour.TermRenderer
	markdownWidth    int

	turn    turn
	sel     selection
	content string // viewport text before selection highlighting
}

// NewModel creates a chat panel driving a. A nil agent leaves the panel read-only.
func NewModel(ctx context.Context, a Streamer) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about techniques, tactics, platforms..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 74
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(tui.PrimaryColor).Bold(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(tui.SecondaryColor)

	m := Model{
		ctx:       ctx,
		agent:     a,
		textInput: ti,
		viewport:  viewport.New(76, 16),
		spinner:   s,
		width:     80,
		height:    24,
		messages: []ChatMessage{{
			Role: RoleSystem,
			Content: `Hi, I'm Scout. Ask me anything about the MITRE ATT&CK matrices.

Try:
  "What is T1566?"
  "Initial access techniques on Linux"
  "Which tactics are in the mobile matrix?"
  "Export a navigator layer for execution"

Commands: /help /clear /context /forget /exit`,
			Timestamp: time.Now(),
		}},
	}
	m.updateViewportContent()
	return m
}

// CurrentTechnique returns the technique the browser is showing, if any
func (m Model) CurrentTechnique() *model.TechniqueItem {
	return m.currentTechnique
}

// Messages returns the conversation so far
func (m Model) Messages() []ChatMessage {
	return m.messages
}

// Thinking reports whether an agent turn is in flight
func (m Model) Thinking() bool {
	return m.thinking
}

// Init initializes the chat model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *Model) appendMessage(role MessageRole, content string, isErr bool) {
	m.messages = append(m.messages, ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		IsError:   isErr,
	})
}

func (m *Model) refresh() {
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "esc":
			m.textInput.Reset()
			return m, nil
		case "ctrl+y":
			if m.sel.active() {
				text := m.sel.text(m.content)
				tui.CopyToClipboard(text)
				m.sel = selection{}
				m.appendMessage(RoleSystem, fmt.Sprintf("Copied %d characters.", len([]rune(text))), false)
				m.refresh()
			}
			return m, nil
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(m.width-4, 10)
		m.viewport.Height = max(m.height-m.headerHeight()-5, 3)
		m.textInput.Width = max(m.width-6, 10)
		m.updateViewportContent()
		return m, nil

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.updateViewportContent()
			return m, cmd
		}
		return m, nil

	case StreamChunkMsg:
		m.turn.text += msg.Text
		m.refresh()
		return m, m.waitForEvent()

	case ToolCallMsg:
		if msg.Done {
			for i := range m.turn.tools {
				if m.turn.tools[i].Name == msg.ToolName && !m.turn.tools[i].Done {
					m.turn.tools[i].Done = true
					break
				}
			}
		} else {
			m.turn.tools = append(m.turn.tools, toolStatus{Name: msg.ToolName, Params: msg.Params})
		}
		m.refresh()
		return m, m.waitForEvent()

	case StreamDoneMsg:
		m.finishTurn()
		m.refresh()
		return m, nil

	case StreamErrorMsg:
		m.thinking = false
		m.turn = turn{}
		m.appendMessage(RoleSystem, "Error: "+msg.Err.Error(), true)
		m.refresh()
		return m, nil

	case model.TechniqueSelectedMsg:
		m.currentTechnique = msg.Technique
		return m, nil

	case tea.MouseMsg:
		return m.updateMouse(msg)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit sends the input line to the agent or runs it as a slash command
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.thinking {
		return m, nil
	}
	input := strings.TrimSpace(m.textInput.Value())
	if input == "" {
		return m, nil
	}
	m.textInput.Reset()

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.appendMessage(RoleUser, input, false)
	if m.agent == nil {
		m.appendMessage(RoleSystem, "Error: "+ErrNoAgent.Error(), true)
		m.refresh()
		return m, nil
	}

	ch := make(chan agent.AgentEvent, 16)
	m.thinking = true
	m.turn = turn{events: ch}
	go m.agent.ChatStream(m.ctx, buildEnrichedQuery(m.currentTechnique, input), ch)

	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// finishTurn moves the streamed tool lines and text into the history
func (m *Model) finishTurn() {
	m.thinking = false
	if len(m.turn.tools) > 0 {
		var b strings.Builder
		for _, t := range m.turn.tools {
			mark := "⚡"
			if t.Done {
				mark = "✓"
			}
			fmt.Fprintf(&b, "  %s %s\n", mark, t.Name)
		}
		m.appendMessage(RoleTool, strings.TrimRight(b.String(), "\n"), false)
	}
	if m.turn.text != "" {
		m.appendMessage(RoleAgent, m.turn.text, false)
	}
	m.turn = turn{}
}

// waitForEvent blocks on the turn's channel and converts the next event
// into a tea.Msg. Each streaming handler re-issues it to pump the next event.
func (m Model) waitForEvent() tea.Cmd {
	ch := m.turn.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			ev, ok := <-ch
			if !ok {
				return StreamDoneMsg{}
			}
			switch ev.Kind {
			case agent.EventText:
				return StreamChunkMsg{Text: ev.Text}
			case agent.EventToolStart:
				return ToolCallMsg{ToolName: ev.ToolName, Params: ev.Params}
			case agent.EventToolDone:
				return ToolCallMsg{ToolName: ev.ToolName, Done: true}
			case agent.EventDone:
				return StreamDoneMsg{}
			case agent.EventError:
				return StreamErrorMsg{Err: ev.Err}
			}
		}
	}
}

const helpText = `Commands:
  /help, /?    Show this help message
  /clear       Clear conversation and start fresh
  /context     Show the technique Scout is looking at
  /forget      Stop sending the selected technique as context
  /exit, /q    Exit

Ask things like:
  "search for credential dumping"
  "persistence techniques on macOS"
  "what sub-techniques does T1059 have?"
  "matrix stats for mobile"
  "export execution as a navigator layer"

Navigation:
  PgUp/PgDn    Scroll conversation history
  Ctrl+C       Quit`

// handleCommand processes slash commands
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/exit", "/quit", "/q":
		return m, tea.Quit

	case "/clear":
		if m.agent != nil {
			m.agent.ClearSession()
		}
		m.messages = nil
		m.appendMessage(RoleSystem, "Conversation cleared. Starting fresh.", false)

	case "/help", "/?":
		m.appendMessage(RoleSystem, helpText, false)

	case "/context":
		if m.currentTechnique == nil {
			m.appendMessage(RoleSystem, "No technique selected. Open one in the browser to share it with Scout.", false)
		} else {
			m.appendMessage(RoleSystem, "Context: "+techniqueContext(m.currentTechnique), false)
		}

	case "/forget":
		m.currentTechnique = nil
		m.appendMessage(RoleSystem, "Technique context cleared.", false)

	default:
		m.appendMessage(RoleSystem, "Unknown command: "+input+". Type /help for available commands.", true)
	}
	m.refresh()
	return m, nil
}

// sanitizeForPrompt removes characters that could enable prompt injection
func sanitizeForPrompt(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "[", "(", "]", ")").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func techniqueContext(t *model.TechniqueItem) string {
	tactics := make([]string, 0, len(t.Tactics))
	for _, tac := range t.Tactics {
		tactics = append(tactics, model.DisplayTacticName(tac))
	}
	return fmt.Sprintf("%s - %s (%s; tactics: %s; platforms: %s)",
		sanitizeForPrompt(t.TechniqueID),
		sanitizeForPrompt(t.Name),
		t.Domain.String(),
		sanitizeForPrompt(strings.Join(tactics, ", ")),
		sanitizeForPrompt(strings.Join(t.Platforms, ", ")),
	)
}

// buildEnrichedQuery prefixes the query with the selected technique
func buildEnrichedQuery(t *model.TechniqueItem, query string) string {
	if t == nil {
		return query
	}
	return fmt.Sprintf("[Context: User is viewing %s]\n\n%s", techniqueContext(t), query)
}
