package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/agent"
	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/chat"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/internal/palette"
	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

// Layout constants
const (
	AgentPanelWidth   = 55  // Fixed width for the Scout sidebar
	CompactBreakpoint = 100 // Below this width, hide the Scout panel
	MouseThrottle     = 15 * time.Millisecond
	paletteMaxWidth   = 60
)

// PanelType identifies the focused panel
type PanelType int

const (
	PanelBrowser PanelType = iota
	PanelAgent
)

// palette actions handled by the layout itself
const (
	actionToggleAgent = "toggle_agent"
	actionFocusAgent  = "focus_agent"
	actionHelp        = "help"
	actionQuit        = "quit"
)

// browserKeys maps palette actions onto the browser's own single-key bindings
var browserKeys = map[string]string{
	"domain":   "m",
	"refresh":  "r",
	"platform": "p",
	"charts":   "g",
	"export":   "x",
	"theme":    "t",
	"all":      "a",
}

func paletteCommands() []palette.Command {
	return []palette.Command{
		{Name: "Switch matrix (Enterprise / Mobile / PRE)", Key: "m", Action: "domain"},
		{Name: "Show all techniques", Key: "a", Action: "all"},
		{Name: "Cycle platform filter", Key: "p", Action: "platform"},
		{Name: "Charts", Key: "g", Action: "charts"},
		{Name: "Export techniques", Key: "x", Action: "export"},
		{Name: "Refresh data", Key: "r", Action: "refresh"},
		{Name: "Cycle theme", Key: "t", Action: "theme"},
		{Name: "Ask " + chat.AssistantName, Key: "ctrl+k", Action: actionFocusAgent},
		{Name: "Toggle " + chat.AssistantName + " panel", Key: "\\", Action: actionToggleAgent},
		{Name: "Toggle help", Key: "?", Action: actionHelp},
		{Name: "Quit", Key: "ctrl+c", Action: actionQuit},
	}
}

type agentInitMsg struct {
	agent chat.Streamer
}

type agentInitErrorMsg struct {
	err error
}

// AppModel lays the matrix browser out next to the Scout sidebar
type AppModel struct {
	ctx    context.Context
	client *api.Client
	llm    llm.Config

	tuiModel   tea.Model
	agentModel tea.Model
	palette    palette.Model

	agentInitialized bool
	agentError       string
	focusedPanel     PanelType
	compact          bool // window too narrow for the sidebar
	agentVisible     bool // toggled with \
	// pendingTechnique is replayed into the chat once the agent is ready
	pendingTechnique *model.TechniqueItem
	lastMouseEvent   time.Time

	width  int
	height int
}

func newAppModel(ctx context.Context, client *api.Client, domain model.Domain, llmCfg llm.Config) AppModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = api.NewClient()
	}
	return AppModel{
		ctx:          ctx,
		client:       client,
		llm:          llmCfg,
		tuiModel:     tui.NewModel(ctx, client, domain),
		palette:      palette.New(paletteCommands()),
		focusedPanel: PanelBrowser,
		agentVisible: true,
		width:        120,
		height:       30,
	}
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tuiModel.Init()}
	if err := m.llm.Validate(); err == nil {
		cmds = append(cmds, m.initAgent())
	}
	return tea.Batch(cmds...)
}

func (m AppModel) initAgent() tea.Cmd {
	ctx, cfg, client := m.ctx, m.llm, m.client
	return func() tea.Msg {
		a, err := agent.New(ctx, cfg, client)
		if err != nil {
			return agentInitErrorMsg{err: err}
		}
		return agentInitMsg{agent: a}
	}
}

func (m AppModel) agentShown() bool {
	return m.agentModel != nil && !m.compact && m.agentVisible
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case agentInitMsg:
		m.agentModel = chat.NewModel(m.ctx, msg.agent)
		m.agentInitialized = true
		cmds = append(cmds, m.agentModel.Init())
		if !m.compact {
			var cmd tea.Cmd
			m.agentModel, cmd = m.agentModel.Update(tea.WindowSizeMsg{Width: AgentPanelWidth, Height: m.height})
			cmds = append(cmds, cmd)
		}
		if m.pendingTechnique != nil {
			var cmd tea.Cmd
			m.agentModel, cmd = m.agentModel.Update(model.TechniqueSelectedMsg{Technique: m.pendingTechnique})
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case agentInitErrorMsg:
		m.agentError = msg.err.Error()
		return m, nil

	case palette.SelectedAction:
		return m.runAction(string(msg))

	case tea.KeyMsg:
		if m.palette.Active {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+p":
			m.palette.Open()
			return m, nil
		case "\\":
			if !m.compact {
				m.agentVisible = !m.agentVisible
				if !m.agentVisible {
					m.focusedPanel = PanelBrowser
				}
				return m, nil
			}
		case "tab":
			if !m.compact && m.agentVisible {
				if m.focusedPanel == PanelBrowser {
					m.focusedPanel = PanelAgent
				} else {
					m.focusedPanel = PanelBrowser
				}
				return m, nil
			}
		}

		return m.routeToFocused(msg)

	case tea.MouseMsg:
		now := time.Now()
		if now.Sub(m.lastMouseEvent) < MouseThrottle {
			return m, nil
		}
		m.lastMouseEvent = now

		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && !m.compact && m.agentVisible {
			if msg.X < m.width-AgentPanelWidth {
				m.focusedPanel = PanelBrowser
			} else {
				m.focusedPanel = PanelAgent
			}
		}

		if m.focusedPanel == PanelAgent && m.agentShown() {
			adjusted := msg
			adjusted.X = msg.X - (m.width - AgentPanelWidth)
			var cmd tea.Cmd
			m.agentModel, cmd = m.agentModel.Update(adjusted)
			return m, cmd
		}
		var cmd tea.Cmd
		m.tuiModel, cmd = m.tuiModel.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.compact = msg.Width < CompactBreakpoint
		m.palette.SetSize(min(paletteMaxWidth, max(msg.Width-4, 20)), msg.Height)

		browserWidth := msg.Width
		if !m.compact {
			browserWidth = msg.Width - AgentPanelWidth
		}
		var cmd tea.Cmd
		m.tuiModel, cmd = m.tuiModel.Update(tea.WindowSizeMsg{Width: browserWidth, Height: msg.Height})
		cmds = append(cmds, cmd)

		if m.agentModel != nil && !m.compact {
			var agentCmd tea.Cmd
			m.agentModel, agentCmd = m.agentModel.Update(tea.WindowSizeMsg{Width: AgentPanelWidth, Height: msg.Height})
			cmds = append(cmds, agentCmd)
		}
		return m, tea.Batch(cmds...)

	case tui.OpenAgentMsg:
		if !m.compact {
			m.agentVisible = true
			m.focusedPanel = PanelAgent
		}
		return m, nil

	case model.TechniqueSelectedMsg:
		m.pendingTechnique = msg.Technique
		if m.agentModel != nil {
			var cmd tea.Cmd
			m.agentModel, cmd = m.agentModel.Update(msg)
			return m, cmd
		}
		return m, nil

	case chat.StreamChunkMsg, chat.ToolCallMsg, chat.StreamDoneMsg, chat.StreamErrorMsg:
		// a turn keeps streaming while the browser has focus
		if m.agentModel != nil {
			var cmd tea.Cmd
			m.agentModel, cmd = m.agentModel.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.routeToFocused(msg)
}

// routeToFocused sends msg to the focused panel only, so spinner ticks of
// the hidden panel do not cause redraws
func (m AppModel) routeToFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focusedPanel == PanelAgent && m.agentShown() {
		m.agentModel, cmd = m.agentModel.Update(msg)
		return m, cmd
	}
	m.tuiModel, cmd = m.tuiModel.Update(msg)
	return m, cmd
}

// runAction applies a command chosen in the palette
func (m AppModel) runAction(action string) (tea.Model, tea.Cmd) {
	switch action {
	case actionQuit:
		return m, tea.Quit
	case actionToggleAgent:
		if !m.compact {
			m.agentVisible = !m.agentVisible
			if !m.agentVisible {
				m.focusedPanel = PanelBrowser
			}
		}
		return m, nil
	case actionFocusAgent:
		return m.Update(tui.OpenAgentMsg{})
	case actionHelp:
		m.focusedPanel = PanelBrowser
		var cmd tea.Cmd
		m.tuiModel, cmd = m.tuiModel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
		return m, cmd
	}

	if k, ok := browserKeys[action]; ok {
		m.focusedPanel = PanelBrowser
		var cmd tea.Cmd
		m.tuiModel, cmd = m.tuiModel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		return m, cmd
	}
	return m, nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var view string
	if m.compact || !m.agentVisible {
		view = m.tuiModel.View()
	} else {
		view = m.splitView()
	}
	return m.palette.Overlay(view, m.width, m.height)
}

func (m AppModel) splitView() string {
	browserView := lipgloss.NewStyle().
		Width(m.width - AgentPanelWidth).
		Height(m.height).
		Render(m.tuiModel.View())

	border := tui.SubtleColor
	if m.focusedPanel == PanelAgent {
		border = tui.PrimaryColor
	}

	var content string
	switch {
	case m.agentModel != nil:
		content = m.agentModel.View()
	case m.agentError != "":
		content = m.renderError()
	case m.llm.Validate() != nil:
		content = m.renderSetupHelp()
	default:
		content = m.renderLoading()
	}

	agentView := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(border).
		Width(AgentPanelWidth - 1).
		Height(m.height).
		Render(content)

	return lipgloss.JoinHorizontal(lipgloss.Top, browserView, agentView)
}

func (m AppModel) renderSetupHelp() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(tui.PrimaryColor).Render(chat.AssistantName)
	subtitle := lipgloss.NewStyle().Foreground(tui.SubtleColor).Render("ATT&CK Assistant")
	instruction := lipgloss.NewStyle().Foreground(tui.SubtleColor).Render(m.llm.SetupHelp())
	return lipgloss.JoinVertical(lipgloss.Center, "", title, subtitle, "", instruction)
}

func (m AppModel) renderError() string {
	return lipgloss.NewStyle().
		Foreground(tui.ErrorColor).
		Width(AgentPanelWidth - 3).
		Render(fmt.Sprintf("Error:\n%s", m.agentError))
}

func (m AppModel) renderLoading() string {
	return lipgloss.NewStyle().
		Foreground(tui.SubtleColor).
		Render("Loading " + chat.AssistantName + "...")
}
