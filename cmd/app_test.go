package cmd

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/attack-tui/internal/api/apitest"
	"github.com/ethanolivertroy/attack-tui/internal/chat"
	"github.com/ethanolivertroy/attack-tui/internal/llm"
	"github.com/ethanolivertroy/attack-tui/internal/model"
	"github.com/ethanolivertroy/attack-tui/internal/palette"
	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

func newTestApp(t *testing.T) AppModel {
	t.Helper()
	// no API key, so Init never starts a real agent
	return newAppModel(context.Background(), apitest.NewClient(t), model.DomainEnterprise, llm.Config{Provider: llm.ProviderGemini})
}

func withChat(t *testing.T, app AppModel) AppModel {
	t.Helper()
	next, _ := app.Update(agentInitMsg{})
	return next.(AppModel)
}

func technique(id, name string) *model.TechniqueItem {
	return &model.TechniqueItem{Technique: model.Technique{
		TechniqueID: id,
		Name:        name,
		Tactics:     []string{"initial-access"},
		Domain:      model.DomainEnterprise,
	}}
}

func chatModel(t *testing.T, app AppModel) chat.Model {
	t.Helper()
	require.NotNil(t, app.agentModel)
	c, ok := app.agentModel.(chat.Model)
	require.True(t, ok, "agentModel is %T", app.agentModel)
	return c
}

func TestTechniqueSelectedMsgRoutedToAgent(t *testing.T) {
	app := withChat(t, newTestApp(t))

	next, _ := app.Update(model.TechniqueSelectedMsg{Technique: technique("T1566", "Phishing")})
	c := chatModel(t, next.(AppModel))
	require.NotNil(t, c.CurrentTechnique())
	assert.Equal(t, "T1566", c.CurrentTechnique().TechniqueID)
}

func TestTechniqueSelectedMsgWithoutAgent(t *testing.T) {
	app := newTestApp(t)
	next, cmd := app.Update(model.TechniqueSelectedMsg{Technique: technique("T1059", "Command and Scripting Interpreter")})
	assert.Nil(t, cmd)
	assert.Nil(t, next.(AppModel).agentModel)
}

func TestTechniqueContextPreservedAcrossAgentInit(t *testing.T) {
	app := newTestApp(t)

	next, _ := app.Update(model.TechniqueSelectedMsg{Technique: technique("T1595", "Active Scanning")})
	app = next.(AppModel)
	require.NotNil(t, app.pendingTechnique)

	app = withChat(t, app)
	next, _ = app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	app = next.(AppModel)

	c := chatModel(t, app)
	require.NotNil(t, c.CurrentTechnique())
	assert.Equal(t, "T1595", c.CurrentTechnique().TechniqueID)
	assert.Contains(t, c.View(), "T1595 Active Scanning")
}

func TestStreamMessagesReachChatWithoutFocus(t *testing.T) {
	app := withChat(t, newTestApp(t))
	require.Equal(t, PanelBrowser, app.focusedPanel)

	// no turn is running, so the done message leaves the history alone
	before := len(chatModel(t, app).Messages())
	next, _ := app.Update(chat.StreamDoneMsg{})
	assert.Len(t, chatModel(t, next.(AppModel)).Messages(), before)

	next, _ = app.Update(chat.StreamErrorMsg{Err: assert.AnError})
	msgs := chatModel(t, next.(AppModel)).Messages()
	assert.True(t, msgs[len(msgs)-1].IsError)
}

func TestToggleAndFocusPanels(t *testing.T) {
	app := withChat(t, newTestApp(t))
	next, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	app = next.(AppModel)

	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = next.(AppModel)
	assert.Equal(t, PanelAgent, app.focusedPanel)

	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'\\'}})
	app = next.(AppModel)
	assert.False(t, app.agentVisible)
	assert.Equal(t, PanelBrowser, app.focusedPanel)

	next, _ = app.Update(tui.OpenAgentMsg{})
	app = next.(AppModel)
	assert.True(t, app.agentVisible)
	assert.Equal(t, PanelAgent, app.focusedPanel)
}

func TestCompactModeHidesAgent(t *testing.T) {
	app := withChat(t, newTestApp(t))
	next, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	app = next.(AppModel)

	assert.True(t, app.compact)
	assert.False(t, app.agentShown())
	assert.NotContains(t, app.View(), "Scout - ATT&CK Analyst")
}

func TestSetupHelpWithoutKey(t *testing.T) {
	app := newTestApp(t)
	next, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	view := next.(AppModel).View()
	assert.Contains(t, view, "GEMINI_API_KEY")
}

func TestAgentInitError(t *testing.T) {
	app := newTestApp(t)
	next, _ := app.Update(agentInitErrorMsg{err: assert.AnError})
	app = next.(AppModel)
	next, _ = app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	assert.Contains(t, next.(AppModel).View(), "Error:")
}

func TestPaletteOpensAndRunsBrowserAction(t *testing.T) {
	app := newTestApp(t)
	next, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	app = next.(AppModel)

	m, err := app.client.Matrix(context.Background(), model.DomainEnterprise, false)
	require.NoError(t, err)
	next, _ = app.Update(tui.MatrixLoadedMsg{Matrix: m})
	app = next.(AppModel)

	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	app = next.(AppModel)
	require.True(t, app.palette.Active)
	assert.Contains(t, app.View(), "Commands")

	next, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("switch matrix")})
	app = next.(AppModel)
	next, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = next.(AppModel)
	require.NotNil(t, cmd)
	assert.False(t, app.palette.Active)

	next, _ = app.Update(cmd())
	app = next.(AppModel)
	assert.Equal(t, model.DomainMobile, app.tuiModel.(tui.Model).Domain())
	assert.Contains(t, app.View(), "Loading Mobile matrix")
}

func TestPaletteLayoutActions(t *testing.T) {
	app := newTestApp(t)
	next, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	app = next.(AppModel)

	next, _ = app.Update(palette.SelectedAction(actionToggleAgent))
	app = next.(AppModel)
	assert.False(t, app.agentVisible)

	next, _ = app.Update(palette.SelectedAction(actionFocusAgent))
	app = next.(AppModel)
	assert.True(t, app.agentVisible)
	assert.Equal(t, PanelAgent, app.focusedPanel)

	_, cmd := app.Update(palette.SelectedAction(actionQuit))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestPaletteCommandsCoverBrowserKeys(t *testing.T) {
	actions := make(map[string]bool)
	for _, c := range paletteCommands() {
		actions[c.Action] = true
		if k, ok := browserKeys[c.Action]; ok {
			assert.Equal(t, k, c.Key, c.Name)
		}
	}
	for action := range browserKeys {
		assert.True(t, actions[action], "no palette entry for %s", action)
	}
}

func TestViewSplitsPanels(t *testing.T) {
	app := withChat(t, newTestApp(t))
	next, _ := app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	view := next.(AppModel).View()

	assert.Contains(t, view, "Loading Enterprise matrix")
	assert.Contains(t, view, "Scout - ATT&CK Analyst")
}
