package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m, cmd
}

// loadedModel returns a browser with the test matrix already loaded.
func loadedModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(context.Background(), nil, model.DomainEnterprise)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	next, _ = next.Update(MatrixLoadedMsg{Matrix: testMatrix()})
	return next.(Model)
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(context.Background(), nil, "bogus")
	assert.Equal(t, model.DomainEnterprise, m.domain)
	assert.True(t, m.loading)
	assert.Len(t, m.chartOptions, len(chartTypes))
	assert.Contains(t, m.View(), "Loading Enterprise matrix")
}

func TestNextDomain(t *testing.T) {
	assert.Equal(t, model.DomainMobile, nextDomain(model.DomainEnterprise))
	assert.Equal(t, model.DomainPreAttack, nextDomain(model.DomainMobile))
	assert.Equal(t, model.DomainEnterprise, nextDomain(model.DomainPreAttack))
	assert.Equal(t, model.DomainEnterprise, nextDomain("unknown"))
}

func TestMatrixLoadedBuildsTacticList(t *testing.T) {
	m := loadedModel(t)

	require.False(t, m.loading)
	require.True(t, m.listsReady)
	items := m.tactics.Items()
	require.Len(t, items, 3)

	var names []string
	for _, it := range items {
		names = append(names, it.(model.TacticItem).ShortName)
	}
	assert.Equal(t, []string{"reconnaissance", "initial-access", "execution"}, names)
	assert.Equal(t, 2, items[2].(model.TacticItem).Count)
	assert.Equal(t, model.PhasePrepare, items[0].(model.TacticItem).Phase)

	view := m.View()
	assert.Contains(t, view, "4 techniques")
	assert.Contains(t, view, "1 sub-techniques")
}

func TestStaleMatrixIgnored(t *testing.T) {
	m := NewModel(context.Background(), nil, model.DomainMobile)
	next, _ := m.Update(MatrixLoadedMsg{Matrix: testMatrix()})
	got := next.(Model)
	assert.True(t, got.loading, "enterprise result must not satisfy a mobile load")
	assert.False(t, got.listsReady)
}

func TestEnterTacticShowsTechniques(t *testing.T) {
	m := loadedModel(t)
	m.tactics.Select(2)

	m, _ = press(t, m, "enter")

	assert.Equal(t, ViewTechniques, m.view)
	assert.Equal(t, "execution", m.activeTactic)
	require.Len(t, m.techniques.Items(), 2)
	assert.Equal(t, "T1059", m.techniques.Items()[0].(model.TechniqueItem).TechniqueID)

	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewTactics, m.view)
}

func TestAllTechniques(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(t, m, "a")
	assert.Equal(t, ViewTechniques, m.view)
	assert.Empty(t, m.activeTactic)
	assert.Len(t, m.techniques.Items(), 4)
}

func TestPlatformCycle(t *testing.T) {
	m := loadedModel(t)
	// Platforms are sorted: Linux, Windows
	m, _ = press(t, m, "p")
	assert.Equal(t, "Linux", m.platform)
	m, _ = press(t, m, "p")
	assert.Equal(t, "Windows", m.platform)
	m, _ = press(t, m, "p")
	assert.Empty(t, m.platform)
}

func TestDomainSwitchStartsLoading(t *testing.T) {
	m := loadedModel(t)
	m, cmd := press(t, m, "m")
	assert.True(t, m.loading)
	assert.Equal(t, model.DomainMobile, m.domain)
	assert.NotNil(t, cmd)
}

func TestEnterDetailSendsTechniqueSelected(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(t, m, "a")
	m.techniques.Select(0)

	m, cmd := press(t, m, "enter")
	require.Equal(t, ViewDetail, m.view)
	require.NotNil(t, m.selectedTechnique)
	require.NotNil(t, cmd)

	msg, ok := cmd().(model.TechniqueSelectedMsg)
	require.True(t, ok)
	require.NotNil(t, msg.Technique)
	assert.Equal(t, m.selectedTechnique.TechniqueID, msg.Technique.TechniqueID)
}

func TestExitDetailViewSendsTechniqueSelectedNil(t *testing.T) {
	m := loadedModel(t)
	m.view = ViewDetail
	m.selectedTechnique = &model.TechniqueItem{Technique: testTechnique("T1566", "Phishing", false, "initial-access")}

	m, cmd := press(t, m, "esc")

	assert.Equal(t, ViewTechniques, m.view)
	assert.Nil(t, m.selectedTechnique)
	require.NotNil(t, cmd)
	msg, ok := cmd().(model.TechniqueSelectedMsg)
	require.True(t, ok, "expected TechniqueSelectedMsg")
	assert.Nil(t, msg.Technique)
}

func TestRenderDetailContentNilTechnique(t *testing.T) {
	m := NewModel(context.Background(), nil, model.DomainEnterprise)
	assert.Equal(t, "No technique selected", m.renderDetailContent())
}

func TestRenderDetailContentWithTable(t *testing.T) {
	m := loadedModel(t)
	tech := testTechnique("T1059.001", "PowerShell", true, "execution")
	tech.Description = "Adversaries may abuse PowerShell. (Citation: TechNet PowerShell)"
	m.selectedTechnique = &model.TechniqueItem{Technique: tech}

	out := m.renderDetailContent()

	assert.True(t, strings.Contains(out, "╭") && strings.Contains(out, "╮"), "table border missing")
	assert.Contains(t, out, "T1059.001")
	assert.Contains(t, out, "Windows, Linux")
	assert.Contains(t, out, "Execution")
	assert.Contains(t, out, "yes")
	assert.NotContains(t, out, "Citation:")
}

func TestChartTacticSelectionFilters(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(t, m, "g")
	require.Equal(t, ViewChartsMenu, m.view)

	m, _ = press(t, m, "enter")
	require.Equal(t, ViewChart, m.view)
	assert.Equal(t, ChartTactics, m.activeChart)

	m, _ = press(t, m, "j", "enter")
	assert.Equal(t, ViewTechniques, m.view)
	assert.Equal(t, "initial-access", m.activeTactic)
	assert.Contains(t, m.statusMsg, "Initial Access")
}

func TestChartsMenuReturnsToPreviousView(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(t, m, "a", "g")
	require.Equal(t, ViewChartsMenu, m.view)
	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewTechniques, m.view)
}

func TestRenderExportConfirm(t *testing.T) {
	m := NewModel(context.Background(), nil, model.DomainEnterprise)
	m.pendingExport = &PendingExport{
		Techniques: []model.Technique{testTechnique("T1566", "Phishing", false, "initial-access")},
		Format:     ExportJSON,
		Count:      1,
	}

	out := m.renderExportConfirm()
	assert.Contains(t, out, "Confirm Export")
	assert.Contains(t, out, "1 technique ")
	assert.Contains(t, out, "JSON")
}

func TestExportFlow(t *testing.T) {
	dir := t.TempDir()
	m := loadedModel(t)
	m.SetExportDir(dir)

	// Full matrix JSON is the second option
	m, _ = press(t, m, "x", "j", "enter")
	require.Equal(t, ViewExportConfirm, m.view)
	require.NotNil(t, m.pendingExport)
	assert.Equal(t, 4, m.pendingExport.Count)
	assert.Equal(t, ExportFullMatrix, m.pendingExport.Scope)

	m, _ = press(t, m, "y")
	assert.Equal(t, ViewTactics, m.view)
	assert.Nil(t, m.pendingExport)
	assert.Contains(t, m.statusMsg, "Exported 4 techniques")

	files, err := filepath.Glob(filepath.Join(dir, "attack_enterprise_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "T1566")
}

func TestExportCancel(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(t, m, "x", "enter")
	require.Equal(t, ViewExportConfirm, m.view)
	m, _ = press(t, m, "n")
	assert.Equal(t, ViewExportMenu, m.view)
	assert.Nil(t, m.pendingExport)
}

func TestCurrentViewUsesPlatformFilter(t *testing.T) {
	m := loadedModel(t)
	m.matrix.Techniques[0].Platforms = []string{"macOS"}
	m.platform = "Windows"
	m.prevView = ViewTactics
	assert.Len(t, m.currentTechniques(), 3)
}

func TestErrorViewAndRetry(t *testing.T) {
	m := NewModel(context.Background(), nil, model.DomainEnterprise)
	next, _ := m.Update(ErrorMsg{Err: assert.AnError})
	m = next.(Model)
	assert.Contains(t, m.View(), "Press r to retry")

	m, cmd := press(t, m, "r")
	assert.True(t, m.loading)
	assert.Nil(t, m.err)
	assert.NotNil(t, cmd)
}

func TestCtrlKOpensAgent(t *testing.T) {
	m := loadedModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	require.NotNil(t, cmd)
	_, ok := cmd().(OpenAgentMsg)
	assert.True(t, ok)
}

func TestFetchMatrixStopsWithContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := api.NewClient()
	client.SetURLs(srv.URL+"/enterprise.json", srv.URL+"/pre.json", srv.URL+"/mobile.json", srv.URL+"/tactics.json")

	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(ctx, client, model.DomainEnterprise)
	cancel()

	msg := m.fetchMatrix(false)()
	errMsg, ok := msg.(ErrorMsg)
	require.True(t, ok, "got %T", msg)
	assert.ErrorIs(t, errMsg.Err, context.Canceled)
}
