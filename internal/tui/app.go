package tui

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// ViewState represents the current view
type ViewState int

const (
	ViewTactics ViewState = iota
	ViewTechniques
	ViewDetail
	ViewChartsMenu
	ViewChart
	ViewExportMenu
	ViewExportConfirm
)

// ChartOption represents a chart in the charts menu
type ChartOption struct {
	Name        string
	Description string
	Chart       ChartType
}

// PendingExport holds an export waiting for confirmation
type PendingExport struct {
	Techniques []model.Technique
	Format     ExportFormat
	Scope      ExportScope
	Count      int
}

// domainOrder is the cycle order for the matrix switch key
var domainOrder = []model.Domain{model.DomainEnterprise, model.DomainMobile, model.DomainPreAttack}

func nextDomain(d model.Domain) model.Domain {
	for i, cur := range domainOrder {
		if cur == d {
			return domainOrder[(i+1)%len(domainOrder)]
		}
	}
	return model.DomainEnterprise
}

var citationRe = regexp.MustCompile(`\(Citation:[^)]*\)`)

// markdownCache is shared between model copies so the renderer is built once per width
type markdownCache struct {
	renderer *glamour.TermRenderer
	width    int
}

// Model is the main application model
type Model struct {
	ctx     context.Context
	client  *api.Client
	domain  model.Domain
	matrix  matrix.Matrix
	stats   matrix.Stats
	spinner spinner.Model
	loading bool
	err     error
	width   int
	height  int
	view    ViewState
	// prevView is the list view the menus return to
	prevView ViewState

	tactics    list.Model
	techniques list.Model
	listsReady bool

	activeTactic      string
	platform          string
	selectedTechnique *model.TechniqueItem

	keys          KeyMap
	help          help.Model
	showHelp      bool
	viewport      viewport.Model
	viewportReady bool
	markdown      *markdownCache
	statusMsg     string

	// Charts state
	chartOptions       []ChartOption
	selectedChartIndex int
	activeChart        ChartType
	chartSelection     int

	// Export state
	exportOptions       []ExportOption
	selectedExportIndex int
	pendingExport       *PendingExport
	exportDir           string
}

// Messages
type MatrixLoadedMsg struct {
	Matrix    matrix.Matrix
	Refreshed bool
}

type ErrorMsg struct {
	Err error
}

// OpenAgentMsg asks the host layout to show and focus the agent panel
type OpenAgentMsg struct{}

// NewModel creates the browser for a domain. Matrix loads stop waiting when
// ctx is done. A nil client gets a default one.
func NewModel(ctx context.Context, client *api.Client, domain model.Domain) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = api.NewClient()
	}
	if _, ok := model.ParseDomain(string(domain)); !ok {
		domain = model.DomainEnterprise
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	h := help.New()
	h.ShowAll = false

	chartOptions := make([]ChartOption, 0, len(chartTypes))
	descriptions := map[ChartType]string{
		ChartTactics:       "Techniques in each matrix column",
		ChartPlatforms:     "Most targeted platforms",
		ChartSubtechniques: "Parent techniques and sub-techniques",
		ChartPhases:        "Technique coverage of prepare and act tactics",
	}
	for _, c := range chartTypes {
		chartOptions = append(chartOptions, ChartOption{Name: c.String(), Description: descriptions[c], Chart: c})
	}

	return Model{
		ctx:          ctx,
		client:       client,
		domain:       domain,
		spinner:      s,
		loading:      true,
		keys:         DefaultKeyMap(),
		help:         h,
		markdown:     &markdownCache{},
		exportDir:    ".",
		chartOptions: chartOptions,
		exportOptions: []ExportOption{
			{Name: "JSON (Current View)", Format: ExportJSON, Scope: ExportCurrentView},
			{Name: "JSON (Full Matrix)", Format: ExportJSON, Scope: ExportFullMatrix},
			{Name: "CSV (Current View)", Format: ExportCSV, Scope: ExportCurrentView},
			{Name: "CSV (Full Matrix)", Format: ExportCSV, Scope: ExportFullMatrix},
			{Name: "Markdown (Full Matrix)", Format: ExportMarkdown, Scope: ExportFullMatrix},
			{Name: "YAML (Full Matrix)", Format: ExportYAML, Scope: ExportFullMatrix},
			{Name: "Navigator Layer (Current View)", Format: ExportLayer, Scope: ExportCurrentView},
		},
	}
}

// SetExportDir changes where exports are written
func (m *Model) SetExportDir(dir string) {
	if dir != "" {
		m.exportDir = dir
	}
}

// Domain returns the matrix being browsed
func (m Model) Domain() model.Domain {
	return m.domain
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchMatrix(false))
}

func (m Model) fetchMatrix(refresh bool) tea.Cmd {
	ctx, client, domain := m.ctx, m.client, m.domain
	return func() tea.Msg {
		mx, err := client.Matrix(ctx, domain, refresh)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return MatrixLoadedMsg{Matrix: mx, Refreshed: refresh}
	}
}

func selectTechnique(item *model.TechniqueItem) tea.Cmd {
	return func() tea.Msg { return model.TechniqueSelectedMsg{Technique: item} }
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear status message on any key press
		m.statusMsg = ""

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+k":
			return m, func() tea.Msg { return OpenAgentMsg{} }
		}

		if m.loading || m.err != nil {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "r":
				if m.err != nil {
					m.err = nil
					m.loading = true
					return m, tea.Batch(m.spinner.Tick, m.fetchMatrix(true))
				}
			}
			return m, nil
		}

		if m.isFiltering() {
			return m.updateActiveList(msg)
		}

		if msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}

		switch m.view {
		case ViewTactics:
			return m.updateTactics(msg)
		case ViewTechniques:
			return m.updateTechniques(msg)
		case ViewDetail:
			return m.updateDetail(msg)
		case ViewChartsMenu:
			return m.updateChartsMenu(msg)
		case ViewChart:
			return m.updateChart(msg)
		case ViewExportMenu:
			return m.updateExportMenu(msg)
		case ViewExportConfirm:
			return m.updateExportConfirm(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeLists()
		if m.viewportReady {
			m.viewport.Width = max(msg.Width-4, 20)
			m.viewport.Height = max(msg.Height-6, 5)
			if m.selectedTechnique != nil {
				m.viewport.SetContent(m.renderDetailContent())
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case MatrixLoadedMsg:
		// A switch may have happened while this fetch was in flight
		if msg.Matrix.Domain != m.domain {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.matrix = msg.Matrix
		m.stats = msg.Matrix.Stats()
		if m.platform != "" && !containsFold(m.matrix.Platforms(), m.platform) {
			m.platform = ""
		}
		if _, ok := m.matrix.Column(m.activeTactic); !ok {
			m.activeTactic = ""
		}
		m.rebuildLists()
		if msg.Refreshed {
			m.statusMsg = fmt.Sprintf("Refreshed %s: %d techniques", m.domain, m.stats.Techniques)
		}
		return m, nil

	case ErrorMsg:
		m.loading = false
		m.err = msg.Err
		return m, nil
	}

	if !m.loading && m.listsReady && (m.view == ViewTactics || m.view == ViewTechniques) {
		return m.updateActiveList(msg)
	}

	return m, nil
}

func (m Model) isFiltering() bool {
	if !m.listsReady {
		return false
	}
	switch m.view {
	case ViewTactics:
		return m.tactics.FilterState() == list.Filtering
	case ViewTechniques:
		return m.techniques.FilterState() == list.Filtering
	}
	return false
}

func (m Model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.listsReady {
		return m, nil
	}
	var cmd tea.Cmd
	if m.view == ViewTechniques {
		m.techniques, cmd = m.techniques.Update(msg)
	} else {
		m.tactics, cmd = m.tactics.Update(msg)
	}
	return m, cmd
}

// handleCommonKey covers keys shared by the two list views
func (m Model) handleCommonKey(key string) (Model, tea.Cmd, bool) {
	switch key {
	case "p":
		m.cyclePlatform()
		return m, nil, true
	case "m":
		m.domain = nextDomain(m.domain)
		m.loading = true
		m.view = ViewTactics
		m.activeTactic = ""
		m.platform = ""
		return m, tea.Batch(m.spinner.Tick, m.fetchMatrix(false)), true
	case "r":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchMatrix(true)), true
	case "g":
		m.prevView = m.view
		m.selectedChartIndex = 0
		m.view = ViewChartsMenu
		return m, nil, true
	case "x":
		m.prevView = m.view
		m.selectedExportIndex = 0
		m.view = ViewExportMenu
		return m, nil, true
	case "t":
		name := CycleTheme()
		m.applyTheme()
		m.statusMsg = fmt.Sprintf("Theme: %s", name)
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) updateTactics(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleCommonKey(msg.String()); ok {
		return next, cmd
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		if item, ok := m.tactics.SelectedItem().(model.TacticItem); ok {
			m.activeTactic = item.ShortName
			m.rebuildTechniques()
			m.techniques.Select(0)
			m.view = ViewTechniques
		}
		return m, nil
	case "a":
		m.activeTactic = ""
		m.rebuildTechniques()
		m.techniques.Select(0)
		m.view = ViewTechniques
		return m, nil
	case "G", "end":
		if n := len(m.tactics.Items()); n > 0 {
			m.tactics.Select(n - 1)
		}
		return m, nil
	case "home":
		m.tactics.Select(0)
		return m, nil
	}
	return m.updateActiveList(msg)
}

func (m Model) updateTechniques(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleCommonKey(msg.String()); ok {
		return next, cmd
	}
	switch msg.String() {
	case "q", "esc", "backspace":
		if m.techniques.FilterState() == list.FilterApplied && msg.String() == "esc" {
			return m.updateActiveList(msg)
		}
		m.view = ViewTactics
		return m, nil
	case "enter":
		if item, ok := m.techniques.SelectedItem().(model.TechniqueItem); ok {
			m.selectedTechnique = &item
			m.view = ViewDetail
			m.viewport = viewport.New(max(m.width-4, 20), max(m.height-6, 5))
			m.viewport.SetContent(m.renderDetailContent())
			m.viewportReady = true
			return m, selectTechnique(&item)
		}
		return m, nil
	case "o":
		if item, ok := m.techniques.SelectedItem().(model.TechniqueItem); ok && item.URL != "" {
			openURL(item.URL)
			m.statusMsg = "Opening in browser..."
		}
		return m, nil
	case "c":
		if item, ok := m.techniques.SelectedItem().(model.TechniqueItem); ok {
			CopyToClipboard(item.TechniqueID)
			m.statusMsg = fmt.Sprintf("Copied: %s", item.TechniqueID)
		}
		return m, nil
	case "G", "end":
		if n := len(m.techniques.Items()); n > 0 {
			m.techniques.Select(n - 1)
		}
		return m, nil
	case "home":
		m.techniques.Select(0)
		return m, nil
	}
	return m.updateActiveList(msg)
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "backspace":
		m.view = ViewTechniques
		m.selectedTechnique = nil
		return m, selectTechnique(nil)
	case "o":
		if m.selectedTechnique != nil && m.selectedTechnique.URL != "" {
			openURL(m.selectedTechnique.URL)
			m.statusMsg = "Opening ATT&CK..."
		}
		return m, nil
	case "c":
		if m.selectedTechnique != nil {
			CopyToClipboard(m.selectedTechnique.TechniqueID)
			m.statusMsg = fmt.Sprintf("Copied: %s", m.selectedTechnique.TechniqueID)
		}
		return m, nil
	}
	if m.viewportReady {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateChartsMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "g", "backspace":
		m.view = m.prevView
	case "j", "down":
		m.selectedChartIndex = (m.selectedChartIndex + 1) % len(m.chartOptions)
	case "k", "up":
		m.selectedChartIndex = (m.selectedChartIndex - 1 + len(m.chartOptions)) % len(m.chartOptions)
	case "enter":
		m.activeChart = m.chartOptions[m.selectedChartIndex].Chart
		m.chartSelection = 0
		m.view = ViewChart
	}
	return m, nil
}

func (m Model) updateChart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "g", "backspace":
		m.view = ViewChartsMenu
		return m, nil
	}
	if m.activeChart != ChartTactics || len(m.matrix.Columns) == 0 {
		return m, nil
	}
	n := len(m.matrix.Columns)
	switch msg.String() {
	case "j", "down":
		m.chartSelection = (m.chartSelection + 1) % n
	case "k", "up":
		m.chartSelection = (m.chartSelection - 1 + n) % n
	case "enter":
		col := m.matrix.Columns[m.chartSelection]
		m.activeTactic = col.Tactic
		m.rebuildTechniques()
		m.techniques.Select(0)
		m.view = ViewTechniques
		m.statusMsg = fmt.Sprintf("Filtered: %s (%d techniques)", m.matrix.TacticName(col.Tactic), len(m.techniques.Items()))
	}
	return m, nil
}

func (m Model) updateExportMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "x", "backspace":
		m.view = m.prevView
	case "j", "down":
		m.selectedExportIndex = (m.selectedExportIndex + 1) % len(m.exportOptions)
	case "k", "up":
		m.selectedExportIndex = (m.selectedExportIndex - 1 + len(m.exportOptions)) % len(m.exportOptions)
	case "enter":
		opt := m.exportOptions[m.selectedExportIndex]
		techs := m.matrix.Techniques
		if opt.Scope == ExportCurrentView {
			techs = m.currentTechniques()
		}
		m.pendingExport = &PendingExport{
			Techniques: techs,
			Format:     opt.Format,
			Scope:      opt.Scope,
			Count:      len(techs),
		}
		m.view = ViewExportConfirm
	}
	return m, nil
}

func (m Model) updateExportConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		p := m.pendingExport
		m.pendingExport = nil
		if p == nil {
			m.view = m.prevView
			return m, nil
		}
		result := Export(m.matrix, p.Techniques, p.Format, m.exportDir)
		if result.Err != nil {
			m.statusMsg = fmt.Sprintf("Export failed: %v", result.Err)
		} else {
			m.statusMsg = fmt.Sprintf("Exported %d techniques to %s", result.Count, result.FilePath)
		}
		m.view = m.prevView
	case "n", "N", "esc", "q", "backspace":
		m.pendingExport = nil
		m.view = ViewExportMenu
	}
	return m, nil
}

// currentTechniques returns what the user is looking at: the visible
// technique list, or the platform-filtered matrix from the tactic view.
func (m Model) currentTechniques() []model.Technique {
	if m.prevView == ViewTechniques && m.listsReady {
		items := m.techniques.VisibleItems()
		techs := make([]model.Technique, 0, len(items))
		for _, item := range items {
			if ti, ok := item.(model.TechniqueItem); ok {
				techs = append(techs, ti.Technique)
			}
		}
		return techs
	}
	return m.matrix.Filter("", m.platform, "")
}

func (m *Model) cyclePlatform() {
	platforms := m.matrix.Platforms()
	if len(platforms) == 0 {
		m.platform = ""
		return
	}
	next := platforms[0]
	if m.platform != "" {
		next = ""
		for i, p := range platforms {
			if p == m.platform && i+1 < len(platforms) {
				next = platforms[i+1]
			}
		}
	}
	m.platform = next
	m.rebuildLists()
	if next == "" {
		m.statusMsg = "Platform filter cleared"
	} else {
		m.statusMsg = fmt.Sprintf("Platform: %s", next)
	}
}

func (m *Model) listHeight() int {
	headerHeight := 3 // stats + filters
	footerHeight := 2 // help
	h := m.height - headerHeight - footerHeight
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) resizeLists() {
	if !m.listsReady {
		return
	}
	m.tactics.SetSize(m.width, m.listHeight())
	m.techniques.SetSize(m.width, m.listHeight())
}

func newList(items []list.Item, width, height int) list.Model {
	l := list.New(items, NewMatrixDelegate(), width, height)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle
	// Exact substring matching
	l.Filter = func(term string, targets []string) []list.Rank {
		var ranks []list.Rank
		term = strings.ToLower(term)
		for i, target := range targets {
			if strings.Contains(strings.ToLower(target), term) {
				ranks = append(ranks, list.Rank{Index: i})
			}
		}
		return ranks
	}
	return l
}

func (m *Model) rebuildLists() {
	var items []list.Item
	for _, col := range m.matrix.Columns {
		count := len(col.Techniques)
		if m.platform != "" {
			count = len(m.matrix.Filter(col.Tactic, m.platform, ""))
		}
		items = append(items, model.TacticItem{ShortName: col.Tactic, Phase: col.Phase, Count: count})
	}

	if !m.listsReady {
		m.tactics = newList(items, m.width, m.listHeight())
		m.techniques = newList(nil, m.width, m.listHeight())
		m.listsReady = true
	} else {
		m.tactics.SetItems(items)
	}
	m.tactics.Title = fmt.Sprintf("MITRE ATT&CK %s", m.domain)
	m.rebuildTechniques()
}

func (m *Model) rebuildTechniques() {
	techs := m.matrix.Filter(m.activeTactic, m.platform, "")
	items := make([]list.Item, len(techs))
	for i, t := range techs {
		items[i] = model.TechniqueItem{Technique: t}
	}
	m.techniques.SetItems(items)
	if m.activeTactic == "" {
		m.techniques.Title = "All Techniques"
	} else {
		m.techniques.Title = m.matrix.TacticName(m.activeTactic)
	}
}

func (m *Model) applyTheme() {
	m.spinner.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	if !m.listsReady {
		return
	}
	for _, l := range []*list.Model{&m.tactics, &m.techniques} {
		l.SetDelegate(NewMatrixDelegate())
		l.Styles.Title = TitleStyle
	}
}

// View renders the view
func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("\n  %s %v\n\n  Press r to retry or q to quit.\n", ErrorStyle.Render("Error:"), m.err)
	}

	if m.loading {
		return fmt.Sprintf("\n  %s Loading %s matrix...\n", m.spinner.View(), m.domain)
	}

	switch m.view {
	case ViewDetail:
		if m.selectedTechnique != nil {
			return m.renderDetailView()
		}
	case ViewChartsMenu:
		return m.renderChartsMenu()
	case ViewChart:
		return RenderChart(m.activeChart, m.matrix, m.width, m.height, m.chartSelection)
	case ViewExportMenu:
		return m.renderExportMenu()
	case ViewExportConfirm:
		return m.renderExportConfirm()
	}

	return m.renderListView()
}

func menuTitle(s string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(ForegroundColor).
		Background(PrimaryColor).
		Padding(0, 1).
		Render(s)
}

func menuLine(b *strings.Builder, name string, selected bool) {
	if selected {
		selectedStyle := lipgloss.NewStyle().
			Bold(true).
			Foreground(ForegroundColor).
			Background(PrimaryColor).
			Padding(0, 1)
		b.WriteString(selectedStyle.Render(fmt.Sprintf("> %s", name)))
	} else {
		b.WriteString(fmt.Sprintf("  %s", name))
	}
	b.WriteString("\n")
}

func (m Model) renderExportMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(menuTitle("Export Report"))
	b.WriteString("\n\n")

	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Current view: %d techniques | Full matrix: %d techniques",
		len(m.currentTechniques()), len(m.matrix.Techniques))))
	b.WriteString("\n\n")

	for i, opt := range m.exportOptions {
		menuLine(&b, opt.Name, i == m.selectedExportIndex)
	}

	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("j/k navigate • enter export • x/esc back"))

	return b.String()
}

func (m Model) renderExportConfirm() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(menuTitle("Confirm Export"))
	b.WriteString("\n\n")

	if p := m.pendingExport; p != nil {
		noun := "techniques"
		if p.Count == 1 {
			noun = "technique"
		}
		b.WriteString(ValueStyle.Render(fmt.Sprintf("Export %d %s as %s (%s)", p.Count, noun, p.Format, p.Scope)))
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Destination: %s", m.exportDir)))
		b.WriteString("\n\n")
	}

	b.WriteString(SubtitleStyle.Render("y/enter confirm • n/esc cancel"))
	return b.String()
}

func (m Model) renderChartsMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(menuTitle("Charts & Graphs"))
	b.WriteString("\n\n")

	for i, opt := range m.chartOptions {
		menuLine(&b, opt.Name, i == m.selectedChartIndex)
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("    %s", opt.Description)))
		b.WriteString("\n\n")
	}

	b.WriteString(SubtitleStyle.Render("j/k navigate • enter select • g/esc back"))

	return b.String()
}

func (m Model) renderListView() string {
	var b strings.Builder

	stats := fmt.Sprintf("%s %s %d techniques | %d sub-techniques | %d tactics",
		DomainBadge(m.domain),
		StatHighlight.Render(""),
		m.stats.Techniques,
		m.stats.Subtechniques,
		m.stats.Tactics,
	)
	b.WriteString(StatsStyle.Render(stats))
	b.WriteString("\n")

	var indicators []string
	if m.view == ViewTechniques && m.activeTactic != "" {
		indicators = append(indicators, fmt.Sprintf("Tactic: %s", m.matrix.TacticName(m.activeTactic)))
	}
	if m.platform != "" {
		indicators = append(indicators, PlatformStyle.Render(fmt.Sprintf("Platform: %s", m.platform)))
	}
	if len(indicators) == 0 {
		indicators = append(indicators, "No filters")
	}
	b.WriteString(SubtitleStyle.Render(strings.Join(indicators, " | ")))
	b.WriteString("\n")

	if m.listsReady {
		if m.view == ViewTechniques {
			b.WriteString(m.techniques.View())
		} else {
			b.WriteString(m.tactics.View())
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(m.statusMsg))
	}

	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.help.View(m.keys))
	} else {
		helpText := "/ filter • enter open • a all • p platform • m matrix • r refresh • g graphs • x export • q quit"
		if m.view == ViewTechniques {
			helpText = "/ filter • enter details • o open • c copy • p platform • g graphs • x export • esc back"
		}
		b.WriteString(SubtitleStyle.Render(helpText))
	}

	return b.String()
}

func (m Model) renderDetailView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(TechniqueIDBadge.Render(m.selectedTechnique.TechniqueID))
	if m.selectedTechnique.IsSubtechnique {
		b.WriteString("  ")
		b.WriteString(SubtechniqueBadge())
	}
	for _, tactic := range m.selectedTechnique.Tactics {
		if col, ok := m.matrix.Column(tactic); ok && col.Phase != "" {
			b.WriteString("  ")
			b.WriteString(PhaseBadge(col.Phase))
			break
		}
	}
	b.WriteString("\n\n")

	if m.viewportReady {
		b.WriteString(m.viewport.View())
	}

	b.WriteString("\n")
	footer := "↑/↓ scroll | o open ATT&CK | c copy ID | q/esc back"
	if m.statusMsg != "" {
		footer = m.statusMsg + " | " + footer
	}
	b.WriteString(SubtitleStyle.Render(footer))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderDetailContent() string {
	t := m.selectedTechnique
	if t == nil {
		return "No technique selected"
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ForegroundColor).Render(t.Name))
	b.WriteString("\n\n")

	tactics := make([]string, len(t.Tactics))
	for i, tactic := range t.Tactics {
		tactics[i] = m.matrix.TacticName(tactic)
	}
	subtech := "no"
	if t.IsSubtechnique {
		subtech = "yes"
	}
	rows := [][]string{
		{"ID", t.TechniqueID},
		{"Domain", t.Domain.String()},
		{"Tactics", strings.Join(tactics, ", ")},
		{"Platforms", strings.Join(t.Platforms, ", ")},
		{"Sub-technique", subtech},
		{"STIX ID", t.ID},
		{"URL", t.URL},
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(SubtleColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return LabelStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})
	for _, r := range rows {
		if r[1] != "" {
			tbl.Row(r...)
		}
	}
	b.WriteString(tbl.String())
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).Render("Description"))
	b.WriteString("\n")
	b.WriteString(m.renderMarkdown(t.Technique.Description))

	return b.String()
}

// renderMarkdown renders a STIX description with glamour, dropping citation markers
func (m Model) renderMarkdown(content string) string {
	content = strings.TrimSpace(citationRe.ReplaceAllString(content, ""))
	if content == "" {
		return SubtitleStyle.Render("No description")
	}
	wrap := m.width - 8
	if wrap < 40 {
		wrap = 80
	}
	cache := m.markdown
	if cache == nil {
		cache = &markdownCache{}
	}
	if cache.renderer == nil || cache.width != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return lipgloss.NewStyle().Width(wrap).Render(content)
		}
		cache.renderer, cache.width = r, wrap
	}
	out, err := cache.renderer.Render(content)
	if err != nil {
		return lipgloss.NewStyle().Width(wrap).Render(content)
	}
	return strings.TrimRight(out, "\n")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Helper functions
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Start()
}

// CopyToClipboard writes text to the system clipboard when a clipboard tool is available
func CopyToClipboard(text string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		return
	}
	cmd.Stdin = strings.NewReader(text)
	_ = cmd.Run()
}
