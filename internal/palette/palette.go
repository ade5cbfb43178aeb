// Package palette is the ctrl+p command launcher drawn over the main view.
package palette

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

const maxVisible = 12

// Command represents a single command in the palette
type Command struct {
	Name   string // Display name
	Key    string // Keyboard shortcut
	Action string // Action identifier returned when selected
}

// SelectedAction is emitted with the Action of the chosen command
type SelectedAction string

type styles struct {
	header, frame, selected lipgloss.Style
	normal, shortcut, hint  lipgloss.Style
}

// newStyles reads the active theme, so a theme switch shows on the next render
func newStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(tui.ForegroundColor).Background(tui.PrimaryColor),
		frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(tui.PrimaryColor),
		selected: lipgloss.NewStyle().Background(tui.SubTechColor).Foreground(tui.ForegroundColor).Bold(true),
		normal:   lipgloss.NewStyle().Foreground(tui.ForegroundColor),
		shortcut: lipgloss.NewStyle().Foreground(tui.SubtleColor),
		hint:     lipgloss.NewStyle().Foreground(tui.SubtleColor),
	}
}

// Model is the command palette model
type Model struct {
	commands  []Command
	filtered  []Command
	textInput textinput.Model
	selected  int
	offset    int
	Active    bool
	width     int
	height    int
}

// New creates a new command palette with the given commands
func New(commands []Command) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter"
	ti.Prompt = "> "
	ti.CharLimit = 50

	return Model{
		commands:  commands,
		filtered:  commands,
		textInput: ti,
		width:     60,
		height:    20,
	}
}

// SetSize sets the palette dimensions
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.textInput.Width = max(width-6, 10)
}

// Open activates the palette with an empty filter
func (m *Model) Open() {
	m.Active = true
	m.textInput.Reset()
	m.textInput.Focus()
	m.filtered = m.commands
	m.selected = 0
	m.offset = 0
}

// Close deactivates the palette
func (m *Model) Close() {
	m.Active = false
	m.textInput.Blur()
}

// Filtered returns the commands matching the current filter
func (m Model) Filtered() []Command {
	return m.filtered
}

// Selected returns the highlighted command, if any
func (m Model) Selected() (Command, bool) {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		return Command{}, false
	}
	return m.filtered[m.selected], true
}

// Update handles messages for the palette
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.Active {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "ctrl+c", "ctrl+p":
			m.Close()
			return m, nil

		case "enter":
			cmd, ok := m.Selected()
			if !ok {
				return m, nil
			}
			m.Close()
			return m, func() tea.Msg { return SelectedAction(cmd.Action) }

		case "up", "ctrl+k":
			m.move(-1)
			return m, nil

		case "down", "ctrl+j", "tab":
			m.move(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	m.filterCommands()
	return m, cmd
}

// move shifts the selection, wrapping at both ends
func (m *Model) move(delta int) {
	n := len(m.filtered)
	if n == 0 {
		return
	}
	m.selected = (m.selected + delta + n) % n
	switch {
	case m.selected < m.offset:
		m.offset = m.selected
	case m.selected >= m.offset+maxVisible:
		m.offset = m.selected - maxVisible + 1
	}
}

// filterCommands keeps commands whose name or shortcut contains every word of the input
func (m *Model) filterCommands() {
	words := strings.Fields(strings.ToLower(m.textInput.Value()))

	if len(words) == 0 {
		m.filtered = m.commands
	} else {
		var filtered []Command
		for _, cmd := range m.commands {
			hay := strings.ToLower(cmd.Name + " " + cmd.Key)
			match := true
			for _, w := range words {
				if !strings.Contains(hay, w) {
					match = false
					break
				}
			}
			if match {
				filtered = append(filtered, cmd)
			}
		}
		m.filtered = filtered
	}

	m.selected = min(m.selected, max(len(m.filtered)-1, 0))
	m.offset = 0
	if m.selected >= maxVisible {
		m.offset = m.selected - maxVisible + 1
	}
}

// View renders the palette box
func (m Model) View() string {
	if !m.Active {
		return ""
	}
	st := newStyles()
	contentWidth := m.width - 2

	title := " Commands "
	stripe := strings.Repeat("/", max((contentWidth-len(title))/2, 0))
	lines := []string{
		st.header.Width(contentWidth).Render(stripe + title + stripe),
		" " + m.textInput.View(),
		"",
	}

	if len(m.filtered) == 0 {
		lines = append(lines, st.hint.Render("  No matching commands"))
	}
	end := min(m.offset+maxVisible, len(m.filtered))
	nameWidth := max(contentWidth-12, 1)
	for i := m.offset; i < end; i++ {
		cmd := m.filtered[i]
		name := fmt.Sprintf("%-*s", nameWidth, ansi.Truncate(cmd.Name, nameWidth, "..."))
		if i == m.selected {
			lines = append(lines, st.selected.Width(contentWidth).Render(name+cmd.Key))
			continue
		}
		lines = append(lines, st.normal.Render(name)+st.shortcut.Render(cmd.Key))
	}

	lines = append(lines, "", st.hint.Render("↑↓ choose • enter confirm • esc cancel"))
	return st.frame.Width(m.width).Render(strings.Join(lines, "\n"))
}

// Overlay renders the palette centered over the given background content
func (m Model) Overlay(background string, termWidth, termHeight int) string {
	if !m.Active {
		return background
	}

	box := m.View()
	boxWidth := lipgloss.Width(box)
	x := max((termWidth-boxWidth)/2, 0)
	y := max((termHeight-lipgloss.Height(box))/3, 0)

	bgLines := strings.Split(background, "\n")
	for len(bgLines) < termHeight {
		bgLines = append(bgLines, "")
	}

	for i, line := range strings.Split(box, "\n") {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bg := bgLines[row]
		if w := ansi.StringWidth(bg); w < x+boxWidth {
			bg += strings.Repeat(" ", x+boxWidth-w)
		}
		left := ansi.Truncate(bg, x, "")
		right := ansi.TruncateLeft(bg, x+lipgloss.Width(line), "")
		bgLines[row] = left + line + right
	}

	return strings.Join(bgLines, "\n")
}
