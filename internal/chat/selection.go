package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

// position is a line/column in the viewport content
type position struct {
	line, col int
}

func (p position) before(o position) bool {
	return p.line < o.line || (p.line == o.line && p.col <= o.col)
}

// selection is a mouse-dragged range over the viewport content
type selection struct {
	dragging   bool
	start, end position
}

func (s selection) active() bool {
	return s.start != s.end
}

// ordered returns the range with start before end
func (s selection) ordered() (position, position) {
	if s.start.before(s.end) {
		return s.start, s.end
	}
	return s.end, s.start
}

// highlight applies selection styling to content, leaving ANSI sequences intact
func (s selection) highlight(content string) string {
	style := lipgloss.NewStyle().Background(tui.SubTechColor).Foreground(tui.ForegroundColor)
	lines := strings.Split(content, "\n")
	from, to := s.ordered()

	for i := from.line; i <= to.line && i < len(lines); i++ {
		lo, hi := 0, visibleLength(lines[i])
		if i == from.line {
			lo = from.col
		}
		if i == to.line {
			hi = to.col
		}
		lines[i] = highlightRange(lines[i], lo, hi, style)
	}
	return strings.Join(lines, "\n")
}

// text returns the selected characters with ANSI sequences removed
func (s selection) text(content string) string {
	lines := strings.Split(content, "\n")
	from, to := s.ordered()

	var out []string
	for i := from.line; i <= to.line && i < len(lines); i++ {
		plain := []rune(stripANSI(lines[i]))
		lo, hi := 0, len(plain)
		if i == from.line {
			lo = min(from.col, len(plain))
		}
		if i == to.line {
			hi = min(to.col, len(plain))
		}
		if lo > hi {
			lo = hi
		}
		out = append(out, string(plain[lo:hi]))
	}
	return strings.Join(out, "\n")
}

// updateMouse scrolls on the wheel and tracks click-drag selection
func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		m.sel = selection{}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		p := m.screenToContent(msg.X, msg.Y)
		m.sel = selection{dragging: true, start: p, end: p}
		m.updateViewportContent()

	case msg.Action == tea.MouseActionMotion && m.sel.dragging:
		m.sel.end = m.screenToContent(msg.X, msg.Y)
		m.updateViewportContent()

	case msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft:
		m.sel.dragging = false
	}
	return m, nil
}

// screenToContent converts screen coordinates to a content position
func (m Model) screenToContent(x, y int) position {
	return position{
		line: max(y-(m.headerHeight()+1), 0) + m.viewport.YOffset,
		col:  max(x-2, 0),
	}
}

func isFinal(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// visibleLength returns the visible character count excluding ANSI escape sequences
func visibleLength(s string) int {
	return len([]rune(stripANSI(s)))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if isFinal(r) {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// highlightRange styles visible characters [lo, hi) and passes escape sequences through
func highlightRange(s string, lo, hi int, style lipgloss.Style) string {
	var result, escape strings.Builder
	pos := 0
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			escape.Reset()
			escape.WriteRune(r)
			continue
		}
		if inEscape {
			escape.WriteRune(r)
			if isFinal(r) {
				result.WriteString(escape.String())
				inEscape = false
			}
			continue
		}
		if pos >= lo && pos < hi {
			result.WriteString(style.Render(string(r)))
		} else {
			result.WriteRune(r)
		}
		pos++
	}
	return result.String()
}
