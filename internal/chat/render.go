package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/tui"
)

// styles follow the active browser theme
type styles struct {
	title, userLabel, agentLabel lipgloss.Style
	userMsg, agentMsg            lipgloss.Style
	system, errorMsg, footer     lipgloss.Style
	divider, context, thinking   lipgloss.Style
	tool, toolActive, toolDone   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(tui.ForegroundColor).
			Background(tui.PrimaryColor).
			Padding(0, 2).
			MarginBottom(1),
		userLabel:  lipgloss.NewStyle().Bold(true).Foreground(tui.PrimaryColor),
		agentLabel: lipgloss.NewStyle().Bold(true).Foreground(tui.SecondaryColor),
		userMsg: lipgloss.NewStyle().
			Foreground(tui.ForegroundColor).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(tui.PrimaryColor).
			PaddingLeft(1).
			MarginLeft(2),
		agentMsg: lipgloss.NewStyle().
			Foreground(tui.ForegroundColor).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(tui.SecondaryColor).
			PaddingLeft(1).
			MarginLeft(2),
		system:   lipgloss.NewStyle().Foreground(tui.SubtleColor).Italic(true).MarginLeft(2),
		errorMsg: lipgloss.NewStyle().Foreground(tui.ErrorColor).Italic(true).MarginLeft(2),
		footer:   lipgloss.NewStyle().Foreground(tui.SubtleColor),
		divider:  lipgloss.NewStyle().Foreground(tui.SubtleColor),
		context: lipgloss.NewStyle().
			Foreground(tui.ForegroundColor).
			Background(tui.SubTechColor).
			Padding(0, 1).
			Bold(true),
		thinking:   lipgloss.NewStyle().Foreground(tui.SecondaryColor).Italic(true).MarginLeft(2),
		tool:       lipgloss.NewStyle().Foreground(tui.SubtleColor).MarginLeft(2),
		toolActive: lipgloss.NewStyle().Foreground(tui.PrepareColor).MarginLeft(2),
		toolDone:   lipgloss.NewStyle().Foreground(tui.SecondaryColor).MarginLeft(2),
	}
}

func (m Model) headerHeight() int {
	if m.currentTechnique != nil {
		return 4
	}
	return 3
}

// View renders the chat interface
func (m Model) View() string {
	st := newStyles()
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(st.title.Render(AssistantName + " - ATT&CK Analyst"))
	b.WriteString("\n")
	if t := m.currentTechnique; t != nil {
		b.WriteString(st.context.Render(t.TechniqueID + " " + t.Name))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(st.divider.Render(strings.Repeat("─", max(m.width-2, 0))))
	b.WriteString("\n  ")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	switch {
	case !m.thinking:
		b.WriteString(st.footer.Render("  PgUp/Dn scroll  |  ^Y copy  |  /help /clear /exit"))
	case m.turn.activeTools() > 0:
		b.WriteString(st.footer.Render(fmt.Sprintf("  %s Running %d tool(s)...", m.spinner.View(), m.turn.activeTools())))
	case m.turn.text != "":
		b.WriteString(st.footer.Render("  " + m.spinner.View() + " " + AssistantName + " is responding..."))
	default:
		b.WriteString(st.footer.Render("  " + m.spinner.View() + " " + AssistantName + " is thinking..."))
	}

	return b.String()
}

// updateViewportContent rebuilds the viewport content from messages
func (m *Model) updateViewportContent() {
	st := newStyles()
	var content strings.Builder

	for _, msg := range m.messages {
		content.WriteString(m.renderMessage(st, msg))
		content.WriteString("\n\n")
	}

	if m.thinking {
		for _, t := range m.turn.tools {
			if t.Done {
				content.WriteString(st.toolDone.Render("✓ " + t.Name))
			} else {
				content.WriteString(st.toolActive.Render(m.spinner.View() + " " + formatToolCall(t)))
			}
			content.WriteString("\n")
		}

		if m.turn.text != "" {
			if len(m.turn.tools) > 0 {
				content.WriteString("\n")
			}
			content.WriteString(st.agentLabel.Render(AssistantName + ":"))
			content.WriteString("\n")
			content.WriteString(m.renderMarkdown(st, m.turn.text))
			content.WriteString("\n")
		}

		if len(m.turn.tools) == 0 && m.turn.text == "" {
			content.WriteString(st.thinking.Render(m.spinner.View() + " " + AssistantName + " is thinking..."))
			content.WriteString("\n")
		}
	}

	m.content = content.String()
	out := m.content
	if m.sel.active() {
		out = m.sel.highlight(out)
	}
	m.viewport.SetContent(out)
}

// renderMessage formats a single message
func (m *Model) renderMessage(st styles, msg ChatMessage) string {
	switch msg.Role {
	case RoleUser:
		return st.userLabel.Render("You:") + "\n" + st.userMsg.Render(wrapText(msg.Content, m.width-8))
	case RoleAgent:
		return st.agentLabel.Render(AssistantName+":") + "\n" + m.renderMarkdown(st, msg.Content)
	case RoleTool:
		return st.tool.Render(msg.Content)
	}
	if msg.IsError {
		return st.errorMsg.Render(msg.Content)
	}
	return st.system.Render(msg.Content)
}

// formatToolCall shows a tool's name and its params, sorted by key
func formatToolCall(t toolStatus) string {
	if len(t.Params) == 0 {
		return t.Name + "()"
	}
	keys := make([]string, 0, len(t.Params))
	for k := range t.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, fmt.Sprint(t.Params[k])))
	}
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(parts, ", "))
}

// renderMarkdown renders a reply with glamour, rebuilding the renderer when the panel width changes
func (m *Model) renderMarkdown(st styles, content string) string {
	width := max(m.width-10, 40)

	if m.markdown == nil || m.markdownWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dracula"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return st.agentMsg.Render(wrapText(content, width))
		}
		m.markdown = r
		m.markdownWidth = width
	}

	out, err := m.markdown.Render(content)
	if err != nil {
		return st.agentMsg.Render(wrapText(content, width))
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// wrapText wraps text to the specified width
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteString("\n")
		}
		if len(line) <= width {
			result.WriteString(line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			switch {
			case current == "":
				current = word
			case len(current)+1+len(word) <= width:
				current += " " + word
			default:
				result.WriteString(current)
				result.WriteString("\n")
				current = word
			}
		}
		result.WriteString(current)
	}
	return result.String()
}
