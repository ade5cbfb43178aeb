package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// Colors (theme-aware - updated by theme.go)
var (
	PrimaryColor    = lipgloss.Color("#C0392B")
	SecondaryColor  = lipgloss.Color("#04B575")
	SubtleColor     = lipgloss.Color("#626262")
	ErrorColor      = lipgloss.Color("#FF5F56")
	PrepareColor    = lipgloss.Color("#FFCC00")
	ActColor        = lipgloss.Color("#FF6B00")
	SubTechColor    = lipgloss.Color("#7D56F4")
	PlatformColor   = lipgloss.Color("#DDA0DD")
	URLColor        = lipgloss.Color("#00BFFF")
	ForegroundColor = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ForegroundColor).
			Background(PrimaryColor).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Detail view styles
	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SecondaryColor).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ForegroundColor)

	URLStyle = lipgloss.NewStyle().
			Foreground(URLColor).
			Underline(true)

	PlatformStyle = lipgloss.NewStyle().
			Foreground(PlatformColor)

	TechniqueIDBadge = lipgloss.NewStyle().
				Bold(true).
				Foreground(ForegroundColor).
				Background(PrimaryColor).
				Padding(0, 1)

	// List item styles
	SelectedItemStyle = lipgloss.NewStyle().
				BorderLeft(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(PrimaryColor).
				PaddingLeft(1)

	NormalItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	DimmedItemStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			PaddingLeft(2)

	// StatsStyle for the statistics header
	StatsStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(0, 1)

	StatHighlight = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)
)

// PhaseBadge renders a colored badge for a tactic phase.
func PhaseBadge(phase string) string {
	bg := ActColor
	label := "ACT"
	if phase == model.PhasePrepare {
		bg = PrepareColor
		label = "PREPARE"
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(bg).
		Padding(0, 1).
		Render(label)
}

// SubtechniqueBadge marks sub-techniques in lists and detail views.
func SubtechniqueBadge() string {
	return lipgloss.NewStyle().Foreground(SubTechColor).Bold(true).Render("[sub]")
}

// DomainBadge renders the short label for a matrix domain.
func DomainBadge(d model.Domain) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(ForegroundColor).
		Background(SubTechColor).
		Padding(0, 1).
		Render(d.String())
}

// PlatformList renders platforms joined by commas, or a dash when there are none.
func PlatformList(platforms []string) string {
	if len(platforms) == 0 {
		return SubtitleStyle.Render("-")
	}
	return PlatformStyle.Render(strings.Join(platforms, ", "))
}

// CoverageBar returns a visual bar for n out of total.
func CoverageBar(n, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := n * width / total
	if filled < 1 && n > 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	filledStyle := lipgloss.NewStyle().Foreground(PrimaryColor)
	emptyStyle := lipgloss.NewStyle().Foreground(SubtleColor)
	return filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %d", n)
}
