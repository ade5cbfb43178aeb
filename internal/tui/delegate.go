package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// MatrixDelegate renders tactic and technique items
type MatrixDelegate struct {
	ShowDescription bool
	Styles          MatrixDelegateStyles
}

// MatrixDelegateStyles contains the styles for the delegate
type MatrixDelegateStyles struct {
	NormalTitle   lipgloss.Style
	NormalDesc    lipgloss.Style
	SelectedTitle lipgloss.Style
	SelectedDesc  lipgloss.Style
	DimmedTitle   lipgloss.Style
	DimmedDesc    lipgloss.Style
	IDStyle       lipgloss.Style
}

// NewMatrixDelegate creates a new delegate with styles from the current theme
func NewMatrixDelegate() MatrixDelegate {
	return MatrixDelegate{
		ShowDescription: true,
		Styles: MatrixDelegateStyles{
			NormalTitle:   lipgloss.NewStyle().Foreground(ForegroundColor),
			NormalDesc:    lipgloss.NewStyle().Foreground(SubtleColor),
			SelectedTitle: lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true),
			SelectedDesc:  lipgloss.NewStyle().Foreground(ForegroundColor),
			DimmedTitle:   lipgloss.NewStyle().Foreground(SubtleColor),
			DimmedDesc:    lipgloss.NewStyle().Foreground(SubtleColor),
			IDStyle:       lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true),
		},
	}
}

// Height returns the height of each item
func (d MatrixDelegate) Height() int {
	if d.ShowDescription {
		return 2
	}
	return 1
}

// Spacing returns the spacing between items
func (d MatrixDelegate) Spacing() int {
	return 1
}

// Update handles item updates
func (d MatrixDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a single item
func (d MatrixDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var head, body, badge string
	switch it := item.(type) {
	case model.TechniqueItem:
		head, body = it.Name, it.Description()
		if it.TechniqueID != "" {
			badge = fmt.Sprintf("[%s]", it.TechniqueID)
		}
	case model.TacticItem:
		head, body = it.Title(), it.Description()
		badge = fmt.Sprintf("[%d]", it.Count)
	default:
		return
	}

	isSelected := index == m.Index()
	isFiltering := m.FilterState() == list.Filtering

	titleStyle, descStyle, idStyle := d.Styles.NormalTitle, d.Styles.NormalDesc, d.Styles.IDStyle
	switch {
	case isFiltering:
		titleStyle, descStyle, idStyle = d.Styles.DimmedTitle, d.Styles.DimmedDesc, d.Styles.DimmedTitle
	case isSelected:
		titleStyle, descStyle = d.Styles.SelectedTitle, d.Styles.SelectedDesc
	}

	line := titleStyle.Render(head)
	if badge != "" {
		line = idStyle.Render(badge) + " " + line
	}
	switch it := item.(type) {
	case model.TechniqueItem:
		if it.IsSubtechnique {
			line += " " + SubtechniqueBadge()
		}
	case model.TacticItem:
		if it.Phase != "" {
			line += " " + PhaseBadge(it.Phase)
		}
	}

	itemStyle := NormalItemStyle
	if isSelected {
		itemStyle = SelectedItemStyle
	}
	fmt.Fprint(w, itemStyle.Render(line))

	if d.ShowDescription {
		fmt.Fprint(w, "\n"+itemStyle.Render(descStyle.Render(body)))
	}
}
