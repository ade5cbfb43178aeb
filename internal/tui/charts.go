package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/ethanolivertroy/attack-tui/internal/matrix"
	"github.com/ethanolivertroy/attack-tui/internal/model"
)

// ChartType identifies one of the stats views
type ChartType int

const (
	ChartTactics ChartType = iota
	ChartPlatforms
	ChartSubtechniques
	ChartPhases
)

func (c ChartType) String() string {
	switch c {
	case ChartTactics:
		return "Techniques per Tactic"
	case ChartPlatforms:
		return "Top Platforms"
	case ChartSubtechniques:
		return "Techniques vs Sub-techniques"
	case ChartPhases:
		return "Prepare vs Act"
	}
	return ""
}

// chartTypes lists the charts in menu order
var chartTypes = []ChartType{ChartTactics, ChartPlatforms, ChartSubtechniques, ChartPhases}

// heat colors from most to least
var barColors = []lipgloss.Color{
	lipgloss.Color("#9B0000"),
	lipgloss.Color("#FF5F56"),
	lipgloss.Color("#FF8C00"),
	lipgloss.Color("#FFCC00"),
	lipgloss.Color("#04B575"),
}

func barColor(i int) lipgloss.Color {
	if i >= len(barColors) {
		return barColors[len(barColors)-1]
	}
	return barColors[i]
}

// TacticCounts returns technique counts per matrix column, in column order
func TacticCounts(m matrix.Matrix) []matrix.Count {
	return m.Stats().PerTactic
}

// TopPlatforms returns the n platforms with the most techniques
func TopPlatforms(m matrix.Matrix, n int) []matrix.Count {
	counts := m.Stats().PerPlatform
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// SubtechniqueSplit counts top-level techniques and sub-techniques
func SubtechniqueSplit(techs []model.Technique) (parents, subs int) {
	for _, t := range techs {
		if t.IsSubtechnique {
			subs++
		} else {
			parents++
		}
	}
	return parents, subs
}

// PhaseCounts sums technique placements per phase. A technique listed under
// several tactics counts once per column.
func PhaseCounts(m matrix.Matrix) (prepare, act int) {
	for _, c := range m.Columns {
		if c.Phase == model.PhasePrepare {
			prepare += len(c.Techniques)
		} else {
			act += len(c.Techniques)
		}
	}
	return prepare, act
}

func chartTitle(s string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(PrimaryColor).
		Padding(0, 1).
		Render(s)
}

func drawBars(items []barchart.BarData, width, height, barWidth, gap int) string {
	w := width - 4
	h := height
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	bc := barchart.New(w, h,
		barchart.WithNoAutoBarWidth(),
		barchart.WithBarWidth(barWidth),
		barchart.WithBarGap(gap),
	)
	bc.PushAll(items)
	bc.Draw()
	return bc.View()
}

// RenderTacticChart renders technique counts per tactic
func RenderTacticChart(m matrix.Matrix, width, height int) string {
	return RenderTacticChartWithSelection(m, width, height, -1)
}

// RenderTacticChartWithSelection renders the tactic chart with an optional highlighted column
func RenderTacticChartWithSelection(m matrix.Matrix, width, height int, selectedIndex int) string {
	counts := TacticCounts(m)
	if len(counts) == 0 {
		return "No tactic data available"
	}

	var b strings.Builder
	b.WriteString(chartTitle(fmt.Sprintf("%s Techniques per Tactic", m.Domain.String())))
	b.WriteString("\n\n")

	maxCount := 0
	for _, c := range counts {
		if c.Value > maxCount {
			maxCount = c.Value
		}
	}

	colorFor := func(v int) lipgloss.Color {
		if maxCount == 0 {
			return SubtleColor
		}
		intensity := float64(v) / float64(maxCount)
		switch {
		case intensity > 0.7:
			return barColor(1)
		case intensity > 0.4:
			return barColor(3)
		default:
			return barColor(4)
		}
	}

	items := make([]barchart.BarData, 0, len(counts))
	for _, c := range counts {
		items = append(items, barchart.BarData{
			Label: truncateString(m.TacticName(c.Label), 6),
			Values: []barchart.BarValue{{
				Name:  c.Label,
				Value: float64(c.Value),
				Style: lipgloss.NewStyle().Foreground(colorFor(c.Value)),
			}},
		})
	}
	b.WriteString(drawBars(items, width, height-len(counts)-8, 3, 1))
	b.WriteString("\n\n")

	for i, c := range counts {
		marker := lipgloss.NewStyle().Foreground(colorFor(c.Value)).Render("█")
		label := fmt.Sprintf("%s: %d", m.TacticName(c.Label), c.Value)
		if i == selectedIndex {
			selectedStyle := lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(PrimaryColor)
			b.WriteString(fmt.Sprintf("%s %s\n", marker, selectedStyle.Render(" "+label+" ")))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\n", marker, label))
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(SubtleColor).Render("j/k navigate • enter filter by tactic • g/esc back"))
	return b.String()
}

// RenderPlatformChart renders the platforms with the most techniques
func RenderPlatformChart(m matrix.Matrix, width, height int) string {
	platforms := TopPlatforms(m, 10)
	if len(platforms) == 0 {
		return "No platform data available"
	}

	var b strings.Builder
	b.WriteString(chartTitle("Top 10 Platforms by Technique Count"))
	b.WriteString("\n\n")

	items := make([]barchart.BarData, 0, len(platforms))
	for i, p := range platforms {
		items = append(items, barchart.BarData{
			Label: truncateString(p.Label, 8),
			Values: []barchart.BarValue{{
				Name:  p.Label,
				Value: float64(p.Value),
				Style: lipgloss.NewStyle().Foreground(barColor(i)),
			}},
		})
	}
	b.WriteString(drawBars(items, width, height-len(platforms)-8, 4, 1))
	b.WriteString("\n\n")

	for i, p := range platforms {
		marker := lipgloss.NewStyle().Foreground(barColor(i)).Render("█")
		b.WriteString(fmt.Sprintf("%s %s: %d\n", marker, p.Label, p.Value))
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(SubtleColor).Render("g/esc back to charts menu"))
	return b.String()
}

// RenderSubtechniqueChart renders the technique / sub-technique split
func RenderSubtechniqueChart(m matrix.Matrix, width, height int) string {
	parents, subs := SubtechniqueSplit(m.Techniques)
	total := parents + subs
	if total == 0 {
		return "No data available"
	}

	var b strings.Builder
	b.WriteString(chartTitle("Techniques vs Sub-techniques"))
	b.WriteString("\n\n")

	parentColor := lipgloss.Color("#FF5F56")
	subColor := lipgloss.Color("#04B575")
	items := []barchart.BarData{
		{
			Label: "Techniques",
			Values: []barchart.BarValue{{
				Name:  "Techniques",
				Value: float64(parents),
				Style: lipgloss.NewStyle().Foreground(parentColor),
			}},
		},
		{
			Label: "Sub-techs",
			Values: []barchart.BarValue{{
				Name:  "Sub-techniques",
				Value: float64(subs),
				Style: lipgloss.NewStyle().Foreground(subColor),
			}},
		},
	}
	b.WriteString(drawBars(items, width, height-12, 10, 2))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Foreground(parentColor).Bold(true).Render(
		fmt.Sprintf("Techniques: %d (%.1f%%)", parents, float64(parents)/float64(total)*100)))
	b.WriteString("  ")
	b.WriteString(lipgloss.NewStyle().Foreground(subColor).Bold(true).Render(
		fmt.Sprintf("Sub-techniques: %d (%.1f%%)", subs, float64(subs)/float64(total)*100)))
	b.WriteString("\n\n")

	summaryStyle := lipgloss.NewStyle().Foreground(SubtleColor)
	b.WriteString(summaryStyle.Render(fmt.Sprintf("Total: %d", total)))
	b.WriteString("\n\n")
	b.WriteString(summaryStyle.Render("g/esc back to charts menu"))
	return b.String()
}

// RenderPhaseChart renders technique placements in prepare versus act tactics
func RenderPhaseChart(m matrix.Matrix, width, height int) string {
	prepare, act := PhaseCounts(m)
	total := prepare + act
	if total == 0 {
		return "No phase data available"
	}

	var b strings.Builder
	b.WriteString(chartTitle("Technique Placements by Phase"))
	b.WriteString("\n\n")

	prepColor := lipgloss.Color("#FFCC00")
	actColor := lipgloss.Color("#FF5F56")
	items := []barchart.BarData{
		{
			Label: "Prepare",
			Values: []barchart.BarValue{{
				Name:  "Prepare",
				Value: float64(prepare),
				Style: lipgloss.NewStyle().Foreground(prepColor),
			}},
		},
		{
			Label: "Act",
			Values: []barchart.BarValue{{
				Name:  "Act",
				Value: float64(act),
				Style: lipgloss.NewStyle().Foreground(actColor),
			}},
		},
	}
	b.WriteString(drawBars(items, width, height-12, 8, 2))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Foreground(prepColor).Bold(true).Render(
		fmt.Sprintf("Prepare: %d (%.1f%%)", prepare, float64(prepare)/float64(total)*100)))
	b.WriteString("  ")
	b.WriteString(lipgloss.NewStyle().Foreground(actColor).Bold(true).Render(
		fmt.Sprintf("Act: %d (%.1f%%)", act, float64(act)/float64(total)*100)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(SubtleColor).Render("g/esc back to charts menu"))
	return b.String()
}

// RenderChart dispatches to the renderer for a chart type
func RenderChart(c ChartType, m matrix.Matrix, width, height, selected int) string {
	switch c {
	case ChartTactics:
		return RenderTacticChartWithSelection(m, width, height, selected)
	case ChartPlatforms:
		return RenderPlatformChart(m, width, height)
	case ChartSubtechniques:
		return RenderSubtechniqueChart(m, width, height)
	case ChartPhases:
		return RenderPhaseChart(m, width, height)
	}
	return ""
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "."
}
