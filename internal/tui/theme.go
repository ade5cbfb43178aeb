package tui

import "github.com/charmbracelet/lipgloss"

// ThemeName identifies a color theme
type ThemeName string

const (
	ThemeDefault    ThemeName = "default"
	ThemeDracula    ThemeName = "dracula"
	ThemeCatppuccin ThemeName = "catppuccin"
	ThemeNord       ThemeName = "nord"
)

// themeOrder is the cycle order used by CycleTheme.
var themeOrder = []ThemeName{ThemeDefault, ThemeDracula, ThemeCatppuccin, ThemeNord}

// Theme holds color definitions for the TUI
type Theme struct {
	Name       ThemeName
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Subtle     lipgloss.Color
	Error      lipgloss.Color
	Prepare    lipgloss.Color
	Act        lipgloss.Color
	SubTech    lipgloss.Color
	Platform   lipgloss.Color
	URL        lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
}

// Themes available in the application
var Themes = map[ThemeName]Theme{
	ThemeDefault: {
		Name:       ThemeDefault,
		Primary:    lipgloss.Color("#C0392B"),
		Secondary:  lipgloss.Color("#04B575"),
		Subtle:     lipgloss.Color("#626262"),
		Error:      lipgloss.Color("#FF5F56"),
		Prepare:    lipgloss.Color("#FFCC00"),
		Act:        lipgloss.Color("#FF6B00"),
		SubTech:    lipgloss.Color("#7D56F4"),
		Platform:   lipgloss.Color("#DDA0DD"),
		URL:        lipgloss.Color("#00BFFF"),
		Background: lipgloss.Color("#1a1a1a"),
		Foreground: lipgloss.Color("#FFFFFF"),
	},
	ThemeDracula: {
		Name:       ThemeDracula,
		Primary:    lipgloss.Color("#ff5555"), // Red
		Secondary:  lipgloss.Color("#50fa7b"), // Green
		Subtle:     lipgloss.Color("#6272a4"), // Comment
		Error:      lipgloss.Color("#ff5555"),
		Prepare:    lipgloss.Color("#f1fa8c"), // Yellow
		Act:        lipgloss.Color("#ffb86c"), // Orange
		SubTech:    lipgloss.Color("#bd93f9"), // Purple
		Platform:   lipgloss.Color("#ff79c6"), // Pink
		URL:        lipgloss.Color("#8be9fd"), // Cyan
		Background: lipgloss.Color("#282a36"),
		Foreground: lipgloss.Color("#f8f8f2"),
	},
	ThemeCatppuccin: {
		Name:       ThemeCatppuccin,
		Primary:    lipgloss.Color("#eba0ac"), // Maroon
		Secondary:  lipgloss.Color("#a6e3a1"), // Green
		Subtle:     lipgloss.Color("#6c7086"), // Overlay0
		Error:      lipgloss.Color("#f38ba8"), // Red
		Prepare:    lipgloss.Color("#f9e2af"), // Yellow
		Act:        lipgloss.Color("#fab387"), // Peach
		SubTech:    lipgloss.Color("#cba6f7"), // Mauve
		Platform:   lipgloss.Color("#f5c2e7"), // Pink
		URL:        lipgloss.Color("#89dceb"), // Sky
		Background: lipgloss.Color("#1e1e2e"), // Base
		Foreground: lipgloss.Color("#cdd6f4"), // Text
	},
	ThemeNord: {
		Name:       ThemeNord,
		Primary:    lipgloss.Color("#bf616a"), // Nord11
		Secondary:  lipgloss.Color("#a3be8c"), // Nord14
		Subtle:     lipgloss.Color("#4c566a"), // Nord3
		Error:      lipgloss.Color("#bf616a"), // Nord11
		Prepare:    lipgloss.Color("#ebcb8b"), // Nord13
		Act:        lipgloss.Color("#d08770"), // Nord12
		SubTech:    lipgloss.Color("#5e81ac"), // Nord10
		Platform:   lipgloss.Color("#b48ead"), // Nord15
		URL:        lipgloss.Color("#88c0d0"), // Nord8
		Background: lipgloss.Color("#2e3440"), // Nord0
		Foreground: lipgloss.Color("#eceff4"), // Nord6
	},
}

// CurrentTheme is the active theme
var CurrentTheme = Themes[ThemeDefault]

// SetTheme changes the active theme. Unknown names are ignored.
func SetTheme(name ThemeName) {
	if theme, ok := Themes[name]; ok {
		CurrentTheme = theme
		updateStyles()
	}
}

// CycleTheme switches to the next theme
func CycleTheme() ThemeName {
	for i, name := range themeOrder {
		if name == CurrentTheme.Name {
			next := themeOrder[(i+1)%len(themeOrder)]
			SetTheme(next)
			return next
		}
	}
	SetTheme(ThemeDefault)
	return ThemeDefault
}

// updateStyles refreshes the global styles with current theme colors
func updateStyles() {
	PrimaryColor = CurrentTheme.Primary
	SecondaryColor = CurrentTheme.Secondary
	SubtleColor = CurrentTheme.Subtle
	ErrorColor = CurrentTheme.Error
	PrepareColor = CurrentTheme.Prepare
	ActColor = CurrentTheme.Act
	SubTechColor = CurrentTheme.SubTech
	PlatformColor = CurrentTheme.Platform
	URLColor = CurrentTheme.URL
	ForegroundColor = CurrentTheme.Foreground

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ForegroundColor).
		Background(PrimaryColor).
		Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor).
		Width(16)

	ValueStyle = lipgloss.NewStyle().
		Foreground(ForegroundColor)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(SubtleColor)

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

	StatsStyle = lipgloss.NewStyle().
		Foreground(SubtleColor).
		Padding(0, 1)

	StatHighlight = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)
}
