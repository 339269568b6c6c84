package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the live view.
type Theme struct {
	Name    string
	Field   lipgloss.Color
	Header  lipgloss.Color
	Label   lipgloss.Color
	Value   lipgloss.Color
	Graph   lipgloss.Color
	Warning lipgloss.Color
	Border  lipgloss.Color
}

var (
	ThemePhosphor = Theme{
		Name:    "phosphor",
		Field:   lipgloss.Color("#00ff88"),
		Header:  lipgloss.Color("86"),
		Label:   lipgloss.Color("245"),
		Value:   lipgloss.Color("252"),
		Graph:   lipgloss.Color("49"),
		Warning: lipgloss.Color("#ffaa00"),
		Border:  lipgloss.Color("240"),
	}

	ThemeInfrared = Theme{
		Name:    "infrared",
		Field:   lipgloss.Color("#ff6b6b"),
		Header:  lipgloss.Color("#feca57"),
		Label:   lipgloss.Color("#8b6b8c"),
		Value:   lipgloss.Color("#fff5f5"),
		Graph:   lipgloss.Color("#ff9ff3"),
		Warning: lipgloss.Color("#ff4757"),
		Border:  lipgloss.Color("#8b6b8c"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Field:   lipgloss.Color("#ffffff"),
		Header:  lipgloss.Color("#ffffff"),
		Label:   lipgloss.Color("#888888"),
		Value:   lipgloss.Color("#cccccc"),
		Graph:   lipgloss.Color("#0088ff"),
		Warning: lipgloss.Color("#ffaa00"),
		Border:  lipgloss.Color("#444444"),
	}

	Themes = []Theme{ThemePhosphor, ThemeInfrared, ThemeMinimal}
)

// GetTheme returns a theme by name, falling back to the first.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

type styles struct {
	canvas, stats, header, label, value, graph, warning, help lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		canvas:  lipgloss.NewStyle().Foreground(t.Field).Padding(1, 2),
		stats:   lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(t.Border).Padding(1, 2).Width(44),
		header:  lipgloss.NewStyle().Foreground(t.Header).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Label).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Value),
		graph:   lipgloss.NewStyle().Foreground(t.Graph).Padding(1, 0),
		warning: lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		help:    lipgloss.NewStyle().Foreground(t.Border).MarginTop(1),
	}
}
