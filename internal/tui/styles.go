package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent   = lipgloss.Color("#4f8ef7")
	muted    = lipgloss.Color("#6b7280")
	danger   = lipgloss.Color("#e53935")
	todayBg  = lipgloss.Color("#1e2a3d")
	selectBg = lipgloss.Color("#2a3850")
)

type styles struct {
	Title      lipgloss.Style
	Tab        lipgloss.Style
	ActiveTab  lipgloss.Style
	DayHeader  lipgloss.Style
	Today      lipgloss.Style
	OutOfFocus lipgloss.Style
	Cell       lipgloss.Style
	Entry      lipgloss.Style
	Selected   lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	Status     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		Tab:        lipgloss.NewStyle().Padding(0, 1).Foreground(muted),
		ActiveTab:  lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true),
		DayHeader:  lipgloss.NewStyle().Bold(true),
		Today:      lipgloss.NewStyle().Bold(true).Background(todayBg),
		OutOfFocus: lipgloss.NewStyle().Foreground(muted),
		Cell:       lipgloss.NewStyle().Width(10),
		Entry:      lipgloss.NewStyle().PaddingLeft(2),
		Selected:   lipgloss.NewStyle().PaddingLeft(2).Background(selectBg).Bold(true),
		Muted:      lipgloss.NewStyle().Foreground(muted),
		Error: lipgloss.NewStyle().
			Foreground(danger).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(danger).
			Padding(0, 1),
		Status: lipgloss.NewStyle().Foreground(muted).Italic(true),
	}
}

// swatch renders a service type color marker.
func swatch(color string) string {
	if color == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}
