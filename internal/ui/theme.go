package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorBorder  = lipgloss.Color("#4b5563")
	colorDimmed  = lipgloss.Color("#6b7280")
	colorBright  = lipgloss.Color("#f9fafb")
	colorHealthy = lipgloss.Color("#22c55e")
	colorWarning = lipgloss.Color("#d97706")
	colorDanger  = lipgloss.Color("#dc2626")
	colorActive  = lipgloss.Color("#2563eb")
	colorControl = lipgloss.Color("#a855f7")
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorBright)
	styleDimmed = lipgloss.NewStyle().Foreground(colorDimmed)

	styleDialog = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorWarning).
			Padding(0, 1)

	styleBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBright).
			Background(colorDanger).
			Padding(0, 1)
)

// severityColor colors a server log severity.
func severityColor(severity string) lipgloss.Color {
	switch severity {
	case "ERROR", "CRITICAL":
		return colorDanger
	case "WARNING", "WARN":
		return colorWarning
	case "DEBUG":
		return colorDimmed
	}
	return colorBright
}

// taskGlyph returns a glyph for a queue entry state.
func taskGlyph(state int) (string, lipgloss.Color) {
	switch {
	case state == 1:
		return "●>", colorActive
	case state == 2:
		return "✓", colorHealthy
	case state > 2:
		return "✗", colorDanger
	}
	return "○", colorDimmed
}
