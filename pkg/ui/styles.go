package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// Adaptive colors for light and dark terminals.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, SpaceSM)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorDanger).
			Foreground(ColorText).
			Padding(SpaceXS, SpaceMD)
)

// swatch renders a two cell color block for a "#rrggbb" color.
func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}
