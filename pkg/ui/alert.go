package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alert renders a blocking message box, used for a load that cannot start
// because an input file is missing.
func Alert(title string, lines ...string) string {
	head := lipgloss.NewStyle().Foreground(ColorDanger).Bold(true).Render(title)
	body := append([]string{head, ""}, lines...)
	return alertStyle.Render(strings.Join(body, "\n"))
}
