package main

import "github.com/charmbracelet/lipgloss"

var (
	// Color palette
	successColor = lipgloss.Color("#04B575")
	errorColor   = lipgloss.Color("#FF4B4B")
	primaryColor = lipgloss.Color("#7D56F4")
	mutedColor   = lipgloss.Color("#666666")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(successColor)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	summaryStyle = lipgloss.NewStyle().Bold(true)
)

// styled renders s with st unless --no-color is set. Callers pad s before
// styling so escape codes do not upset column widths.
func styled(st lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return st.Render(s)
}
