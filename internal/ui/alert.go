package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// RenderAlert renders a modal dialog centred in the body area.
func RenderAlert(width, height int, title, message string) string {
	boxW := width / 2
	if boxW < 30 {
		boxW = 30
	}
	if boxW > width {
		boxW = width
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		StyleAlertTitle.Render(title),
		"",
		lipgloss.NewStyle().Width(boxW-8).Align(lipgloss.Center).Render(message),
		"",
		StyleHelp.Render("[ENTER] / [ESC] to dismiss"),
	)
	box := StyleAlertBorder.Width(boxW - 2).Render(body)
	return clampLines(lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box), height)
}
