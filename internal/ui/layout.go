package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// barPadding is the horizontal padding of the menu and status bars.
const barPadding = 2

// ComposeLayout joins the device list and log panel horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, deviceList, logPanel, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, deviceList, logPanel)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// ComposeModal places a modal body between the bars.
func ComposeModal(menuBar, modal, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, modal, statusBar)
}

// clampLines pads or truncates rendered output to exactly height lines.
// lipgloss Height() only sets a minimum; it won't truncate overflow.
func clampLines(rendered string, height int) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
