package ui

import (
	"fmt"
	"strings"

	"ble-beacon.klederson.com/internal/config"
	"ble-beacon.klederson.com/internal/session"
	"github.com/charmbracelet/lipgloss"
)

// MenuInfo is what the menu bar shows on the right-hand side.
type MenuInfo struct {
	Adapter   string
	Company   string
	Broadcast session.State
	Scan      session.State
}

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, info MenuInfo) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"B", toggleLabel(info.Broadcast, "roadcast")},
		{"S", toggleLabel(info.Scan, "can")},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := "ADV " + renderState(info.Broadcast) + "  SCAN " + renderState(info.Scan)
	right := status + "  " + StyleMenuLabel.Render(fmt.Sprintf("Adapter: %s  Company: %s", info.Adapter, info.Company)) + " "

	left := StyleMenuKey.Render(title) + menu

	gap := width - barPadding - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func toggleLabel(s session.State, label string) string {
	if s == session.Active {
		return label + " off"
	}
	return label
}

func renderState(s session.State) string {
	text := strings.ToUpper(s.String())
	switch s {
	case session.Active:
		return StyleStateActive.Render(text)
	case session.Starting, session.Stopping:
		return StyleStateBusy.Render(text)
	default:
		return StyleStateIdle.Render(text)
	}
}
