package ui

import (
	"fmt"
	"strings"
	"time"

	"ble-beacon.klederson.com/internal/bluetooth"
	"github.com/charmbracelet/lipgloss"
)

// StatusInfo feeds the bottom status bar.
type StatusInfo struct {
	Devices   int
	Policy    bluetooth.Policy
	Window    time.Duration
	TxPower   float64
	SessionID string
	Demo      bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st StatusInfo) string {
	mode := StyleStateActive.Render("[LIVE]")
	if st.Demo {
		mode = StyleStateBusy.Render("[DEMO]")
	}

	policy := string(st.Policy)
	if st.Policy == bluetooth.PolicyLivenessWindow {
		policy = fmt.Sprintf("%s %s", policy, st.Window)
	}

	info := fmt.Sprintf(" Devices: %d  Policy: %s  TxPower: %.0fdBm  Session: %s",
		st.Devices, policy, st.TxPower, st.SessionID)

	content := mode + StyleMenuLabel.Render(info)

	gap := width - barPadding - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
