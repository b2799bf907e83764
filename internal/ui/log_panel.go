package ui

import (
	"fmt"
	"strings"

	"ble-beacon.klederson.com/internal/session"
)

// RenderLogPanel renders the event log, newest entry on top.
func RenderLogPanel(entries []session.Entry, width, height int) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	lines := []string{
		StylePanelTitle.Render(fmt.Sprintf("LOG [%d]", len(entries))),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}
	if len(entries) == 0 {
		lines = append(lines, StyleHelp.Render(" No events yet"))
	}
	for _, e := range entries {
		if len(lines) >= innerH {
			break
		}
		stamp := "[" + e.Time.Format("15:04:05") + "] "
		msg := truncRaw(e.Message, innerW-len(stamp))
		style := StyleLogText
		if strings.Contains(e.Message, "error") {
			style = StyleLogError
		}
		lines = append(lines, StyleLogTime.Render(stamp)+style.Render(msg))
	}

	content := strings.Join(lines, "\n")
	return clampLines(StylePanelBorder.Width(width-2).Height(innerH).Render(content), height)
}
