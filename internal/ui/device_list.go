package ui

import (
	"fmt"
	"strings"

	"ble-beacon.klederson.com/internal/bluetooth"
)

const linesPerDevice = 4 // 3 content + 1 blank

// RenderDeviceList renders the scrollable device list panel. history holds
// recent RSSI samples per device id and may be nil.
func RenderDeviceList(devices []bluetooth.Device, history map[string][]float64, width, height, scrollOffset int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	header := []string{
		StylePanelTitle.Render(fmt.Sprintf("DEVICES [%d]", len(devices))),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}

	innerH := height - 2
	if innerH < len(header)+1 {
		innerH = len(header) + 1
	}
	devSpace := innerH - len(header)

	var devLines []string
	if len(devices) == 0 {
		devLines = append(devLines, "",
			StyleHelp.Render(" No devices..."),
			StyleHelp.Render(" Press [S] to scan"))
	} else {
		maxVisible := max(1, devSpace/linesPerDevice)
		start := max(0, min(scrollOffset, len(devices)-maxVisible))
		for i := start; i < len(devices) && len(devLines) < devSpace; i++ {
			devLines = append(devLines, renderDeviceEntry(devices[i], history[devices[i].ID], innerW)...)
		}
	}
	if len(devLines) > devSpace {
		devLines = devLines[:devSpace]
	}

	content := strings.Join(append(header, devLines...), "\n")
	return clampLines(StylePanelBorder.Width(width-2).Height(innerH).Render(content), height)
}

func renderDeviceEntry(d bluetooth.Device, history []float64, maxW int) []string {
	name := truncRaw(d.DisplayName(), maxW-3)
	id := truncRaw(d.ID, maxW-8)

	rssi := "n/a"
	if d.RSSI.OK {
		rssi = fmt.Sprintf("%ddBm", d.RSSI.Value)
	}

	line1 := " " + StyleDeviceName.Render(strings.TrimRight(name, " "))
	line2 := "    " + StyleDeviceID.Render(strings.TrimRight(id, " "))
	line3 := "    " + StyleDeviceRSSI.Render(fmt.Sprintf("%-7s", rssi)) + " " +
		StyleDeviceDist.Render(fmt.Sprintf("%-8s", FormatDistance(d)))

	barW := min(10, maxW-24)
	if d.RSSI.OK && barW > 0 {
		line3 += " " + renderSignalBar(float64(d.RSSI.Value), barW)
		if sparkW := maxW - 26 - barW; sparkW > 0 && len(history) > 1 {
			line3 += " " + StyleHelp.Render(sparkline(history, sparkW))
		}
	}
	return []string{line1, line2, line3, ""}
}

// FormatDistance renders the estimate as "~1.23m" or "n/a".
func FormatDistance(d bluetooth.Device) string {
	if !d.HasDistance {
		return "n/a"
	}
	return fmt.Sprintf("~%.2fm", d.Distance)
}

// truncRaw pads or truncates a raw string to exactly w runes.
func truncRaw(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}
