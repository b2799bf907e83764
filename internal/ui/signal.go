package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// proximityColor maps signal strength to a color: bright = close, dim = far.
func proximityColor(rssi float64) lipgloss.Color {
	switch {
	case rssi >= -50:
		return ColorMatrixGreen
	case rssi >= -70:
		return ColorGreen
	case rssi >= -85:
		return ColorMidGreen
	default:
		return ColorDimGreen
	}
}

// signalLevel maps RSSI -100..-30 to 0..width filled cells.
func signalLevel(rssi float64, width int) int {
	ratio := (rssi + 100.0) / 70.0
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(ratio * float64(width)))
}

func renderSignalBar(rssi float64, width int) string {
	filled := signalLevel(rssi, width)
	filledPart := lipgloss.NewStyle().Foreground(proximityColor(rssi)).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

// sparkline renders the last width values scaled between their min and max.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}
	values = values[start:]

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	var sb strings.Builder
	for _, v := range values {
		idx := int((v - minV) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}
