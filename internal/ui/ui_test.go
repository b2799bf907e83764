package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func device(id, name string, rssi int16) bluetooth.Device {
	d := bluetooth.Device{ID: id, Name: name, RSSI: bluetooth.RSSI(rssi)}
	d.Distance, d.HasDistance = bluetooth.EstimateDistance(d.RSSI, -59)
	return d
}

func TestRenderMenuBar(t *testing.T) {
	out := RenderMenuBar(140, MenuInfo{
		Adapter:   "hci0",
		Company:   "0x004C (Apple)",
		Broadcast: session.Active,
		Scan:      session.Starting,
	})
	assert.Contains(t, out, "ADV ACTIVE")
	assert.Contains(t, out, "SCAN STARTING")
	assert.Contains(t, out, "[B]roadcast off")
	assert.Contains(t, out, "[S]can")
	assert.Contains(t, out, "0x004C (Apple)")
	assert.Equal(t, 140, lipgloss.Width(out))
}

func TestRenderDeviceList(t *testing.T) {
	devs := []bluetooth.Device{
		device("AA:BB", "Tag", -79),
		{ID: "CC:DD", Name: "Zero", RSSI: bluetooth.RSSI(0)},
	}
	out := RenderDeviceList(devs, map[string][]float64{"AA:BB": {-80, -79, -70}}, 70, 20, 0)

	assert.Contains(t, out, "DEVICES [2]")
	assert.Contains(t, out, "Tag")
	assert.Contains(t, out, "-79dBm")
	assert.Contains(t, out, "~10.00m")
	assert.Contains(t, out, "n/a", "zero rssi has no estimate")
	assert.Len(t, strings.Split(out, "\n"), 20)
}

func TestRenderDeviceListEmptyAndScrolled(t *testing.T) {
	assert.Contains(t, RenderDeviceList(nil, nil, 40, 10, 0), "No devices")

	var devs []bluetooth.Device
	for _, n := range []string{"one", "two", "three", "four", "five"} {
		devs = append(devs, device(n, n, -60))
	}
	// 2 header lines, room for two entries
	out := RenderDeviceList(devs, nil, 40, 12, 3)
	assert.NotContains(t, out, "one")
	assert.Contains(t, out, "four")
	assert.Len(t, strings.Split(out, "\n"), 12)
}

func TestRenderLogPanel(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 1, 2, 0, time.Local)
	entries := []session.Entry{
		{Time: at, Message: "Scan error: powered off"},
		{Time: at, Message: "Scan started"},
	}
	out := RenderLogPanel(entries, 50, 10)
	assert.Contains(t, out, "LOG [2]")
	assert.Contains(t, out, "[08:01:02] Scan error: powered off")
	assert.Less(t, strings.Index(out, "powered off"), strings.Index(out, "Scan started"))
	assert.Len(t, strings.Split(out, "\n"), 10)
}

func TestRenderStatusBar(t *testing.T) {
	out := RenderStatusBar(120, StatusInfo{
		Devices:   3,
		Policy:    bluetooth.PolicyLivenessWindow,
		Window:    3 * time.Second,
		TxPower:   -59,
		SessionID: "01J0000000000000000000000",
		Demo:      true,
	})
	assert.Contains(t, out, "[DEMO]")
	assert.Contains(t, out, "Devices: 3")
	assert.Contains(t, out, "liveness-window 3s")
	assert.Contains(t, out, "TxPower: -59dBm")

	out = RenderStatusBar(120, StatusInfo{Policy: bluetooth.PolicyAppendOnce, Window: time.Second})
	assert.Contains(t, out, "Policy: append-once ")
	assert.NotContains(t, out, "1s")
}

func TestRenderAlert(t *testing.T) {
	out := RenderAlert(80, 15, "Error", "Broadcast failed: not supported")
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "Broadcast failed: not supported")
	assert.Contains(t, out, "dismiss")
	assert.Len(t, strings.Split(out, "\n"), 15)
}

func TestSignalLevel(t *testing.T) {
	tests := []struct {
		rssi float64
		want int
	}{
		{-120, 0},
		{-100, 0},
		{-65, 5},
		{-30, 10},
		{-10, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, signalLevel(tt.rssi, 10), "rssi %v", tt.rssi)
	}
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", sparkline(nil, 5))
	assert.Equal(t, "_^", sparkline([]float64{-90, -50}, 5))
	assert.Equal(t, "_-^", sparkline([]float64{-100, -90, -70, -50}, 3), "keeps the newest values")
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "~1.00m", FormatDistance(device("a", "a", -59)))
	assert.Equal(t, "n/a", FormatDistance(bluetooth.Device{}))
}

func TestTruncRaw(t *testing.T) {
	assert.Equal(t, "abc  ", truncRaw("abc", 5))
	assert.Equal(t, "ab", truncRaw("abc", 2))
	assert.Equal(t, "", truncRaw("abc", 0))
}

func TestConsole(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Alert("Error", "Scan failed: busy")
	c.PrintDevices([]bluetooth.Device{device("AA:BB", "Tag", -79)})
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.Local)
	c.PrintEntries([]session.Entry{{Time: at, Message: "second"}, {Time: at, Message: "first"}})

	out := buf.String()
	require.Contains(t, out, "Error: Scan failed: busy\n")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "AA:BB")
	assert.Contains(t, out, "~10.00m")
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))

	buf.Reset()
	c.Notice("(3 log entries dropped)")
	assert.Equal(t, "(3 log entries dropped)\n", buf.String())

	buf.Reset()
	c.PrintDevices(nil)
	assert.Contains(t, buf.String(), "(no devices)")
}
