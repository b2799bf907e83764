package ui

import (
	"fmt"
	"io"
	"sync"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/session"
	"github.com/fatih/color"
)

// Console prints session output line by line for headless mode. It
// implements session.Alerter.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	alert  *color.Color
	header *color.Color
	name   *color.Color
	dim    *color.Color
}

// NewConsole writes to out. Colours follow fatih/color's terminal
// detection (NO_COLOR is honoured).
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:    out,
		alert:  color.New(color.FgRed, color.Bold),
		header: color.New(color.FgGreen, color.Bold),
		name:   color.New(color.FgHiGreen),
		dim:    color.New(color.FgGreen),
	}
}

// Alert prints a failure immediately.
func (c *Console) Alert(title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alert.Fprintf(c.out, "%s: %s\n", title, message)
}

// Notice prints an out-of-band status line.
func (c *Console) Notice(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header.Fprintln(c.out, message)
}

// PrintEntries prints log entries oldest first.
func (c *Console) PrintEntries(entries []session.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(entries) - 1; i >= 0; i-- {
		c.dim.Fprintln(c.out, entries[i].String())
	}
}

// PrintDevices prints a device table.
func (c *Console) PrintDevices(devices []bluetooth.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.header.Fprintf(c.out, "%-24s %-20s %8s %10s\n", "NAME", "ID", "RSSI", "DISTANCE")
	for _, d := range devices {
		rssi := "n/a"
		if d.RSSI.OK {
			rssi = fmt.Sprintf("%ddBm", d.RSSI.Value)
		}
		c.name.Fprintf(c.out, "%-24s ", truncRaw(d.DisplayName(), 24))
		c.dim.Fprintf(c.out, "%-20s %8s %10s\n", d.ID, rssi, FormatDistance(d))
	}
	if len(devices) == 0 {
		c.dim.Fprintln(c.out, "(no devices)")
	}
}
