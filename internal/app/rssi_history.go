package app

import "ble-beacon.klederson.com/internal/bluetooth"

// RSSIRing is a circular buffer for RSSI history values.
type RSSIRing struct {
	buf   []float64
	pos   int
	count int
}

// NewRSSIRing creates a new circular buffer with the given capacity.
func NewRSSIRing(capacity int) *RSSIRing {
	if capacity < 1 {
		capacity = 1
	}
	return &RSSIRing{
		buf: make([]float64, capacity),
	}
}

// Push adds a value to the ring buffer.
func (r *RSSIRing) Push(val float64) {
	r.buf[r.pos] = val
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns all stored values in chronological order.
func (r *RSSIRing) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Len returns the number of stored values.
func (r *RSSIRing) Len() int {
	return r.count
}

// RSSIHistory samples the RSSI of every listed device once per sample
// period. Devices that leave the list lose their history.
type RSSIHistory struct {
	capacity int
	rings    map[string]*RSSIRing
	lastSeen map[string]int64
}

// NewRSSIHistory keeps up to capacity samples per device.
func NewRSSIHistory(capacity int) *RSSIHistory {
	return &RSSIHistory{
		capacity: capacity,
		rings:    make(map[string]*RSSIRing),
		lastSeen: make(map[string]int64),
	}
}

// Record pushes one sample for each device whose observation is newer than
// the previous sample, and forgets devices no longer present.
func (h *RSSIHistory) Record(devices []bluetooth.Device) {
	present := make(map[string]bool, len(devices))
	for _, d := range devices {
		present[d.ID] = true
		if !d.RSSI.OK {
			continue
		}
		seen := d.LastSeen.UnixNano()
		if last, ok := h.lastSeen[d.ID]; ok && last == seen {
			continue
		}
		h.lastSeen[d.ID] = seen

		ring, ok := h.rings[d.ID]
		if !ok {
			ring = NewRSSIRing(h.capacity)
			h.rings[d.ID] = ring
		}
		ring.Push(float64(d.RSSI.Value))
	}
	for id := range h.rings {
		if !present[id] {
			delete(h.rings, id)
			delete(h.lastSeen, id)
		}
	}
}

// Values returns the samples per device id.
func (h *RSSIHistory) Values() map[string][]float64 {
	out := make(map[string][]float64, len(h.rings))
	for id, r := range h.rings {
		out[id] = r.Values()
	}
	return out
}
