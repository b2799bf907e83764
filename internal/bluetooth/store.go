package bluetooth

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"ble-beacon.klederson.com/internal/config"
)

// Policy selects how the registry treats presence.
type Policy string

const (
	// PolicyLivenessWindow keeps a device only while it keeps advertising.
	PolicyLivenessWindow Policy = config.PolicyLivenessWindow
	// PolicyAppendOnce keeps every device for the rest of the scan session.
	PolicyAppendOnce Policy = config.PolicyAppendOnce
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyLivenessWindow, PolicyAppendOnce:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown registry policy %q", s)
}

// Registry tracks the set of currently visible devices.
type Registry interface {
	// Observe records a device-found report. It returns true if the
	// registry changed.
	Observe(obs Observation, now time.Time) bool
	// Sweep drops expired entries and returns their ids.
	Sweep(now time.Time) []string
	// Snapshot returns a copy of all entries.
	Snapshot() []Device
	Count() int
	Reset()
	Policy() Policy
}

// RegistryConfig configures NewRegistry.
type RegistryConfig struct {
	Policy  Policy
	Window  time.Duration // liveness window, ignored by append-once
	TxPower float64       // calibration for distance estimates, 0 = MeasuredPower
}

// NewRegistry builds the registry for the configured policy. A zero TxPower
// means unset; config validation rejects it as a calibration value.
func NewRegistry(cfg RegistryConfig) Registry {
	if cfg.TxPower == 0 {
		cfg.TxPower = config.MeasuredPower
	}
	if cfg.Policy == PolicyAppendOnce {
		return NewAppendOnceStore(cfg.TxPower)
	}
	if cfg.Window <= 0 {
		cfg.Window = config.LivenessWindow
	}
	return NewDeviceStore(cfg.Window, cfg.TxPower)
}

// DeviceStore is a thread-safe liveness-windowed registry. Every accepted
// observation refreshes the entry; Sweep removes entries older than the window.
type DeviceStore struct {
	mu      sync.RWMutex
	devices map[string]*Device
	window  time.Duration
	txPower float64
}

// NewDeviceStore creates an empty liveness-windowed store.
func NewDeviceStore(window time.Duration, txPower float64) *DeviceStore {
	return &DeviceStore{
		devices: make(map[string]*Device),
		window:  window,
		txPower: txPower,
	}
}

// Observe inserts or overwrites the entry for obs.ID. Reports without a
// name or without an RSSI value are ignored.
func (s *DeviceStore) Observe(obs Observation, now time.Time) bool {
	if obs.Name == "" || !obs.RSSI.OK {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := newDevice(obs, now, s.txPower)
	s.devices[obs.ID] = &d
	return true
}

// Sweep removes devices whose last observation is at least one window old.
func (s *DeviceStore) Sweep(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, dev := range s.devices {
		if now.Sub(dev.LastSeen) >= s.window {
			delete(s.devices, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// Snapshot returns a sorted copy of all devices (strongest RSSI first).
func (s *DeviceStore) Snapshot() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		result = append(result, *d)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RSSI.Value != result[j].RSSI.Value {
			return result[i].RSSI.Value > result[j].RSSI.Value // less negative first
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Count returns the number of tracked devices.
func (s *DeviceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// Reset drops every entry.
func (s *DeviceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = make(map[string]*Device)
}

// Window returns the liveness window.
func (s *DeviceStore) Window() time.Duration { return s.window }

func (s *DeviceStore) Policy() Policy { return PolicyLivenessWindow }

// AppendOnceStore keeps the first observation of every id for the life of
// the scan session, in first-seen order.
type AppendOnceStore struct {
	mu      sync.RWMutex
	order   []Device
	index   map[string]struct{}
	txPower float64
}

// NewAppendOnceStore creates an empty append-once store.
func NewAppendOnceStore(txPower float64) *AppendOnceStore {
	return &AppendOnceStore{
		index:   make(map[string]struct{}),
		txPower: txPower,
	}
}

// Observe appends obs if its id is unknown. Later reports for the same id
// are ignored, so name and RSSI keep their first-seen values.
func (s *AppendOnceStore) Observe(obs Observation, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[obs.ID]; ok {
		return false
	}
	s.index[obs.ID] = struct{}{}
	s.order = append(s.order, newDevice(obs, now, s.txPower))
	return true
}

// Sweep never expires anything.
func (s *AppendOnceStore) Sweep(time.Time) []string { return nil }

// Snapshot returns a copy in first-seen order.
func (s *AppendOnceStore) Snapshot() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Device, len(s.order))
	copy(result, s.order)
	return result
}

func (s *AppendOnceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *AppendOnceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.index = make(map[string]struct{})
}

func (s *AppendOnceStore) Policy() Policy { return PolicyAppendOnce }
