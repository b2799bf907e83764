package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"ble-beacon.klederson.com/internal/config"
)

var mockDeviceNames = []string{
	"iPhone 15 Pro",
	"Galaxy S24 Ultra",
	"Pixel 9 Pro",
	"AirPods Pro",
	"Apple Watch",
	"Fitbit Charge 6",
	"Tile Tracker",
	"Polar H10",
	"Garmin HRM-Pro",
	"iPad Pro",
	"OnePlus Buds 3",
	"Oura Ring",
}

type mockDevice struct {
	id        string
	name      string
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// MockRadio fakes a BLE stack for demo mode. Scanning emits a fluctuating
// population of synthetic devices; advertising only validates its input.
type MockRadio struct {
	emitter

	interval time.Duration
	rng      *rand.Rand
	devices  []mockDevice

	mu          sync.Mutex
	companyID   uint16
	advertising bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewMockRadio creates a demo radio with a random device population.
func NewMockRadio() *MockRadio {
	return newMockRadio(rand.New(rand.NewSource(time.Now().UnixNano())), 200*time.Millisecond)
}

func newMockRadio(rng *rand.Rand, interval time.Duration) *MockRadio {
	n := config.DemoDeviceMin + rng.Intn(config.DemoDeviceMax-config.DemoDeviceMin+1)
	if n > len(mockDeviceNames) {
		n = len(mockDeviceNames)
	}
	perm := rng.Perm(len(mockDeviceNames))

	devices := make([]mockDevice, n)
	for i := range devices {
		devices[i] = mockDevice{
			id:        randomMAC(rng),
			name:      mockDeviceNames[perm[i]],
			baseRSSI:  -40 - rng.Float64()*50, // -40 to -90 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 3 + rng.Float64()*8, // 3-11 dBm fluctuation
			active:    true,
		}
	}
	return &MockRadio{interval: interval, rng: rng, devices: devices}
}

func (m *MockRadio) SetCompanyID(ctx context.Context, id uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.companyID = id
	m.mu.Unlock()
	return nil
}

func (m *MockRadio) Broadcast(ctx context.Context, serviceUUID string, _ []byte, _ BroadcastOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ParseServiceUUID(serviceUUID); err != nil {
		return err
	}
	m.mu.Lock()
	if m.advertising {
		m.mu.Unlock()
		return errors.New("already advertising")
	}
	m.advertising = true
	m.mu.Unlock()

	m.emit(AdvertisingStarted{})
	return nil
}

func (m *MockRadio) StopBroadcast(context.Context) error {
	m.mu.Lock()
	was := m.advertising
	m.advertising = false
	m.mu.Unlock()
	if was {
		m.emit(AdvertisingStopped{})
	}
	return nil
}

func (m *MockRadio) Scan(ctx context.Context, filters []string, opts ScanOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := parseUUIDs(filters); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return errors.New("scan already in progress")
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx, m.done, opts.AllowDuplicates)
	return nil
}

func (m *MockRadio) StopScan(context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (m *MockRadio) loop(ctx context.Context, done chan struct{}, allowDup bool) {
	defer close(done)
	m.emit(ScanStarted{})
	defer m.emit(ScanStopped{})

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var seen map[string]bool
	if !allowDup {
		seen = make(map[string]bool)
	}

	t := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t += m.interval.Seconds()
			m.emitDevices(t, seen)
		}
	}
}

func (m *MockRadio) emitDevices(t float64, seen map[string]bool) {
	for i := range m.devices {
		d := &m.devices[i]

		// Randomly toggle device visibility (appear/disappear)
		if m.rng.Float64() < 0.01 {
			d.active = !d.active
		}
		if !d.active {
			continue
		}
		if seen != nil {
			if seen[d.id] {
				continue
			}
			seen[d.id] = true
		}

		// Sinusoidal RSSI fluctuation + noise
		rssi := d.baseRSSI + d.amplitude*math.Sin(t*0.5+d.phase) + (m.rng.Float64()-0.5)*4

		name := d.name
		// Some advertisements carry no name (realistic)
		if m.rng.Float64() < 0.05 {
			name = ""
		}

		m.emit(DeviceFound{Observation{
			ID:   d.id,
			Name: name,
			RSSI: RSSI(int16(rssi)),
		}})
	}
}

func randomMAC(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

// CompanyID returns the last company id set on the radio.
func (m *MockRadio) CompanyID() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.companyID
}
