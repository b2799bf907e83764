package bluetooth

import (
	"context"
	"fmt"
	"sync"
)

// BroadcastOptions mirror the advertiser options exposed by native stacks.
type BroadcastOptions struct {
	IncludeDeviceName   bool
	IncludeTxPowerLevel bool
	LocalName           string // used when IncludeDeviceName is set
}

// ScanOptions tune a scan.
type ScanOptions struct {
	AllowDuplicates bool
}

// Radio is the boundary to the platform BLE stack. Each call either
// succeeds or returns an error with a human-readable message; results of
// asynchronous radio activity arrive as Events.
type Radio interface {
	SetCompanyID(ctx context.Context, id uint16) error
	Broadcast(ctx context.Context, serviceUUID string, manufacturerData []byte, opts BroadcastOptions) error
	StopBroadcast(ctx context.Context) error
	Scan(ctx context.Context, filters []string, opts ScanOptions) error
	StopScan(ctx context.Context) error
	// Listen registers h for radio events until cancel is called.
	Listen(h EventHandler) (cancel func())
}

// Event is a message emitted by a Radio.
type Event interface {
	fmt.Stringer
	radioEvent()
}

// EventHandler receives radio events. It may be called from any goroutine.
type EventHandler func(Event)

// DeviceFound is emitted for every advertisement a scan receives.
type DeviceFound struct {
	Observation
}

// ScanStarted is emitted once the radio is scanning.
type ScanStarted struct{}

// ScanStopped is emitted when scanning ends.
type ScanStopped struct{}

// ScanFailed is emitted when a running scan ends with an error.
type ScanFailed struct {
	Err error
}

// AdvertisingStarted is emitted once the advertisement is on air.
type AdvertisingStarted struct{}

// AdvertisingStopped is emitted when the advertisement is taken down.
type AdvertisingStopped struct{}

func (DeviceFound) radioEvent()        {}
func (ScanStarted) radioEvent()        {}
func (ScanStopped) radioEvent()        {}
func (ScanFailed) radioEvent()         {}
func (AdvertisingStarted) radioEvent() {}
func (AdvertisingStopped) radioEvent() {}

func (e DeviceFound) String() string {
	return fmt.Sprintf("Device found: %s", e.ID)
}
func (ScanStarted) String() string        { return "Scan started" }
func (ScanStopped) String() string        { return "Scan stopped" }
func (e ScanFailed) String() string       { return fmt.Sprintf("Scan error: %v", e.Err) }
func (AdvertisingStarted) String() string { return "Advertising started" }
func (AdvertisingStopped) String() string { return "Advertising stopped" }

// emitter fans events out to registered handlers.
type emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[int]EventHandler
}

func (e *emitter) Listen(h EventHandler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]EventHandler)
	}
	id := e.next
	e.next++
	e.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	hs := make([]EventHandler, 0, len(e.handlers))
	for _, h := range e.handlers {
		hs = append(hs, h)
	}
	e.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}
