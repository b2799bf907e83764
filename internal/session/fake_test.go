package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/logging"
)

type fakeRadio struct {
	mu       sync.Mutex
	handlers []bluetooth.EventHandler
	calls    map[string]int
	errs     map[string]error
	panics   map[string]bool
	gates    map[string]chan struct{}
	company  uint16
	filters  []string
	scanOpts bluetooth.ScanOptions
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{
		calls:  map[string]int{},
		errs:   map[string]error{},
		panics: map[string]bool{},
		gates:  map[string]chan struct{}{},
	}
}

func (f *fakeRadio) failOn(op, msg string) { f.errs[op] = errors.New(msg) }

func (f *fakeRadio) call(op string) error {
	f.mu.Lock()
	f.calls[op]++
	err, panics, gate := f.errs[op], f.panics[op], f.gates[op]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if panics {
		panic(op + " exploded")
	}
	return err
}

// hold makes op block until the returned release func is called.
func (f *fakeRadio) hold(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeRadio) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRadio) SetCompanyID(_ context.Context, id uint16) error {
	f.company = id
	return f.call("company")
}

func (f *fakeRadio) Broadcast(context.Context, string, []byte, bluetooth.BroadcastOptions) error {
	if err := f.call("broadcast"); err != nil {
		return err
	}
	f.emit(bluetooth.AdvertisingStarted{})
	return nil
}

func (f *fakeRadio) StopBroadcast(context.Context) error { return f.call("stop-broadcast") }

func (f *fakeRadio) Scan(_ context.Context, filters []string, opts bluetooth.ScanOptions) error {
	f.filters, f.scanOpts = filters, opts
	return f.call("scan")
}

func (f *fakeRadio) StopScan(context.Context) error { return f.call("stop-scan") }

func (f *fakeRadio) Listen(h bluetooth.EventHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
	idx := len(f.handlers) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[idx] = nil
	}
}

func (f *fakeRadio) listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.handlers {
		if h != nil {
			n++
		}
	}
	return n
}

func (f *fakeRadio) emit(e bluetooth.Event) {
	f.mu.Lock()
	hs := append([]bluetooth.EventHandler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(e)
		}
	}
}

type fakePermissions struct {
	grants map[bluetooth.Permission]bluetooth.Grant
	err    error
}

func (p fakePermissions) Request(_ context.Context, perms []bluetooth.Permission) (map[bluetooth.Permission]bluetooth.Grant, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.grants != nil {
		return p.grants, nil
	}
	return bluetooth.AllowAll{}.Request(context.Background(), perms)
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []string
}

func (a *alertRecorder) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, title+": "+message)
}

func (a *alertRecorder) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.alerts...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	sess   *Session
	radio  *fakeRadio
	alerts *alertRecorder
	clock  *clock
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		radio:  newFakeRadio(),
		alerts: &alertRecorder{},
		clock:  &clock{now: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)},
	}
	opts := Options{
		Radio:       h.radio,
		Permissions: fakePermissions{},
		Registry:    bluetooth.NewRegistry(bluetooth.RegistryConfig{Policy: bluetooth.PolicyLivenessWindow, Window: 3 * time.Second}),
		Alerter:     h.alerts,
		Logger:      logging.Discard(),
		Now:         h.clock.Now,
		ServiceUUID: "180D",
		CompanyID:   0x004C,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.sess = New(opts)
	t.Cleanup(h.sess.Close)
	return h
}
