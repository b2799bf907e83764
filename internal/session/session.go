// Package session owns one advertise/scan session: the radio, the device
// registry, the event log and the broadcast/scan state machines. A Session
// is created when the screen starts and must be closed when it ends.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ble-beacon.klederson.com/internal/bluetooth"
	"ble-beacon.klederson.com/internal/config"
	"ble-beacon.klederson.com/internal/metrics"
	"github.com/oklog/ulid/v2"
)

const teardownTimeout = 2 * time.Second

// Alerter surfaces a failure to the user.
type Alerter interface {
	Alert(title, message string)
}

// Options wires a Session. Radio, Permissions and Registry are required.
type Options struct {
	Radio       bluetooth.Radio
	Permissions bluetooth.PermissionAuthority
	Registry    bluetooth.Registry
	Alerter     Alerter
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	Now         func() time.Time

	LogCapacity      int
	ServiceUUID      string
	CompanyID        uint16
	ManufacturerData []byte
	Broadcast        bluetooth.BroadcastOptions
	ScanFilters      []string
	TxPower          float64
	AutoScan         bool // start scanning at the end of Setup
}

// Session is safe for concurrent use. Radio callbacks, timer ticks and
// user actions may arrive on different goroutines.
type Session struct {
	id       string
	opts     Options
	radio    bluetooth.Radio
	registry bluetooth.Registry
	log      *EventLog
	alerts   Alerter
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	broadcast *Control
	scan      *Control

	mu          sync.Mutex
	unsubscribe func()
	closeOnce   sync.Once
	closed      atomic.Bool
}

// New creates a session. Nothing touches the radio until Setup.
func New(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = config.LogCapacity
	}
	if opts.TxPower == 0 {
		opts.TxPower = config.MeasuredPower
	}
	if opts.Alerter == nil {
		opts.Alerter = nopAlerter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := ulid.Make().String()
	return &Session{
		id:        id,
		opts:      opts,
		radio:     opts.Radio,
		registry:  opts.Registry,
		log:       NewEventLog(opts.LogCapacity, opts.Now),
		alerts:    opts.Alerter,
		logger:    opts.Logger.With("session", id),
		metrics:   opts.Metrics,
		now:       opts.Now,
		broadcast: NewControl("broadcast"),
		scan:      NewControl("scan"),
	}
}

// ID is the session's ULID.
func (s *Session) ID() string { return s.id }

// Setup subscribes to radio events, requests permissions and sets the
// company id. Permission denials are logged but do not stop the session.
// A failure is logged and alerted once and returned as an *OpError.
func (s *Session) Setup(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.radio.Listen(s.HandleEvent)
	}
	s.mu.Unlock()

	err := s.setup(ctx)
	if err != nil {
		err = s.fail(OpSetup, err)
	}

	if s.opts.AutoScan {
		_ = s.StartScan(ctx)
	}
	return err
}

func (s *Session) setup(ctx context.Context) error {
	s.log.Append("Initializing BLE setup...")

	grants, err := s.opts.Permissions.Request(ctx, bluetooth.AllPermissions)
	if err != nil {
		return err
	}
	s.log.Append("Permissions requested")
	for _, p := range bluetooth.AllPermissions {
		g, ok := grants[p]
		if !ok {
			continue
		}
		s.logger.Debug("permission", "permission", p, "grant", g)
		if g != bluetooth.Granted {
			s.log.Append(fmt.Sprintf("Permission %s: %s", p, g))
			s.logger.Warn("permission denied, continuing", "permission", p)
		}
	}

	if err := s.radio.SetCompanyID(ctx, s.opts.CompanyID); err != nil {
		return err
	}
	s.logger.Info("company id set", "company", bluetooth.CompanyLabel(s.opts.CompanyID))
	return nil
}

// StartBroadcast starts advertising the service UUID.
func (s *Session) StartBroadcast(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.broadcast.BeginStart(); err != nil {
		return err
	}
	s.recordState(s.broadcast)

	err := s.radio.Broadcast(ctx, s.opts.ServiceUUID, s.opts.ManufacturerData, s.opts.Broadcast)
	if err == nil && s.closed.Load() {
		s.undoStart(OpStopBroadcast, s.radio.StopBroadcast)
		return ErrClosed
	}
	s.broadcast.FinishStart(err == nil)
	s.recordState(s.broadcast)
	if err != nil {
		return s.fail(OpBroadcast, err)
	}

	s.log.Append("Broadcast started")
	s.logger.Info("broadcast started", "service_uuid", s.opts.ServiceUUID)
	return nil
}

// StopBroadcast stops advertising.
func (s *Session) StopBroadcast(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.broadcast.BeginStop(); err != nil {
		return err
	}
	s.recordState(s.broadcast)

	err := s.radio.StopBroadcast(ctx)
	s.broadcast.FinishStop(err == nil)
	s.recordState(s.broadcast)
	if err != nil {
		return s.fail(OpStopBroadcast, err)
	}

	s.log.Append("Broadcast stopped")
	s.logger.Info("broadcast stopped")
	return nil
}

// StartScan clears the registry and starts scanning.
func (s *Session) StartScan(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.scan.BeginStart(); err != nil {
		return err
	}
	s.recordState(s.scan)

	s.registry.Reset()
	s.metrics.DevicesReset()

	opts := bluetooth.ScanOptions{
		// the liveness window needs every advertisement, append-once only the first
		AllowDuplicates: s.registry.Policy() == bluetooth.PolicyLivenessWindow,
	}
	err := s.radio.Scan(ctx, s.opts.ScanFilters, opts)
	if err == nil && s.closed.Load() {
		s.undoStart(OpStopScan, s.radio.StopScan)
		return ErrClosed
	}
	s.scan.FinishStart(err == nil)
	s.recordState(s.scan)
	if err != nil {
		return s.fail(OpScan, err)
	}

	s.log.Append("Scan started")
	s.logger.Info("scan started", "policy", s.registry.Policy(), "filters", s.opts.ScanFilters)
	return nil
}

// StopScan stops scanning. Registry contents are kept.
func (s *Session) StopScan(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.scan.BeginStop(); err != nil {
		return err
	}
	s.recordState(s.scan)

	err := s.radio.StopScan(ctx)
	s.scan.FinishStop(err == nil)
	s.recordState(s.scan)
	if err != nil {
		return s.fail(OpStopScan, err)
	}

	s.log.Append("Scan stopped")
	s.logger.Info("scan stopped")
	return nil
}

// HandleEvent applies a radio event. Events that arrive after Close are
// dropped.
func (s *Session) HandleEvent(e bluetooth.Event) {
	if s.closed.Load() {
		return
	}

	switch ev := e.(type) {
	case bluetooth.DeviceFound:
		if !s.registry.Observe(ev.Observation, s.now()) {
			return
		}
		dist, ok := bluetooth.EstimateDistance(ev.RSSI, s.opts.TxPower)
		s.metrics.DeviceObserved(ev.ID, ev.RSSI.Value, dist, ok)
		s.metrics.SetVisible(s.registry.Count())
		s.logger.Debug("device observed", "id", ev.ID, "name", ev.Name, "rssi", ev.RSSI.Value)

	case bluetooth.ScanFailed:
		s.log.Append(ev.String())
		s.logger.Warn("scan failed", "error", ev.Err)

	case bluetooth.ScanStopped:
		s.log.Append(ev.String())
		// the radio stopped on its own; follow it
		if s.scan.settle(Active, Idle) == Idle {
			s.recordState(s.scan)
		}

	case bluetooth.AdvertisingStopped:
		s.log.Append(ev.String())
		if s.broadcast.settle(Active, Idle) == Idle {
			s.recordState(s.broadcast)
		}

	default:
		s.log.Append(e.String())
	}
}

// Sweep expires stale registry entries and returns their ids.
func (s *Session) Sweep(now time.Time) []string {
	expired := s.registry.Sweep(now)
	if len(expired) > 0 {
		s.metrics.DevicesExpired(expired)
		s.metrics.SetVisible(s.registry.Count())
		s.logger.Debug("devices expired", "ids", expired)
	}
	return expired
}

// Close stops broadcasting and scanning, ignoring any failure, and detaches
// from radio events. It runs once; later calls do nothing.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}

		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		s.bestEffort(OpStopBroadcast, func() error { return s.radio.StopBroadcast(ctx) })
		s.bestEffort(OpStopScan, func() error { return s.radio.StopScan(ctx) })

		s.broadcast.Reset()
		s.scan.Reset()
		s.logger.Info("session closed")
	})
}

// undoStart stops a radio function whose start completed after Close had
// already run its own stops.
func (s *Session) undoStart(op Op, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	s.bestEffort(op, func() error { return stop(ctx) })
	s.logger.Info("start finished after close, radio stopped", "op", op)
}

func (s *Session) bestEffort(op Op, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("teardown panic ignored", "op", op, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		s.logger.Debug("teardown error ignored", "op", op, "error", err)
	}
}

// fail records a failure once in the log, once as an alert and in metrics.
func (s *Session) fail(op Op, err error) error {
	oe := &OpError{Op: op, Err: err}
	s.log.Append(fmt.Sprintf("%s error: %s", logLabels[op], oe.Message()))
	s.alerts.Alert("Error", fmt.Sprintf("%s: %s", alertLabels[op], oe.Message()))
	s.metrics.RadioFailure(string(op))
	s.logger.Error("radio operation failed", "op", op, "error", err)
	return oe
}

var logLabels = map[Op]string{
	OpSetup:         "Setup",
	OpBroadcast:     "Broadcast",
	OpStopBroadcast: "Stop broadcast",
	OpScan:          "Scan",
	OpStopScan:      "Stop scan",
}

var alertLabels = map[Op]string{
	OpSetup:         "BLE init error",
	OpBroadcast:     "Broadcast failed",
	OpStopBroadcast: "Stop failed",
	OpScan:          "Scan failed",
	OpStopScan:      "Stop scan failed",
}

func (s *Session) recordState(c *Control) {
	s.metrics.SetRadioState(c.Name(), int(c.State()))
}

// Devices returns a snapshot of the registry.
func (s *Session) Devices() []bluetooth.Device { return s.registry.Snapshot() }

// DeviceCount returns the registry size.
func (s *Session) DeviceCount() int { return s.registry.Count() }

// Log returns the event log, newest first.
func (s *Session) Log() []Entry { return s.log.Entries() }

// BroadcastState returns the broadcast state machine position.
func (s *Session) BroadcastState() State { return s.broadcast.State() }

// ScanState returns the scan state machine position.
func (s *Session) ScanState() State { return s.scan.State() }

// IsBroadcasting mirrors the broadcast flag shown to the user.
func (s *Session) IsBroadcasting() bool { return s.broadcast.IsActive() }

// IsScanning mirrors the scan flag shown to the user.
func (s *Session) IsScanning() bool { return s.scan.IsActive() }

// Policy returns the registry policy.
func (s *Session) Policy() bluetooth.Policy { return s.registry.Policy() }

// TxPower returns the distance calibration in use.
func (s *Session) TxPower() float64 { return s.opts.TxPower }

// CompanyID returns the configured advertiser company id.
func (s *Session) CompanyID() uint16 { return s.opts.CompanyID }

// Closed reports whether Close has run.
func (s *Session) Closed() bool { return s.closed.Load() }

type nopAlerter struct{}

func (nopAlerter) Alert(string, string) {}
