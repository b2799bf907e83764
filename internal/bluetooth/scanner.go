package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"ble-beacon.klederson.com/internal/config"
	"tinygo.org/x/bluetooth"
)

// hostAdapter is the part of *bluetooth.Adapter the radio uses.
type hostAdapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
	DefaultAdvertisement() *bluetooth.Advertisement
}

// TinyGoRadio drives the host adapter through tinygo.org/x/bluetooth.
type TinyGoRadio struct {
	emitter

	adapter hostAdapter
	logger  *slog.Logger
	grace   time.Duration

	mu          sync.Mutex
	enabled     bool
	companyID   uint16
	hasCompany  bool
	adv         *bluetooth.Advertisement
	advertising bool
	scanning    bool
	scanDone    chan struct{}
}

// NewTinyGoRadio creates a radio on the default adapter.
func NewTinyGoRadio(logger *slog.Logger) *TinyGoRadio {
	return &TinyGoRadio{
		adapter: bluetooth.DefaultAdapter,
		logger:  logger,
		grace:   config.ScanStartGrace,
	}
}

func (r *TinyGoRadio) enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return nil
	}
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}
	r.enabled = true
	return nil
}

// SetCompanyID enables the adapter and records the company id used to tag
// manufacturer data in later broadcasts.
func (r *TinyGoRadio) SetCompanyID(ctx context.Context, id uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.enable(); err != nil {
		return err
	}
	r.mu.Lock()
	r.companyID = id
	r.hasCompany = true
	r.mu.Unlock()
	return nil
}

// Broadcast configures and starts the default advertisement.
func (r *TinyGoRadio) Broadcast(ctx context.Context, serviceUUID string, manufacturerData []byte, opts BroadcastOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uuid, err := ParseServiceUUID(serviceUUID)
	if err != nil {
		return err
	}
	if err := r.enable(); err != nil {
		return err
	}

	if err := r.startAdvertising(uuid, manufacturerData, opts); err != nil {
		return err
	}
	r.emit(AdvertisingStarted{})
	return nil
}

func (r *TinyGoRadio) startAdvertising(uuid bluetooth.UUID, manufacturerData []byte, opts BroadcastOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.advertising {
		return errors.New("already advertising")
	}

	advOpts := bluetooth.AdvertisementOptions{
		ServiceUUIDs: []bluetooth.UUID{uuid},
	}
	if opts.IncludeDeviceName {
		advOpts.LocalName = localName(opts.LocalName)
	}
	if r.hasCompany {
		advOpts.ManufacturerData = []bluetooth.ManufacturerDataElement{
			{CompanyID: r.companyID, Data: manufacturerData},
		}
	}
	if opts.IncludeTxPowerLevel {
		r.logger.Debug("tx power level is chosen by the host stack; option ignored")
	}

	if r.adv == nil {
		r.adv = r.adapter.DefaultAdvertisement()
	}
	if err := r.adv.Configure(advOpts); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := r.adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	r.advertising = true
	return nil
}

// StopBroadcast takes the advertisement down. Stopping while idle is a no-op.
func (r *TinyGoRadio) StopBroadcast(ctx context.Context) error {
	r.mu.Lock()
	if !r.advertising || r.adv == nil {
		r.mu.Unlock()
		return nil
	}
	if err := r.adv.Stop(); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("stop advertisement: %w", err)
	}
	r.advertising = false
	r.mu.Unlock()

	r.emit(AdvertisingStopped{})
	return nil
}

// Scan starts the blocking adapter scan in a goroutine. An error reported
// within the start grace period fails the call; later errors arrive as
// ScanFailed events.
func (r *TinyGoRadio) Scan(ctx context.Context, filters []string, opts ScanOptions) error {
	uuids, err := parseUUIDs(filters)
	if err != nil {
		return err
	}
	if err := r.enable(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return errors.New("scan already in progress")
	}
	r.scanning = true
	r.mu.Unlock()

	var seen map[string]bool
	if !opts.AllowDuplicates {
		seen = make(map[string]bool)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- r.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !matchesFilters(result, uuids) {
				return
			}
			id := result.Address.String()
			if seen != nil {
				if seen[id] {
					return
				}
				seen[id] = true
			}
			r.emit(DeviceFound{Observation{
				ID:   id,
				Name: resultName(result),
				RSSI: RSSI(result.RSSI),
			}})
		})
	}()

	select {
	case err := <-errc:
		r.setScanning(false)
		if err != nil {
			return fmt.Errorf("start scan: %w", err)
		}
		return errors.New("start scan: scan ended immediately")
	case <-ctx.Done():
		// The stop may land before the scan registered, so the scan stays
		// marked running until its goroutine exits. StopScan retries.
		_ = r.adapter.StopScan()
		r.watchScan(errc, false)
		return ctx.Err()
	case <-time.After(r.grace):
	}

	r.emit(ScanStarted{})
	r.watchScan(errc, true)
	return nil
}

// watchScan clears the scanning flag once the blocking scan returns.
// Started scans report how they ended.
func (r *TinyGoRadio) watchScan(errc <-chan error, started bool) {
	done := make(chan struct{})
	r.mu.Lock()
	r.scanDone = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		err := <-errc
		r.setScanning(false)
		if !started {
			return
		}
		if err != nil {
			r.emit(ScanFailed{Err: err})
		}
		r.emit(ScanStopped{})
	}()
}

// StopScan halts a running scan and waits for the scan goroutine to exit.
// Stopping while idle is a no-op.
func (r *TinyGoRadio) StopScan(ctx context.Context) error {
	r.mu.Lock()
	scanning, done := r.scanning, r.scanDone
	r.mu.Unlock()
	if !scanning {
		return nil
	}
	if err := r.adapter.StopScan(); err != nil {
		return fmt.Errorf("stop scan: %w", err)
	}
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scan: %w", ctx.Err())
	}
}

func (r *TinyGoRadio) setScanning(v bool) {
	r.mu.Lock()
	r.scanning = v
	r.mu.Unlock()
}

func parseUUIDs(filters []string) ([]bluetooth.UUID, error) {
	uuids := make([]bluetooth.UUID, 0, len(filters))
	for _, f := range filters {
		u, err := ParseServiceUUID(f)
		if err != nil {
			return nil, err
		}
		uuids = append(uuids, u)
	}
	return uuids, nil
}

// ParseServiceUUID accepts full 128-bit UUIDs and 16-bit short forms
// such as "180D".
func ParseServiceUUID(s string) (bluetooth.UUID, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		s = "0000" + s + "-0000-1000-8000-00805F9B34FB"
	}
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("invalid service uuid %q: %w", s, err)
	}
	return u, nil
}

func matchesFilters(result bluetooth.ScanResult, uuids []bluetooth.UUID) bool {
	if len(uuids) == 0 {
		return true
	}
	for _, u := range uuids {
		if result.HasServiceUUID(u) {
			return true
		}
	}
	return false
}

// resultName prefers the advertised local name, then the manufacturer of a
// known company id.
func resultName(result bluetooth.ScanResult) string {
	if name := result.LocalName(); name != "" {
		return name
	}
	for _, md := range result.ManufacturerData() {
		if name := LookupManufacturer(md.CompanyID); name != "" {
			return name + " device"
		}
	}
	return ""
}

func localName(name string) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return config.AppName
	}
	return host
}
