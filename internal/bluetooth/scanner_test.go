package bluetooth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

// gatedAdapter blocks Scan on enter before the scan registers. A StopScan
// that arrives before registration is lost, as with the host stack.
type gatedAdapter struct {
	enter chan struct{}
	stop  chan struct{}

	mu         sync.Mutex
	registered bool
	stopped    bool
	stops      int
}

func newGatedAdapter() *gatedAdapter {
	return &gatedAdapter{enter: make(chan struct{}), stop: make(chan struct{})}
}

func (a *gatedAdapter) Enable() error { return nil }

func (a *gatedAdapter) Scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	<-a.enter
	a.mu.Lock()
	a.registered = true
	a.mu.Unlock()
	<-a.stop
	return nil
}

func (a *gatedAdapter) StopScan() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	if a.registered && !a.stopped {
		a.stopped = true
		close(a.stop)
	}
	return nil
}

func (a *gatedAdapter) DefaultAdvertisement() *bluetooth.Advertisement { return nil }

func (a *gatedAdapter) isRegistered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registered
}

func (r *TinyGoRadio) isScanning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanning
}

func TestTinyGoRadioCancelledStartKeepsScanUntilStopped(t *testing.T) {
	adapter := newGatedAdapter()
	r := &TinyGoRadio{
		adapter: adapter,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		grace:   time.Hour,
	}
	var events int
	var mu sync.Mutex
	r.Listen(func(Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Scan(ctx, nil, ScanOptions{}), context.Canceled)

	// the early stop was lost; the blocking scan is still alive
	assert.True(t, r.isScanning())
	assert.ErrorContains(t, r.Scan(context.Background(), nil, ScanOptions{}), "already in progress")

	close(adapter.enter)
	require.Eventually(t, adapter.isRegistered, time.Second, time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, r.StopScan(stopCtx))
	assert.False(t, r.isScanning())
	assert.Equal(t, 2, adapter.stops)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, events, "a cancelled start reports nothing")
}
