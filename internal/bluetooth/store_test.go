package bluetooth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func obs(id, name string, rssi int16) Observation {
	return Observation{ID: id, Name: name, RSSI: RSSI(rssi)}
}

func TestNewRegistryPolicy(t *testing.T) {
	assert.Equal(t, PolicyLivenessWindow, NewRegistry(RegistryConfig{}).Policy())
	assert.Equal(t, PolicyAppendOnce, NewRegistry(RegistryConfig{Policy: PolicyAppendOnce}).Policy())

	s := NewRegistry(RegistryConfig{Policy: PolicyLivenessWindow}).(*DeviceStore)
	assert.Equal(t, 3*time.Second, s.Window())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("append-once")
	require.NoError(t, err)
	assert.Equal(t, PolicyAppendOnce, p)

	_, err = ParsePolicy("sticky")
	assert.Error(t, err)
}

func TestDeviceStore_ObserveOverwrites(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)

	assert.True(t, s.Observe(obs("A", "Watch", -70), t0))
	assert.True(t, s.Observe(obs("A", "Watch 2", -60), t0.Add(time.Second)))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Watch 2", snap[0].Name)
	assert.Equal(t, int16(-60), snap[0].RSSI.Value)
	assert.Equal(t, t0.Add(time.Second), snap[0].LastSeen)
	assert.True(t, snap[0].HasDistance)
	assert.Equal(t, 1.12, snap[0].Distance)
}

func TestDeviceStore_IgnoresUnnamedAndMissingRSSI(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)

	assert.False(t, s.Observe(obs("A", "", -70), t0))
	assert.False(t, s.Observe(Observation{ID: "B", Name: "Tag"}, t0))
	assert.Equal(t, 0, s.Count())
}

func TestDeviceStore_LivenessWindow(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)
	s.Observe(obs("A", "Tag", -70), t0)

	for _, dt := range []time.Duration{0, time.Second, 2999 * time.Millisecond} {
		assert.Empty(t, s.Sweep(t0.Add(dt)), "swept at +%s", dt)
		assert.Equal(t, 1, s.Count(), "present at +%s", dt)
	}

	assert.Equal(t, []string{"A"}, s.Sweep(t0.Add(3*time.Second)))
	assert.Equal(t, 0, s.Count())
}

func TestDeviceStore_RefreshExtendsWindow(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)
	s.Observe(obs("A", "Tag", -70), t0)
	s.Observe(obs("A", "Tag", -71), t0.Add(2*time.Second))

	assert.Empty(t, s.Sweep(t0.Add(4*time.Second)))
	assert.Equal(t, []string{"A"}, s.Sweep(t0.Add(5*time.Second)))
}

func TestDeviceStore_SnapshotStrongestFirst(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)
	s.Observe(obs("far", "Far", -90), t0)
	s.Observe(obs("near", "Near", -40), t0)
	s.Observe(obs("mid", "Mid", -65), t0)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "near", snap[0].ID)
	assert.Equal(t, "mid", snap[1].ID)
	assert.Equal(t, "far", snap[2].ID)

	// Snapshot entries are copies
	snap[0].Name = "changed"
	assert.Equal(t, "Near", s.Snapshot()[0].Name)
}

func TestDeviceStore_Reset(t *testing.T) {
	s := NewDeviceStore(3*time.Second, -59)
	s.Observe(obs("A", "Tag", -70), t0)
	s.Reset()
	assert.Equal(t, 0, s.Count())
}

func TestAppendOnceStore_FirstObservationWins(t *testing.T) {
	s := NewAppendOnceStore(-59)

	assert.True(t, s.Observe(obs("A", "Tag", -70), t0))
	assert.False(t, s.Observe(obs("A", "Renamed", -40), t0.Add(time.Second)))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Tag", snap[0].Name)
	assert.Equal(t, int16(-70), snap[0].RSSI.Value)
	assert.Equal(t, t0, snap[0].LastSeen)
}

func TestAppendOnceStore_FirstSeenOrderAndNoExpiry(t *testing.T) {
	s := NewAppendOnceStore(-59)
	ids := []string{"C", "A", "B"}
	for i, id := range ids {
		s.Observe(obs(id, "", -50-int16(i)), t0)
	}

	assert.Nil(t, s.Sweep(t0.Add(time.Hour)))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	for i, id := range ids {
		assert.Equal(t, id, snap[i].ID)
	}
}

func TestAppendOnceStore_AcceptsUnnamed(t *testing.T) {
	s := NewAppendOnceStore(-59)
	assert.True(t, s.Observe(Observation{ID: "A"}, t0))

	d := s.Snapshot()[0]
	assert.Equal(t, "Unnamed Device", d.DisplayName())
	assert.False(t, d.HasDistance)
}

func TestAppendOnceStore_MonotonicUntilReset(t *testing.T) {
	s := NewAppendOnceStore(-59)
	prev := 0
	for i := 0; i < 50; i++ {
		s.Observe(obs(string(rune('A'+i%7)), "x", -60), t0)
		assert.GreaterOrEqual(t, s.Count(), prev)
		prev = s.Count()
	}
	assert.Equal(t, 7, prev)

	s.Reset()
	assert.Equal(t, 0, s.Count())
	assert.True(t, s.Observe(obs("A", "x", -60), t0))
}

func TestRegistriesConcurrentUse(t *testing.T) {
	for _, r := range []Registry{NewDeviceStore(time.Second, -59), NewAppendOnceStore(-59)} {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					r.Observe(obs(string(rune('a'+g)), "n", -60), t0)
					r.Snapshot()
					r.Sweep(t0)
				}
			}(g)
		}
		wg.Wait()
	}
}
