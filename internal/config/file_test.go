package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, PolicyLivenessWindow, cfg.Scan.Policy)
	assert.Equal(t, 3*time.Second, cfg.Scan.Window)
	assert.Equal(t, time.Second, cfg.Scan.SweepInterval)
	assert.Equal(t, 20, cfg.Log.Capacity)
	assert.Equal(t, uint16(0x004C), cfg.Advertise.CompanyID)
	assert.Equal(t, -59.0, cfg.Scan.TxPower)
	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
adapter: hci1
advertise:
  company_id: 0x0059
  manufacturer_data: "0102ff"
scan:
  policy: append-once
  window: 5s
  service_uuids: ["180d"]
log:
  capacity: 50
logger:
  level: debug
metrics:
  addr: ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hci1", cfg.Adapter)
	assert.Equal(t, uint16(0x0059), cfg.Advertise.CompanyID)
	assert.Equal(t, PolicyAppendOnce, cfg.Scan.Policy)
	assert.Equal(t, 5*time.Second, cfg.Scan.Window)
	assert.Equal(t, []string{"180d"}, cfg.Scan.ServiceUUIDs)
	assert.Equal(t, 50, cfg.Log.Capacity)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultServiceUUID, cfg.Advertise.ServiceUUID)

	payload, err := cfg.Advertise.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0xff}, payload)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [oops"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLEBEACON_SCAN_POLICY", "append-once")
	t.Setenv("BLEBEACON_COMPANY_ID", "0x00E0")
	t.Setenv("BLEBEACON_SCAN_WINDOW", "1500ms")
	t.Setenv("BLEBEACON_DEMO", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAppendOnce, cfg.Scan.Policy)
	assert.Equal(t, uint16(0x00E0), cfg.Advertise.CompanyID)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scan.Window)
	assert.True(t, cfg.Demo)
}

func TestEnvDemoFalseOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ble-beacon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("demo: true\n"), 0600))
	t.Setenv("BLEBEACON_DEMO", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Demo)
}

func TestEnvDemoRejectsGarbage(t *testing.T) {
	t.Setenv("BLEBEACON_DEMO", "sometimes")
	_, err := Load("")
	assert.ErrorContains(t, err, "BLEBEACON_DEMO")
}

func TestLoadYAMLZeroTxPowerRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ble-beacon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  tx_power: 0\n"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "scan.tx_power")
}

func TestEnvOverrideBadCompanyID(t *testing.T) {
	t.Setenv("BLEBEACON_COMPANY_ID", "0x1FFFF")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown policy", func(c *Config) { c.Scan.Policy = "forever" }},
		{"zero window", func(c *Config) { c.Scan.Window = 0 }},
		{"zero sweep", func(c *Config) { c.Scan.SweepInterval = 0 }},
		{"zero log capacity", func(c *Config) { c.Log.Capacity = 0 }},
		{"empty service uuid", func(c *Config) { c.Advertise.ServiceUUID = " " }},
		{"bad payload", func(c *Config) { c.Advertise.ManufacturerData = "zz" }},
		{"zero tx power", func(c *Config) { c.Scan.TxPower = 0 }},
		{"positive tx power", func(c *Config) { c.Scan.TxPower = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAppendOnceIgnoresWindow(t *testing.T) {
	cfg := Defaults()
	cfg.Scan.Policy = PolicyAppendOnce
	cfg.Scan.Window = 0
	assert.NoError(t, Validate(cfg))
}
