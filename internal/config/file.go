package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration, loaded from YAML and
// overridden by environment variables and command-line flags.
type Config struct {
	Adapter   string          `yaml:"adapter"`
	Demo      bool            `yaml:"demo"`
	Advertise AdvertiseConfig `yaml:"advertise"`
	Scan      ScanConfig      `yaml:"scan"`
	Log       LogConfig       `yaml:"log"`
	Logger    LoggerConfig    `yaml:"logger"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AdvertiseConfig controls what the broadcast advertises.
type AdvertiseConfig struct {
	ServiceUUID       string `yaml:"service_uuid"`
	CompanyID         uint16 `yaml:"company_id"`
	ManufacturerData  string `yaml:"manufacturer_data"` // hex encoded payload
	IncludeDeviceName bool   `yaml:"include_device_name"`
	IncludeTxPower    bool   `yaml:"include_tx_power"`
	LocalName         string `yaml:"local_name"` // empty = hostname
	AutoStart         bool   `yaml:"auto_start"` // headless only
}

// ScanConfig controls scanning and the device registry policy.
type ScanConfig struct {
	Policy        string        `yaml:"policy"` // "liveness-window" or "append-once"
	Window        time.Duration `yaml:"window"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	ServiceUUIDs  []string      `yaml:"service_uuids"`
	AutoStart     bool          `yaml:"auto_start"`
	TxPower       float64       `yaml:"tx_power"`
}

// LogConfig sizes the on-screen event log.
type LogConfig struct {
	Capacity int `yaml:"capacity"`
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stderr, stdout, discard or a file path
}

// MetricsConfig configures the Prometheus exporter. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Adapter: "hci0",
		Advertise: AdvertiseConfig{
			ServiceUUID:       DefaultServiceUUID,
			CompanyID:         DefaultCompanyID,
			IncludeDeviceName: true,
			IncludeTxPower:    true,
		},
		Scan: ScanConfig{
			Policy:        PolicyLivenessWindow,
			Window:        LivenessWindow,
			SweepInterval: SweepInterval,
			TxPower:       MeasuredPower,
		},
		Log: LogConfig{Capacity: LogCapacity},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads a YAML config file on top of the defaults and applies env var
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLEBEACON_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "ADAPTER"); v != "" {
		cfg.Adapter = v
	}
	if v := os.Getenv(EnvPrefix + "DEMO"); v != "" {
		demo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEMO: %w", EnvPrefix, err)
		}
		cfg.Demo = demo
	}
	if v := os.Getenv(EnvPrefix + "SERVICE_UUID"); v != "" {
		cfg.Advertise.ServiceUUID = v
	}
	if v := os.Getenv(EnvPrefix + "COMPANY_ID"); v != "" {
		id, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			return fmt.Errorf("%sCOMPANY_ID: %w", EnvPrefix, err)
		}
		cfg.Advertise.CompanyID = uint16(id)
	}
	if v := os.Getenv(EnvPrefix + "SCAN_POLICY"); v != "" {
		cfg.Scan.Policy = v
	}
	if v := os.Getenv(EnvPrefix + "SCAN_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSCAN_WINDOW: %w", EnvPrefix, err)
		}
		cfg.Scan.Window = d
	}
	if v := os.Getenv(EnvPrefix + "LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	return nil
}

// Validate checks the configuration for values the session cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Scan.Policy {
	case PolicyLivenessWindow, PolicyAppendOnce:
	default:
		return fmt.Errorf("scan.policy: unknown policy %q (want %s or %s)",
			cfg.Scan.Policy, PolicyLivenessWindow, PolicyAppendOnce)
	}
	if cfg.Scan.Policy == PolicyLivenessWindow && cfg.Scan.Window <= 0 {
		return fmt.Errorf("scan.window: must be positive, got %s", cfg.Scan.Window)
	}
	if cfg.Scan.SweepInterval <= 0 {
		return fmt.Errorf("scan.sweep_interval: must be positive, got %s", cfg.Scan.SweepInterval)
	}
	// zero would be read as "unset" by the registry and replaced with the default
	if cfg.Scan.TxPower >= 0 {
		return fmt.Errorf("scan.tx_power: must be a negative dBm value, got %v", cfg.Scan.TxPower)
	}
	if cfg.Log.Capacity <= 0 {
		return fmt.Errorf("log.capacity: must be positive, got %d", cfg.Log.Capacity)
	}
	if strings.TrimSpace(cfg.Advertise.ServiceUUID) == "" {
		return fmt.Errorf("advertise.service_uuid: required")
	}
	if _, err := cfg.Advertise.Payload(); err != nil {
		return err
	}
	return nil
}

// Payload decodes the hex manufacturer data.
func (a AdvertiseConfig) Payload() ([]byte, error) {
	s := strings.TrimPrefix(strings.ReplaceAll(a.ManufacturerData, " ", ""), "0x")
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("advertise.manufacturer_data: %w", err)
	}
	return b, nil
}
