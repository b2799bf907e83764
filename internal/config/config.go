package config

import "time"

const (
	// RSSI to distance estimation
	MeasuredPower = -59.0 // RSSI at 1 meter (dBm)

	// Advertising
	DefaultServiceUUID = "0000180D-0000-1000-8000-00805F9B34FB" // Heart Rate Service
	DefaultCompanyID   = 0x004C                                 // Apple, as used by iBeacon

	// Device registry
	PolicyLivenessWindow = "liveness-window"
	PolicyAppendOnce     = "append-once"
	LivenessWindow       = 3 * time.Second // Drop devices not seen for this long
	SweepInterval        = 1 * time.Second // How often to run the liveness sweep

	// Event log
	LogCapacity = 20

	// Scanner
	ScanStartGrace = 250 * time.Millisecond // Scan errors inside this window fail the start

	// Display
	TargetFPS      = 30
	RSSIHistoryLen = 60 // Samples kept per device for the sparkline
	OpTimeout      = 10 * time.Second

	// Demo mode
	DemoDeviceMin = 6
	DemoDeviceMax = 10

	// App
	AppName    = "BLE-BEACON"
	AppVersion = "1.0"
	EnvPrefix  = "BLEBEACON_"
)
