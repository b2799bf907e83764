package bluetooth

import (
	"math"
	"time"
)

// Reading is an optional RSSI value in dBm. The zero Reading is absent.
type Reading struct {
	Value int16
	OK    bool
}

// RSSI wraps a reported signal strength.
func RSSI(dbm int16) Reading {
	return Reading{Value: dbm, OK: true}
}

// NoRSSI is the absent reading.
var NoRSSI = Reading{}

// Observation is one device-found report from the radio.
type Observation struct {
	ID   string // stable peripheral identifier (MAC or platform UUID)
	Name string // empty when the peripheral did not advertise a name
	RSSI Reading
}

// Device is a registry entry for a peripheral that has been observed.
type Device struct {
	ID          string
	Name        string
	RSSI        Reading
	LastSeen    time.Time
	Distance    float64 // Estimated distance in meters, valid when HasDistance
	HasDistance bool
}

// DisplayName returns the device name or "Unnamed Device" if empty.
func (d *Device) DisplayName() string {
	if d.Name == "" {
		return "Unnamed Device"
	}
	return d.Name
}

// EstimateDistance maps an RSSI reading to meters using a free-space
// path loss model calibrated by txPower (RSSI at 1 meter).
// Formula: d = 10^((txPower - rssi) / 20), rounded to 2 decimal places.
//
// The result is unavailable for an absent reading and for 0 dBm, which no
// receiver reports for a real advertisement.
func EstimateDistance(rssi Reading, txPower float64) (float64, bool) {
	if !rssi.OK || rssi.Value == 0 {
		return 0, false
	}
	ratio := (txPower - float64(rssi.Value)) / 20.0
	d := math.Pow(10, ratio)
	return math.Round(d*100) / 100, true
}

func newDevice(obs Observation, now time.Time, txPower float64) Device {
	dist, ok := EstimateDistance(obs.RSSI, txPower)
	return Device{
		ID:          obs.ID,
		Name:        obs.Name,
		RSSI:        obs.RSSI,
		LastSeen:    now,
		Distance:    dist,
		HasDistance: ok,
	}
}
