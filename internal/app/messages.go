package app

import (
	"time"

	"ble-beacon.klederson.com/internal/session"
)

// TickMsg triggers a frame update.
type TickMsg time.Time

// SweepMsg triggers a registry sweep.
type SweepMsg time.Time

// SetupDoneMsg reports the end of session setup.
type SetupDoneMsg struct {
	Err error
}

// OpDoneMsg reports the end of a start or stop request.
type OpDoneMsg struct {
	Op  session.Op
	Err error
}
