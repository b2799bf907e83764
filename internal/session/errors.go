package session

import (
	"errors"
	"fmt"
)

// Op names a radio operation driven by the session.
type Op string

const (
	OpSetup         Op = "setup"
	OpBroadcast     Op = "broadcast"
	OpStopBroadcast Op = "stop-broadcast"
	OpScan          Op = "scan"
	OpStopScan      Op = "stop-scan"
)

// Failure sentinels, one per operation. Match with errors.Is.
var (
	ErrSetup         = errors.New("setup failed")
	ErrBroadcast     = errors.New("broadcast failed")
	ErrStopBroadcast = errors.New("stop broadcast failed")
	ErrScan          = errors.New("scan failed")
	ErrStopScan      = errors.New("stop scan failed")

	// ErrInvalidState rejects a start or stop that the state machine does
	// not allow from its current state.
	ErrInvalidState = errors.New("invalid radio state")
	// ErrClosed rejects operations on a closed session.
	ErrClosed = errors.New("session closed")
)

var opSentinels = map[Op]error{
	OpSetup:         ErrSetup,
	OpBroadcast:     ErrBroadcast,
	OpStopBroadcast: ErrStopBroadcast,
	OpScan:          ErrScan,
	OpStopScan:      ErrStopScan,
}

// OpError wraps a failure reported by the radio or the permission authority.
type OpError struct {
	Op  Op
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is matches the sentinel for the failed operation.
func (e *OpError) Is(target error) bool {
	return opSentinels[e.Op] == target
}

// Message is the human-readable detail shown to the user.
func (e *OpError) Message() string {
	return e.Err.Error()
}
