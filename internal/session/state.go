package session

import (
	"fmt"
	"sync"
)

// State is a radio's position in the start/stop lifecycle. Transitions
// happen only on confirmed completion of the radio call.
type State int

const (
	Idle State = iota
	Starting
	Active
	Stopping
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	default:
		return "Idle"
	}
}

// Control is the state machine for one radio function (broadcast or scan).
type Control struct {
	mu    sync.Mutex
	name  string
	state State
}

// NewControl creates an idle control.
func NewControl(name string) *Control {
	return &Control{name: name}
}

func (c *Control) Name() string { return c.name }

// State returns the current state.
func (c *Control) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsActive reports whether a start has been confirmed and no stop has been.
func (c *Control) IsActive() bool {
	return c.State() == Active
}

// BeginStart moves Idle to Starting.
func (c *Control) BeginStart() error {
	return c.move(Idle, Starting)
}

// FinishStart moves Starting to Active on success or back to Idle.
func (c *Control) FinishStart(ok bool) State {
	if ok {
		return c.settle(Starting, Active)
	}
	return c.settle(Starting, Idle)
}

// BeginStop moves Active to Stopping.
func (c *Control) BeginStop() error {
	return c.move(Active, Stopping)
}

// FinishStop moves Stopping to Idle on success or back to Active.
func (c *Control) FinishStop(ok bool) State {
	if ok {
		return c.settle(Stopping, Idle)
	}
	return c.settle(Stopping, Active)
}

// Reset forces the control to Idle. Used on teardown.
func (c *Control) Reset() {
	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
}

func (c *Control) move(from, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, c.name, c.state)
	}
	c.state = to
	return nil
}

func (c *Control) settle(from, to State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == from {
		c.state = to
	}
	return c.state
}
