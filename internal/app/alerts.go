package app

import "sync"

// Alert is a modal message waiting for the user to dismiss it.
type Alert struct {
	Title   string
	Message string
}

// AlertInbox queues alerts raised off the UI goroutine until the next frame
// picks them up. It implements session.Alerter.
type AlertInbox struct {
	mu      sync.Mutex
	pending []Alert
}

// NewAlertInbox creates an empty inbox.
func NewAlertInbox() *AlertInbox {
	return &AlertInbox{}
}

func (a *AlertInbox) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, Alert{Title: title, Message: message})
}

// Pop removes and returns the oldest pending alert.
func (a *AlertInbox) Pop() (Alert, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.pending) == 0 {
		return Alert{}, false
	}
	next := a.pending[0]
	a.pending = a.pending[1:]
	return next, true
}

// Len returns the number of pending alerts.
func (a *AlertInbox) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
