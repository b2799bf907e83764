package session

import (
	"sync"
	"time"
)

// Entry is one line of the event log.
type Entry struct {
	Seq     uint64 // 1 for the first entry, increasing by one per Append
	Time    time.Time
	Message string
}

// String renders the entry as "[15:04:05] message".
func (e Entry) String() string {
	return "[" + e.Time.Format("15:04:05") + "] " + e.Message
}

// EventLog is a bounded, newest-first log of session events.
type EventLog struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	seq      uint64
	now      func() time.Time
}

// NewEventLog creates a log holding at most capacity entries.
func NewEventLog(capacity int, now func() time.Time) *EventLog {
	if capacity <= 0 {
		capacity = 1
	}
	if now == nil {
		now = time.Now
	}
	return &EventLog{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      now,
	}
}

// Append prepends a timestamped message, dropping the oldest entries
// beyond capacity.
func (l *EventLog) Append(message string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e := Entry{Seq: l.seq, Time: l.now(), Message: message}
	keep := l.entries
	if len(keep) >= l.capacity {
		keep = keep[:l.capacity-1]
	}
	next := make([]Entry, 0, l.capacity)
	next = append(next, e)
	next = append(next, keep...)
	l.entries = next
	return e
}

// Entries returns a copy, newest first.
func (l *EventLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored entries.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
