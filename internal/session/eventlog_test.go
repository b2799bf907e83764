package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogKeepsNewestTwenty(t *testing.T) {
	l := NewEventLog(20, nil)
	for i := 1; i <= 25; i++ {
		l.Append(fmt.Sprintf("msg %d", i))
	}

	entries := l.Entries()
	require.Len(t, entries, 20)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("msg %d", 25-i), e.Message)
	}
}

func TestEventLogSequence(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local)
	l := NewEventLog(3, func() time.Time { return at })
	for i := 0; i < 5; i++ {
		l.Append("same second")
	}

	var seqs []uint64
	for _, e := range l.Entries() {
		seqs = append(seqs, e.Seq)
	}
	assert.Equal(t, []uint64{5, 4, 3}, seqs, "equal timestamps stay distinguishable")
}

func TestEventLogEntryFormat(t *testing.T) {
	at := time.Date(2026, 10, 14, 14, 5, 9, 0, time.Local)
	l := NewEventLog(5, func() time.Time { return at })
	e := l.Append("Scan started")
	assert.Equal(t, "[14:05:09] Scan started", e.String())
	assert.Equal(t, at, l.Entries()[0].Time)
}

func TestEventLogEntriesAreCopies(t *testing.T) {
	l := NewEventLog(3, nil)
	l.Append("a")
	out := l.Entries()
	out[0].Message = "changed"
	assert.Equal(t, "a", l.Entries()[0].Message)
	assert.Equal(t, 1, l.Len())
}

func TestEventLogMinimumCapacity(t *testing.T) {
	l := NewEventLog(0, nil)
	l.Append("a")
	l.Append("b")
	assert.Equal(t, []string{"b"}, messages(l.Entries()))
}
