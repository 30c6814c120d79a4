// Package clock provides the monotonic time source used for handshake retries,
// inactivity timeouts, retransmission deadlines and RTT sampling.
//
// Every timeout in the stack is a polled deadline compared against a Clock
// during Client.Tick. Nothing schedules timers in the background, so a
// Manual clock makes every timing path deterministic under test.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by time.Now. The returned values carry Go's
// monotonic clock reading, so differences are immune to wall clock steps.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to.
// It is safe for concurrent use.
type Manual struct {
	now time.Time
	mu  sync.Mutex
}

// NewManual creates a manual clock starting at start.
// A zero start is replaced by a fixed, non-zero instant.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
// Negative durations are ignored.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}

// Set moves the clock to t. Moving backwards is allowed so tests can
// simulate clock irregularities.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

var (
	_ Clock = Real{}
	_ Clock = (*Manual)(nil)
)
