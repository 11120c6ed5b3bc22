package testutil

import (
	"sync"
	"time"
)

// ManualClock is a thread-safe, manually advanced wall clock for tests.
//
// Pin it as a Builder's or Gate's Now function to make timestamps and
// timeout arithmetic deterministic. Readings carry no monotonic part, so
// elapsed-time checks fall back to wall-clock subtraction, which Advance
// controls directly.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock pinned to start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current pinned time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative d moves it backward;
// tests use that to simulate wall-clock manipulation.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to an absolute time.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
