package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a wall clock substitute that advances by a fixed step
// on every call to Now.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock starting at 2020-01-01T00:00:00Z that
// advances one second per call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{
		start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		step:  time.Second,
	}
}

// Now returns start + step*n for the n-th call (starting at 0).
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
