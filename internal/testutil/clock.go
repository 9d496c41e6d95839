package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a StepClock starts from.
var Epoch = time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic stand-in for both the audit sequence clock
// and the wall clock. Each Next advances the sequence by one; each Now
// advances wall time by one second from Epoch.
//
// Thread-safety: all methods are safe for concurrent use.
type StepClock struct {
	mu    sync.Mutex
	seq   int64
	ticks int64
}

// NewStepClock creates a clock whose first Next returns 1 and whose first
// Now returns Epoch.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Next returns the next audit sequence number.
func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last sequence number handed out.
func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns Epoch plus one second per previous call.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.ticks) * time.Second)
	c.ticks++
	return t
}

// Reset rewinds both the sequence and wall time so a scenario can be
// replayed with identical values.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.ticks = 0
}
