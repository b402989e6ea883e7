package testutil

import "sync"

// DeterministicClock is a resettable frame clock for tests.
//
// It satisfies host.Clock. Unlike host.LogicalClock it can be reset, so one
// test can drive the same scenario twice and compare frame stamps.
//
// Thread-safety: safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	frame int64
}

// NewDeterministicClock creates a clock at frame 0. The first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances to and returns the next frame number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame++
	return c.frame
}

// Current returns the last frame handed out, 0 before the first Next.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Reset rewinds the clock to frame 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = 0
}
