package host

import "sync/atomic"

// Clock hands out frame numbers.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is a monotonic frame counter.
//
// Thread-safety: safe for concurrent use (atomic operations), though only
// the Driver goroutine normally calls Next.
type LogicalClock struct {
	frame atomic.Int64
}

// NewClock creates a clock at frame 0. The first Next returns 1.
func NewClock() *LogicalClock {
	return &LogicalClock{}
}

// Next advances and returns the next frame number.
func (c *LogicalClock) Next() int64 {
	return c.frame.Add(1)
}

// Current returns the last frame number handed out.
func (c *LogicalClock) Current() int64 {
	return c.frame.Load()
}
