// Package host is a headless stand-in for the engine frame loop.
//
// A Driver owns a list of Processors and ticks them with a fixed delta, one
// frame at a time, on a single goroutine. Everything that mutates a
// Processor from outside (input changes, reloads, resets) is submitted as a
// Command and applied at the start of the next frame on that same
// goroutine, so Processors never see concurrent calls.
//
// Frames are numbered by a logical Clock, never wall time, so a recorded
// run replays with the same frame numbers.
package host
