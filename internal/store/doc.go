// Package store is the SQLite run log for headless simulations.
//
// A run is one component driven for a number of frames with a fixed delta.
// Every frame's outputs are appended as samples keyed by (run, frame, name),
// so a run can be listed, inspected, and replayed through ReplayRuntime
// without the original solver.
//
// Ordering never depends on wall time: runs are ordered by a logical seq
// assigned at insert, samples by frame then name.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
