package store

import (
	"errors"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusFinished  RunStatus = "finished"
	StatusCancelled RunStatus = "cancelled"
	StatusFailed    RunStatus = "failed"
)

// Run is one recorded simulation.
type Run struct {
	ID        string             `json:"id"`
	Seq       int64              `json:"seq"`
	Component string             `json:"component"`
	Delta     float64            `json:"delta"`
	Frames    int64              `json:"frames"`
	Status    RunStatus          `json:"status"`
	Params    map[string]float64 `json:"params,omitempty"`
}

// Sample is one output value at one frame.
type Sample struct {
	RunID string  `json:"run_id"`
	Frame int64   `json:"frame"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Frame is every sample of one frame.
type Frame struct {
	Number  int64              `json:"number"`
	Outputs map[string]float64 `json:"outputs"`
}

// RunIDGenerator creates run IDs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator creates time-sortable UUIDv7 run IDs.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. Panics if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
