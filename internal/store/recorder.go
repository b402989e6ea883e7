package store

import "context"

// Recorder appends a node's per-frame outputs to one run.
type Recorder struct {
	store *Store
	runID string
}

// NewRecorder creates a Recorder writing to runID.
func NewRecorder(s *Store, runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// RecordFrame writes outputs as samples of frame.
func (r *Recorder) RecordFrame(ctx context.Context, frame int64, outputs map[string]float64) error {
	return r.store.WriteFrame(ctx, r.runID, frame, outputs)
}
