package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

var (
	// ErrReplayExhausted is returned by Step past the last recorded frame.
	ErrReplayExhausted = errors.New("replay exhausted")

	// ErrReplayReadOnly is returned by input setters on a replay.
	ErrReplayReadOnly = errors.New("replay is read-only")
)

// ReplayRuntime plays a recorded run back as a modelica.Runtime. Each Step
// moves to the next recorded frame; dt is ignored.
//
// Thread-safety: safe for concurrent use.
type ReplayRuntime struct {
	run    Run
	frames []Frame

	mu     sync.Mutex
	cursor int // index into frames; -1 before the first step
}

// NewReplayRuntime loads runID from s.
func NewReplayRuntime(ctx context.Context, s *Store, runID string) (*ReplayRuntime, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	frames, err := s.ReadFrames(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &ReplayRuntime{run: run, frames: frames, cursor: -1}, nil
}

// ReplayLoader returns a RuntimeLoader that replays runID. The requested
// component name must match the recorded one.
func ReplayLoader(s *Store, runID string) modelica.RuntimeLoader {
	return func(ctx context.Context, component string) (modelica.Runtime, error) {
		rt, err := NewReplayRuntime(ctx, s, runID)
		if err != nil {
			return nil, err
		}
		if component != rt.run.Component {
			return nil, fmt.Errorf("run %s recorded %q, not %q", runID, rt.run.Component, component)
		}
		return rt, nil
	}
}

// Run returns the run being replayed.
func (r *ReplayRuntime) Run() Run {
	return r.run
}

// Position returns the current frame number, 0 before the first step.
func (r *ReplayRuntime) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor < 0 {
		return 0
	}
	return r.frames[r.cursor].Number
}

func (r *ReplayRuntime) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = -1
	return nil
}

func (r *ReplayRuntime) SetReal(ctx context.Context, name string, value float64) error {
	return fmt.Errorf("set %q: %w", name, ErrReplayReadOnly)
}

func (r *ReplayRuntime) SetBool(ctx context.Context, name string, value bool) error {
	return fmt.Errorf("set %q: %w", name, ErrReplayReadOnly)
}

func (r *ReplayRuntime) GetReal(ctx context.Context, name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor < 0 {
		return 0, fmt.Errorf("get %q: no frame replayed yet", name)
	}
	v, ok := r.frames[r.cursor].Outputs[name]
	if !ok {
		return 0, fmt.Errorf("get %q: not recorded at frame %d", name, r.frames[r.cursor].Number)
	}
	return v, nil
}

func (r *ReplayRuntime) Step(ctx context.Context, dt float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor+1 >= len(r.frames) {
		return fmt.Errorf("run %s after %d frames: %w", r.run.ID, len(r.frames), ErrReplayExhausted)
	}
	r.cursor++
	return nil
}

func (r *ReplayRuntime) Outputs(ctx context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]float64{}
	if r.cursor < 0 {
		return out, nil
	}
	for k, v := range r.frames[r.cursor].Outputs {
		out[k] = v
	}
	return out, nil
}

func (r *ReplayRuntime) Close() error { return nil }

// Names returns the output names recorded in the first frame, sorted.
func (r *ReplayRuntime) Names() []string {
	if len(r.frames) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.frames[0].Outputs))
	for k := range r.frames[0].Outputs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var _ modelica.Runtime = (*ReplayRuntime)(nil)
