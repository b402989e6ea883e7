package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// Operation names accepted by FakeRuntime.FailOn.
const (
	OpReset   = "reset"
	OpSetReal = "set_real"
	OpSetBool = "set_bool"
	OpGetReal = "get_real"
	OpStep    = "step"
	OpOutputs = "outputs"
	OpClose   = "close"
)

// FakeRuntime is an in-memory modelica.Runtime with scripted failures.
//
// Every output starts at its initial value. Step advances "time" when that
// output exists and then calls OnStep, if set.
//
// Thread-safety: safe for concurrent use.
type FakeRuntime struct {
	mu      sync.Mutex
	initial map[string]float64
	reals   map[string]float64
	bools   map[string]bool
	outputs []string
	fail    map[string]error

	steps  int
	resets int
	closed bool

	// OnStep runs inside Step with the runtime's real variables.
	OnStep func(reals map[string]float64, bools map[string]bool, dt float64)
}

// NewFakeRuntime creates a FakeRuntime exposing outputs with the given
// initial values.
func NewFakeRuntime(outputs map[string]float64) *FakeRuntime {
	names := make([]string, 0, len(outputs))
	initial := make(map[string]float64, len(outputs))
	for k, v := range outputs {
		names = append(names, k)
		initial[k] = v
	}
	sort.Strings(names)

	r := &FakeRuntime{
		initial: initial,
		outputs: names,
		fail:    make(map[string]error),
	}
	r.reset()
	return r
}

func (r *FakeRuntime) reset() {
	r.reals = make(map[string]float64, len(r.initial))
	for k, v := range r.initial {
		r.reals[k] = v
	}
	r.bools = make(map[string]bool)
}

// FailOn makes op return err until cleared with a nil err.
func (r *FakeRuntime) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, op)
		return
	}
	r.fail[op] = err
}

// Steps returns how many successful steps ran.
func (r *FakeRuntime) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Resets returns how many successful resets ran.
func (r *FakeRuntime) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// Closed reports whether Close was called.
func (r *FakeRuntime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Bool returns a boolean input as last set.
func (r *FakeRuntime) Bool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bools[name]
}

func (r *FakeRuntime) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpReset]; err != nil {
		return err
	}
	r.reset()
	r.resets++
	return nil
}

func (r *FakeRuntime) SetReal(ctx context.Context, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpSetReal]; err != nil {
		return err
	}
	r.reals[name] = value
	return nil
}

func (r *FakeRuntime) SetBool(ctx context.Context, name string, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpSetBool]; err != nil {
		return err
	}
	r.bools[name] = value
	return nil
}

func (r *FakeRuntime) GetReal(ctx context.Context, name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpGetReal]; err != nil {
		return 0, err
	}
	v, ok := r.reals[name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", name)
	}
	return v, nil
}

func (r *FakeRuntime) Step(ctx context.Context, dt float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpStep]; err != nil {
		return err
	}
	if _, ok := r.reals["time"]; ok {
		r.reals["time"] += dt
	}
	if r.OnStep != nil {
		r.OnStep(r.reals, r.bools, dt)
	}
	r.steps++
	return nil
}

func (r *FakeRuntime) Outputs(ctx context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[OpOutputs]; err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(r.outputs))
	for _, name := range r.outputs {
		out[name] = r.reals[name]
	}
	return out, nil
}

func (r *FakeRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.fail[OpClose]
}

// FakeLoader serves registered FakeRuntimes by component name.
//
// Thread-safety: safe for concurrent use.
type FakeLoader struct {
	mu       sync.Mutex
	runtimes map[string]*FakeRuntime
	loads    []string
}

// NewFakeLoader creates an empty FakeLoader.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{runtimes: make(map[string]*FakeRuntime)}
}

// Add registers rt under name and returns rt.
func (l *FakeLoader) Add(name string, rt *FakeRuntime) *FakeRuntime {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runtimes[name] = rt
	return rt
}

// Load implements modelica.RuntimeLoader.
func (l *FakeLoader) Load(ctx context.Context, name string) (modelica.Runtime, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, name)
	rt, ok := l.runtimes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", modelica.ErrUnknownComponent, name)
	}
	return rt, nil
}

// Loads returns every name passed to Load, in call order.
func (l *FakeLoader) Loads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loads...)
}
