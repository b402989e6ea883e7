// Package modelica adapts an external Modelica simulation runtime to the
// host frame loop.
//
// The solver is never implemented here. A Runtime is whatever the outside
// world provides (a solver process, a recorded run, a test double); this
// package only gives it a uniform Component surface with the error taxonomy
// the host expects.
package modelica

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Runtime is one instantiated model inside an external solver.
type Runtime interface {
	// Reset returns the model to its initial conditions.
	Reset(ctx context.Context) error
	// SetReal sets a real-valued input variable.
	SetReal(ctx context.Context, name string, value float64) error
	// SetBool sets a boolean input variable.
	SetBool(ctx context.Context, name string, value bool) error
	// GetReal reads a real-valued variable.
	GetReal(ctx context.Context, name string) (float64, error)
	// Step advances the simulation by dt seconds.
	Step(ctx context.Context, dt float64) error
	// Outputs returns every output variable the runtime exposes.
	Outputs(ctx context.Context) (map[string]float64, error)
	// Close releases the runtime.
	Close() error
}

// RuntimeLoader creates a Runtime for a component name.
type RuntimeLoader func(ctx context.Context, component string) (Runtime, error)

// ErrUnknownComponent is returned by Registry.Load for unregistered names.
var ErrUnknownComponent = errors.New("unknown component")

// Registry maps component names to loaders.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	loaders  map[string]RuntimeLoader
	fallback RuntimeLoader
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]RuntimeLoader)}
}

// Register sets the loader for a component name, replacing any previous one.
func (r *Registry) Register(component string, loader RuntimeLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[component] = loader
}

// SetFallback sets the loader used for names without a registration.
func (r *Registry) SetFallback(loader RuntimeLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = loader
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load creates a Runtime for component. Registry.Load is itself a RuntimeLoader.
func (r *Registry) Load(ctx context.Context, component string) (Runtime, error) {
	r.mu.RLock()
	loader, ok := r.loaders[component]
	if !ok {
		loader = r.fallback
	}
	r.mu.RUnlock()

	if loader == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, component)
	}
	return loader(ctx, component)
}
