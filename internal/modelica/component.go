package modelica

import (
	"context"
	"log/slog"
	"sync"
)

// GenericType is the Metadata.ComponentType reported by GenericComponent.
const GenericType = "Generic"

// VariableKind is the value type of a model variable.
type VariableKind string

const (
	VarReal VariableKind = "real"
	VarBool VariableKind = "bool"
)

// Variable describes one model input or output.
type Variable struct {
	Name    string       `json:"name"`
	Kind    VariableKind `json:"kind,omitempty"`
	Unit    string       `json:"unit,omitempty"`
	Default *float64     `json:"default,omitempty"`
}

// Metadata describes a component.
type Metadata struct {
	Name          string     `json:"name"`
	ComponentType string     `json:"component_type"`
	Description   string     `json:"description,omitempty"`
	Inputs        []Variable `json:"inputs"`
	Outputs       []Variable `json:"outputs"`
	Command       []string   `json:"command,omitempty"`
}

// Catalog supplies metadata for component names.
type Catalog interface {
	Lookup(name string) (*Metadata, bool)
}

// Component is the simulation surface the host drives.
type Component interface {
	ComponentType() string
	Initialize(ctx context.Context) error
	SetInput(ctx context.Context, name string, value float64) error
	SetBoolInput(ctx context.Context, name string, value bool) error
	GetOutput(ctx context.Context, name string) (float64, error)
	Step(ctx context.Context, dt float64) error
	Reset(ctx context.Context) error
	AllOutputs(ctx context.Context) (map[string]float64, error)
	Metadata() Metadata
}

// GenericComponent wraps any Runtime obtained from a RuntimeLoader.
//
// A zero-loaded GenericComponent is valid: every operation fails with the
// matching ComponentError kind, except Reset (no-op) and AllOutputs (empty).
//
// Thread-safety: safe for concurrent use; operations are serialized.
type GenericComponent struct {
	mu      sync.Mutex
	loader  RuntimeLoader
	catalog Catalog
	logger  *slog.Logger

	name    string
	runtime Runtime
}

// ComponentOption configures a GenericComponent.
type ComponentOption func(*GenericComponent)

// WithCatalog enriches Metadata from c.
func WithCatalog(c Catalog) ComponentOption {
	return func(g *GenericComponent) { g.catalog = c }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) ComponentOption {
	return func(g *GenericComponent) { g.logger = l }
}

// NewGenericComponent creates an unloaded component that loads runtimes with loader.
func NewGenericComponent(loader RuntimeLoader, opts ...ComponentOption) *GenericComponent {
	g := &GenericComponent{loader: loader, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadFromFile loads the named component, replacing the current one.
// On failure the previously loaded runtime stays in place.
func (g *GenericComponent) LoadFromFile(ctx context.Context, name string) error {
	if name == "" {
		return newError(KindLoadFailed, "", "component name is empty", nil)
	}
	if g.loader == nil {
		return newError(KindLoadFailed, name, "no runtime loader configured", nil)
	}

	rt, err := g.loader(ctx, name)
	if err != nil {
		return newError(KindLoadFailed, name, "failed to load component", err)
	}

	g.mu.Lock()
	prev := g.runtime
	g.runtime = rt
	g.name = name
	g.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			g.logger.Warn("close previous runtime", "error", err)
		}
	}
	g.logger.Info("component loaded", "component", name)
	return nil
}

// Loaded reports whether a runtime is present.
func (g *GenericComponent) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runtime != nil
}

// Name returns the loaded component name, or "".
func (g *GenericComponent) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.name
}

// ComponentType returns the loaded component name. Metadata reports the
// adapter kind instead.
func (g *GenericComponent) ComponentType() string {
	return g.Name()
}

func (g *GenericComponent) Initialize(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return newError(KindInitializationFailed, "", notLoaded, nil)
	}
	if err := g.runtime.Reset(ctx); err != nil {
		return newError(KindInitializationFailed, g.name, "initialization failed", err)
	}
	return nil
}

func (g *GenericComponent) SetInput(ctx context.Context, name string, value float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return newError(KindInvalidInput, "", notLoaded, nil)
	}
	if err := g.runtime.SetReal(ctx, name, value); err != nil {
		return newError(KindInvalidInput, g.name, "failed to set input "+name, err)
	}
	return nil
}

func (g *GenericComponent) SetBoolInput(ctx context.Context, name string, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return newError(KindInvalidInput, "", notLoaded, nil)
	}
	if err := g.runtime.SetBool(ctx, name, value); err != nil {
		return newError(KindInvalidInput, g.name, "failed to set input "+name, err)
	}
	return nil
}

func (g *GenericComponent) GetOutput(ctx context.Context, name string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return 0, newError(KindInvalidOutput, "", notLoaded, nil)
	}
	v, err := g.runtime.GetReal(ctx, name)
	if err != nil {
		return 0, newError(KindInvalidOutput, g.name, "failed to get output "+name, err)
	}
	return v, nil
}

func (g *GenericComponent) Step(ctx context.Context, dt float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return newError(KindStepFailed, "", notLoaded, nil)
	}
	if err := g.runtime.Step(ctx, dt); err != nil {
		return newError(KindStepFailed, g.name, "step failed", err)
	}
	return nil
}

// Reset is a no-op when nothing is loaded.
func (g *GenericComponent) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return nil
	}
	if err := g.runtime.Reset(ctx); err != nil {
		return newError(KindResetFailed, g.name, "reset failed", err)
	}
	return nil
}

// AllOutputs returns an empty map when nothing is loaded.
func (g *GenericComponent) AllOutputs(ctx context.Context) (map[string]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.runtime == nil {
		return map[string]float64{}, nil
	}
	out, err := g.runtime.Outputs(ctx)
	if err != nil {
		return nil, newError(KindInvalidOutput, g.name, "failed to read outputs", err)
	}
	if out == nil {
		out = map[string]float64{}
	}
	return out, nil
}

func (g *GenericComponent) Metadata() Metadata {
	g.mu.Lock()
	name := g.name
	g.mu.Unlock()

	md := Metadata{
		Name:          name,
		ComponentType: GenericType,
		Inputs:        []Variable{},
		Outputs:       []Variable{},
	}
	if g.catalog == nil || name == "" {
		return md
	}
	if entry, ok := g.catalog.Lookup(name); ok {
		md.Description = entry.Description
		md.Inputs = append(md.Inputs, entry.Inputs...)
		md.Outputs = append(md.Outputs, entry.Outputs...)
		md.Command = append([]string(nil), entry.Command...)
	}
	return md
}

// Close releases the loaded runtime, if any.
func (g *GenericComponent) Close() error {
	g.mu.Lock()
	rt := g.runtime
	g.runtime = nil
	g.name = ""
	g.mu.Unlock()

	if rt == nil {
		return nil
	}
	return rt.Close()
}

var _ Component = (*GenericComponent)(nil)
