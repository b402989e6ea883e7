// Package node is the host-facing adapter for a simulation component: the
// object a scene attaches, configures through exported properties, and
// ticks once per frame.
//
// Nothing here returns errors to the frame loop. Failures are logged and
// reported through boolean or zero results, the way engine-side scripts
// expect.
package node

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/bondlegend4/modelica-gdext/internal/ffi"
	"github.com/bondlegend4/modelica-gdext/internal/ident"
	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// Recorder receives the outputs of every successful step.
type Recorder interface {
	RecordFrame(ctx context.Context, frame int64, outputs map[string]float64) error
}

// StepObserver is notified of step outcomes.
type StepObserver interface {
	StepSucceeded(component string)
	StepFailed(component string)
}

// ModelicaNode drives one GenericComponent from the host frame loop.
type ModelicaNode struct {
	// ComponentName is loaded in Ready when AutoInitialize is set.
	ComponentName ident.String
	// AutoInitialize loads ComponentName in Ready. Defaults to true.
	AutoInitialize bool

	component *modelica.GenericComponent
	logger    *slog.Logger
	recorder  Recorder
	observer  StepObserver

	frame    atomic.Int64
	failures atomic.Int64
}

// Option configures a ModelicaNode.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	catalog  modelica.Catalog
	recorder Recorder
	observer StepObserver
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCatalog enriches component metadata.
func WithCatalog(cat modelica.Catalog) Option {
	return func(c *config) { c.catalog = cat }
}

// WithRecorder records outputs after each successful step.
func WithRecorder(r Recorder) Option {
	return func(c *config) { c.recorder = r }
}

// WithStepObserver reports step outcomes, typically to metrics.
func WithStepObserver(o StepObserver) Option {
	return func(c *config) { c.observer = o }
}

// New creates a node whose component runtimes come from loader.
func New(loader modelica.RuntimeLoader, opts ...Option) *ModelicaNode {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	compOpts := []modelica.ComponentOption{modelica.WithLogger(cfg.logger)}
	if cfg.catalog != nil {
		compOpts = append(compOpts, modelica.WithCatalog(cfg.catalog))
	}

	return &ModelicaNode{
		AutoInitialize: true,
		component:      modelica.NewGenericComponent(loader, compOpts...),
		logger:         cfg.logger,
		recorder:       cfg.recorder,
		observer:       cfg.observer,
	}
}

// Ready loads ComponentName if AutoInitialize is set and the name is
// non-empty. Failures are logged.
func (n *ModelicaNode) Ready(ctx context.Context) {
	if !n.AutoInitialize || n.ComponentName.IsEmpty() {
		return
	}
	if !n.LoadComponent(ctx, n.ComponentName) {
		n.logger.Error("failed to load component on ready", "component", n.ComponentName.String())
	}
}

// Process advances the component by delta seconds. A failed step is logged
// and counted; it never stops the frame loop.
func (n *ModelicaNode) Process(ctx context.Context, delta float64) {
	frame := n.frame.Add(1)
	name := n.component.Name()

	if err := n.component.Step(ctx, delta); err != nil {
		n.failures.Add(1)
		if n.observer != nil {
			n.observer.StepFailed(name)
		}
		n.logger.Error("simulation step failed", "frame", frame, "delta", delta, "error", err)
		return
	}
	if n.observer != nil {
		n.observer.StepSucceeded(name)
	}

	if n.recorder == nil {
		return
	}
	outputs, err := n.component.AllOutputs(ctx)
	if err != nil {
		n.logger.Warn("read outputs for recording", "frame", frame, "error", err)
		return
	}
	if err := n.recorder.RecordFrame(ctx, frame, outputs); err != nil {
		n.logger.Warn("record frame", "frame", frame, "error", err)
	}
}

// LoadComponent loads and initializes name. Returns false on failure; a
// failed load leaves the previous component in place.
func (n *ModelicaNode) LoadComponent(ctx context.Context, name ident.String) bool {
	n.logger.Info("loading component", "component", name.String())

	if err := n.component.LoadFromFile(ctx, name.String()); err != nil {
		n.logger.Error("failed to load component", "component", name.String(), "error", err)
		return false
	}
	if err := n.component.Initialize(ctx); err != nil {
		n.logger.Error("failed to initialize component", "component", name.String(), "error", err)
		return false
	}
	n.logger.Info("component initialized", "component", name.String())
	return true
}

// SetRealInput sets a real input. Returns false on failure.
func (n *ModelicaNode) SetRealInput(ctx context.Context, name ident.String, value float64) bool {
	if err := n.component.SetInput(ctx, name.String(), value); err != nil {
		n.logger.Debug("set real input", "name", name.String(), "error", err)
		return false
	}
	return true
}

// SetBoolInput sets a boolean input. Returns false on failure.
func (n *ModelicaNode) SetBoolInput(ctx context.Context, name ident.String, value bool) bool {
	if err := n.component.SetBoolInput(ctx, name.String(), value); err != nil {
		n.logger.Debug("set bool input", "name", name.String(), "error", err)
		return false
	}
	return true
}

// GetRealOutput reads a real output. Returns 0 on failure.
func (n *ModelicaNode) GetRealOutput(ctx context.Context, name ident.String) float64 {
	v, err := n.component.GetOutput(ctx, name.String())
	if err != nil {
		n.logger.Debug("get real output", "name", name.String(), "error", err)
		return 0
	}
	return v
}

// GetAllOutputs returns every output as a Dictionary with keys in sorted
// order. Empty when nothing is loaded or the read fails.
func (n *ModelicaNode) GetAllOutputs(ctx context.Context) *ffi.Dictionary {
	dict := ffi.NewDictionary()
	outputs, err := n.component.AllOutputs(ctx)
	if err != nil {
		n.logger.Debug("get all outputs", "error", err)
		return dict
	}

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dict.Set(k, outputs[k])
	}
	return dict
}

// ResetSimulation returns the component to initial conditions.
func (n *ModelicaNode) ResetSimulation(ctx context.Context) bool {
	if err := n.component.Reset(ctx); err != nil {
		n.logger.Error("reset simulation", "error", err)
		return false
	}
	return true
}

// Metadata describes the loaded component.
func (n *ModelicaNode) Metadata() modelica.Metadata {
	return n.component.Metadata()
}

// Frames returns how many times Process ran.
func (n *ModelicaNode) Frames() int64 {
	return n.frame.Load()
}

// StepFailures returns how many steps failed.
func (n *ModelicaNode) StepFailures() int64 {
	return n.failures.Load()
}

// Close releases the component runtime.
func (n *ModelicaNode) Close() error {
	return n.component.Close()
}
