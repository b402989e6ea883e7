package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bondlegend4/modelica-gdext/internal/config"
	"github.com/bondlegend4/modelica-gdext/internal/ffi"
	"github.com/bondlegend4/modelica-gdext/internal/host"
	"github.com/bondlegend4/modelica-gdext/internal/ident"
	"github.com/bondlegend4/modelica-gdext/internal/manifest"
	"github.com/bondlegend4/modelica-gdext/internal/metrics"
	"github.com/bondlegend4/modelica-gdext/internal/modelica"
	"github.com/bondlegend4/modelica-gdext/internal/node"
	"github.com/bondlegend4/modelica-gdext/internal/store"
)

// SimOptions holds flags for the sim run command.
type SimOptions struct {
	*RootOptions
	Component   string
	Frames      int64
	Delta       float64
	Database    string
	Replay      string
	ManifestDir string
	Inputs      map[string]string
	Pace        time.Duration
	Metrics     bool

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// SimResult summarizes a simulation run.
type SimResult struct {
	RunID        string             `json:"run_id,omitempty"`
	Component    string             `json:"component"`
	Replay       bool               `json:"replay,omitempty"`
	Status       store.RunStatus    `json:"status"`
	Frames       int64              `json:"frames"`
	StepFailures int64              `json:"step_failures"`
	Outputs      map[string]float64 `json:"outputs"`
	Intern       ident.Stats        `json:"intern"`
}

// input is one --set assignment.
type input struct {
	name   string
	isBool bool
	b      bool
	v      float64
}

// NewSimCommand creates the sim command group.
func NewSimCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive simulation components",
	}
	cmd.AddCommand(newSimRunCommand(rootOpts))
	return cmd
}

func newSimRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimRunCommandWith(&SimOptions{RootOptions: rootOpts})
}

func newSimRunCommandWith(opts *SimOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a component in a headless frame loop",
		Long: `Load a component into a ModelicaNode and tick it with a fixed delta.

Values from flags override the config file. With --db every frame's
outputs are recorded; with --replay a recorded run is played back instead
of simulated.

Examples:
  gdmod sim run --component SimpleThermal --frames 600 --set heater_on=true
  gdmod sim run --manifests ./components --component Tank --db runs.db
  gdmod sim run --db runs.db --replay 0190f6c2-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Component, "component", "", "component to load")
	flags.Int64Var(&opts.Frames, "frames", 0, "frames to run (0 = until interrupted)")
	flags.Float64Var(&opts.Delta, "delta", 0, "frame step in seconds")
	flags.StringVar(&opts.Database, "db", "", "SQLite run log")
	flags.StringVar(&opts.Replay, "replay", "", "replay a recorded run ID (requires --db); --frames defaults to the recorded count")
	flags.StringVar(&opts.ManifestDir, "manifests", "", "directory of CUE component manifests")
	flags.StringToStringVar(&opts.Inputs, "set", nil, "input assignments name=value (true/false for bool inputs)")
	flags.DurationVar(&opts.Pace, "pace", 0, "wall-clock time per frame (0 = as fast as possible)")
	flags.BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics to stderr when done")

	return cmd
}

func runSim(opts *SimOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.loadConfig(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_CONFIG", err.Error(), nil, nil)
	}
	applySimFlags(cfg, opts, cmd)
	if err := cfg.Validate(); err != nil {
		return formatter.Fail(ExitCommandError, "E_CONFIG", err.Error(), nil, nil)
	}

	logger, err := opts.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_CONFIG", err.Error(), nil, nil)
	}

	inputs, err := parseInputs(opts.Inputs)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_BAD_INPUT", err.Error(), nil, nil)
	}
	if opts.Replay != "" && cfg.Store.Path == "" {
		return formatter.Fail(ExitCommandError, "E_BAD_INPUT", "--replay requires --db", nil, nil)
	}

	promReg := prometheus.NewRegistry()
	m, err := metrics.New(promReg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up metrics", err)
	}
	strs := ident.NewContext(ident.Config{
		StrictBounds: cfg.StrictBounds(),
		Logger:       logger,
		Observer:     m,
	})
	defer strs.Close()

	reg := modelica.NewRegistry()
	modelica.RegisterBuiltins(reg)
	catalog, err := loadCatalog(cfg.Simulation.ManifestDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_MANIFEST", err.Error(), nil, nil)
	}
	catalog.Register(reg)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := SimResult{Component: cfg.Simulation.Component, Status: store.StatusFinished}
	var loader modelica.RuntimeLoader = reg.Load
	var st *store.Store
	var rec *store.Recorder

	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	switch {
	case opts.Replay != "":
		run, err := st.ReadRun(ctx, opts.Replay)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
		}
		if len(inputs) > 0 {
			logger.Warn("ignoring --set during replay")
			inputs = nil
		}
		if !cmd.Flags().Changed("frames") && run.Frames > 0 {
			cfg.Simulation.Frames = run.Frames
		}
		result.RunID, result.Component, result.Replay = run.ID, run.Component, true
		loader = store.ReplayLoader(st, run.ID)

	case st != nil:
		gen := opts.RunIDs
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		run, err := st.CreateRun(ctx, store.Run{
			ID:        gen.Generate(),
			Component: cfg.Simulation.Component,
			Delta:     cfg.Simulation.Delta,
			Params:    inputParams(inputs),
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_STORE", err.Error(), nil, nil)
		}
		result.RunID = run.ID
		rec = store.NewRecorder(st, run.ID)
		logger.Info("recording run", "run_id", run.ID, "seq", run.Seq)
	}

	nodeOpts := []node.Option{
		node.WithLogger(logger),
		node.WithCatalog(catalog),
		node.WithStepObserver(m),
	}
	if rec != nil {
		nodeOpts = append(nodeOpts, node.WithRecorder(rec))
	}
	n := node.New(loader, nodeOpts...)
	defer n.Close()
	n.ComponentName = ident.NewString(result.Component)
	n.AutoInitialize = cfg.AutoInitialize()

	d := host.New(cfg.Simulation.Delta,
		host.WithFrames(cfg.Simulation.Frames),
		host.WithPace(opts.Pace),
		host.WithLogger(logger),
	)
	d.Add(n)
	if err := enqueueSetup(d, n, strs, inputs); err != nil {
		return WrapExitError(ExitCommandError, "failed to queue setup", err)
	}

	logger.Info("simulation starting",
		"component", result.Component,
		"delta", cfg.Simulation.Delta,
		"frames", cfg.Simulation.Frames,
		"replay", result.Replay)

	runErr := d.Run(ctx)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		result.Status = store.StatusCancelled
	default:
		result.Status = store.StatusFailed
	}

	result.Frames = n.Frames()
	result.StepFailures = n.StepFailures()
	if result.Outputs, err = dictionaryOutputs(context.WithoutCancel(ctx), n); err != nil {
		logger.Error("copy outputs", "error", err)
		result.Status, runErr = store.StatusFailed, err
	}
	result.Intern = strs.Stats()

	if rec != nil {
		if err := st.FinishRun(context.WithoutCancel(ctx), rec.RunID(), result.Status, result.Frames); err != nil {
			logger.Error("finish run", "run_id", rec.RunID(), "error", err)
		}
	}
	logger.Info("simulation stopped", "status", result.Status, "frames", result.Frames)

	if opts.Metrics {
		if err := metrics.WriteText(cmd.ErrOrStderr(), promReg); err != nil {
			logger.Warn("write metrics", "error", err)
		}
	}

	text := func(w io.Writer) { writeSimText(w, result) }
	switch {
	case result.Status == store.StatusFailed:
		return formatter.Fail(ExitFailure, "E_SIM_FAILED", runErr.Error(), result, text)
	case result.StepFailures > 0:
		return formatter.Fail(ExitFailure, "E_STEP_FAILED", fmt.Sprintf("%d step(s) failed", result.StepFailures), result, text)
	}
	return formatter.Emit(result, text)
}

func applySimFlags(cfg *config.Config, opts *SimOptions, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("component") {
		cfg.Simulation.Component = opts.Component
	}
	if flags.Changed("frames") {
		cfg.Simulation.Frames = opts.Frames
	}
	if flags.Changed("delta") {
		cfg.Simulation.Delta = opts.Delta
	}
	if flags.Changed("manifests") {
		cfg.Simulation.ManifestDir = opts.ManifestDir
	}
	if flags.Changed("db") {
		cfg.Store.Path = opts.Database
	}
}

// loadCatalog compiles the manifests in dir, or describes only the
// built-in components when dir is empty.
func loadCatalog(dir string) (*manifest.Catalog, error) {
	if dir == "" {
		return manifest.NewCatalog(modelica.ThermalMetadata())
	}
	return manifest.LoadDir(dir)
}

// enqueueSetup schedules the manual load (when auto-initialize is off) and
// the --set inputs for the first frame.
func enqueueSetup(d *host.Driver, n *node.ModelicaNode, strs *ident.Context, inputs []input) error {
	if !n.AutoInitialize {
		if err := d.Enqueue(func(ctx context.Context, frame int64) {
			n.LoadComponent(ctx, n.ComponentName)
		}); err != nil {
			return err
		}
	}

	for _, in := range inputs {
		name := strs.StaticString(in.name).ToString()
		if err := d.Enqueue(func(ctx context.Context, frame int64) {
			if in.isBool {
				n.SetBoolInput(ctx, name, in.b)
			} else {
				n.SetRealInput(ctx, name, in.v)
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// parseInputs parses --set values, sorted by name. "true" and "false" are
// bool inputs; anything else must be a number.
func parseInputs(raw map[string]string) ([]input, error) {
	inputs := make([]input, 0, len(raw))
	for name, value := range raw {
		if name == "" {
			return nil, fmt.Errorf("--set: empty input name")
		}
		switch strings.ToLower(value) {
		case "true", "false":
			inputs = append(inputs, input{name: name, isBool: true, b: strings.EqualFold(value, "true")})
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %q is neither a number nor true/false", name, value)
		}
		inputs = append(inputs, input{name: name, v: v})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].name < inputs[j].name })
	return inputs, nil
}

// inputParams records inputs as run parameters. Bools become 0 or 1.
func inputParams(inputs []input) map[string]float64 {
	if len(inputs) == 0 {
		return nil
	}
	params := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		switch {
		case !in.isBool:
			params[in.name] = in.v
		case in.b:
			params[in.name] = 1
		default:
			params[in.name] = 0
		}
	}
	return params
}

// dictionaryOutputs reads the node's outputs the way the engine receives
// them: copied out through a foreign buffer and decoded back.
func dictionaryOutputs(ctx context.Context, n *node.ModelicaNode) (map[string]float64, error) {
	buf := ffi.NewMemBuffer(nil)
	if err := ffi.WriteDictionary(buf, n.GetAllOutputs(ctx)); err != nil {
		return nil, err
	}
	dict, err := ffi.ReadDictionary(buf)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, dict.Len())
	for _, k := range dict.Keys() {
		if v, ok := dict.Float(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func writeSimText(w io.Writer, r SimResult) {
	fmt.Fprintf(w, "component: %s\n", r.Component)
	if r.RunID != "" {
		mode := "recorded"
		if r.Replay {
			mode = "replayed"
		}
		fmt.Fprintf(w, "run:       %s (%s)\n", r.RunID, mode)
	}
	fmt.Fprintf(w, "status:    %s\n", r.Status)
	fmt.Fprintf(w, "frames:    %d (%d failed)\n", r.Frames, r.StepFailures)

	keys := make([]string, 0, len(r.Outputs))
	for k := range r.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %g\n", k, r.Outputs[k])
	}
}
