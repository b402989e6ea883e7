package node

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondlegend4/modelica-gdext/internal/ident"
	"github.com/bondlegend4/modelica-gdext/internal/modelica"
	"github.com/bondlegend4/modelica-gdext/internal/testutil"
)

type frameLog struct {
	mu     sync.Mutex
	frames []int64
	last   map[string]float64
	err    error
}

func (r *frameLog) RecordFrame(ctx context.Context, frame int64, outputs map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	r.last = outputs
	return r.err
}

type stepCounts struct {
	ok, failed map[string]int
}

func newStepCounts() *stepCounts {
	return &stepCounts{ok: map[string]int{}, failed: map[string]int{}}
}

func (s *stepCounts) StepSucceeded(component string) { s.ok[component]++ }
func (s *stepCounts) StepFailed(component string)    { s.failed[component]++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTankLoader() (*testutil.FakeLoader, *testutil.FakeRuntime) {
	loader := testutil.NewFakeLoader()
	rt := loader.Add("Tank", testutil.NewFakeRuntime(map[string]float64{"time": 0, "level": 1.5}))
	return loader, rt
}

func TestModelicaNode_Defaults(t *testing.T) {
	n := New(testutil.NewFakeLoader().Load, WithLogger(quietLogger()))
	assert.True(t, n.AutoInitialize)
	assert.True(t, n.ComponentName.IsEmpty())
	assert.Equal(t, 0, n.GetAllOutputs(context.Background()).Len())
}

func TestModelicaNode_ReadyAutoLoads(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	n := New(loader.Load, WithLogger(quietLogger()))
	n.ComponentName = ident.NewString("Tank")

	n.Ready(ctx)

	assert.Equal(t, []string{"Tank"}, loader.Loads())
	assert.Equal(t, 1, rt.Resets(), "load initializes")
	assert.Equal(t, "Tank", n.Metadata().Name)
}

func TestModelicaNode_ReadySkips(t *testing.T) {
	ctx := context.Background()

	loader, _ := newTankLoader()
	n := New(loader.Load, WithLogger(quietLogger()))
	n.ComponentName = ident.NewString("Tank")
	n.AutoInitialize = false
	n.Ready(ctx)
	assert.Empty(t, loader.Loads())

	empty := New(loader.Load, WithLogger(quietLogger()))
	empty.Ready(ctx)
	assert.Empty(t, loader.Loads())
}

func TestModelicaNode_ProcessUnloadedLogsAndCounts(t *testing.T) {
	ctx := context.Background()
	steps := newStepCounts()
	n := New(testutil.NewFakeLoader().Load, WithLogger(quietLogger()), WithStepObserver(steps))

	n.Process(ctx, 0.016)
	n.Process(ctx, 0.016)

	assert.Equal(t, int64(2), n.Frames())
	assert.Equal(t, int64(2), n.StepFailures())
	assert.Equal(t, 2, steps.failed[""])
}

func TestModelicaNode_ProcessRecords(t *testing.T) {
	ctx := context.Background()
	loader, _ := newTankLoader()
	rec := &frameLog{}
	steps := newStepCounts()
	n := New(loader.Load, WithLogger(quietLogger()), WithRecorder(rec), WithStepObserver(steps))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	for i := 0; i < 3; i++ {
		n.Process(ctx, 0.5)
	}

	assert.Equal(t, []int64{1, 2, 3}, rec.frames)
	assert.InDelta(t, 1.5, rec.last["time"], 1e-9)
	assert.Equal(t, 3, steps.ok["Tank"])
	assert.Equal(t, int64(0), n.StepFailures())
}

func TestModelicaNode_RecorderErrorDoesNotFailStep(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	rec := &frameLog{err: errors.New("disk full")}
	n := New(loader.Load, WithLogger(quietLogger()), WithRecorder(rec))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	n.Process(ctx, 0.1)
	assert.Equal(t, 1, rt.Steps())
	assert.Equal(t, int64(0), n.StepFailures())
}

func TestModelicaNode_StepFailure(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	rec := &frameLog{}
	n := New(loader.Load, WithLogger(quietLogger()), WithRecorder(rec))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	rt.FailOn(testutil.OpStep, errors.New("solver diverged"))
	n.Process(ctx, 0.1)

	assert.Equal(t, int64(1), n.StepFailures())
	assert.Empty(t, rec.frames)
}

func TestModelicaNode_InputsAndOutputs(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	n := New(loader.Load, WithLogger(quietLogger()))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	assert.True(t, n.SetRealInput(ctx, ident.NewString("level"), 4))
	assert.True(t, n.SetBoolInput(ctx, ident.NewString("drain_open"), true))
	assert.True(t, rt.Bool("drain_open"))
	assert.InDelta(t, 4.0, n.GetRealOutput(ctx, ident.NewString("level")), 1e-9)
	assert.Equal(t, 0.0, n.GetRealOutput(ctx, ident.NewString("missing")))

	dict := n.GetAllOutputs(ctx)
	assert.Equal(t, []string{"level", "time"}, dict.Keys())
	level, ok := dict.Float("level")
	require.True(t, ok)
	assert.InDelta(t, 4.0, level, 1e-9)

	rt.FailOn(testutil.OpSetReal, errors.New("read-only"))
	assert.False(t, n.SetRealInput(ctx, ident.NewString("level"), 1))
}

func TestModelicaNode_Unloaded(t *testing.T) {
	ctx := context.Background()
	n := New(testutil.NewFakeLoader().Load, WithLogger(quietLogger()))

	assert.False(t, n.SetRealInput(ctx, ident.NewString("x"), 1))
	assert.False(t, n.SetBoolInput(ctx, ident.NewString("x"), true))
	assert.Equal(t, 0.0, n.GetRealOutput(ctx, ident.NewString("x")))
	assert.True(t, n.ResetSimulation(ctx))
	assert.Equal(t, modelica.GenericType, n.Metadata().ComponentType)
}

func TestModelicaNode_LoadFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	n := New(loader.Load, WithLogger(quietLogger()))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	assert.False(t, n.LoadComponent(ctx, ident.NewString("Ghost")))
	n.Process(ctx, 0.1)
	assert.Equal(t, 1, rt.Steps())
}

func TestModelicaNode_InitializeFailure(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	rt.FailOn(testutil.OpReset, errors.New("bad initial state"))
	n := New(loader.Load, WithLogger(quietLogger()))

	assert.False(t, n.LoadComponent(ctx, ident.NewString("Tank")))
	assert.False(t, n.ResetSimulation(ctx))
}

func TestModelicaNode_Close(t *testing.T) {
	ctx := context.Background()
	loader, rt := newTankLoader()
	n := New(loader.Load, WithLogger(quietLogger()))
	require.True(t, n.LoadComponent(ctx, ident.NewString("Tank")))

	require.NoError(t, n.Close())
	assert.True(t, rt.Closed())
}
