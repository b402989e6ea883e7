package modelica_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
	"github.com/bondlegend4/modelica-gdext/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newComponent(t *testing.T, loader *testutil.FakeLoader, opts ...modelica.ComponentOption) *modelica.GenericComponent {
	t.Helper()
	opts = append([]modelica.ComponentOption{modelica.WithLogger(quietLogger())}, opts...)
	c := modelica.NewGenericComponent(loader.Load, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGenericComponent_UnloadedErrorTaxonomy(t *testing.T) {
	ctx := context.Background()
	c := newComponent(t, testutil.NewFakeLoader())

	tests := []struct {
		name string
		call func() error
		kind modelica.ErrorKind
	}{
		{"initialize", func() error { return c.Initialize(ctx) }, modelica.KindInitializationFailed},
		{"set_input", func() error { return c.SetInput(ctx, "x", 1) }, modelica.KindInvalidInput},
		{"set_bool_input", func() error { return c.SetBoolInput(ctx, "on", true) }, modelica.KindInvalidInput},
		{"get_output", func() error { _, err := c.GetOutput(ctx, "y"); return err }, modelica.KindInvalidOutput},
		{"step", func() error { return c.Step(ctx, 0.016) }, modelica.KindStepFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, modelica.IsKind(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), "Component not loaded")
		})
	}
}

func TestGenericComponent_UnloadedResetAndOutputs(t *testing.T) {
	ctx := context.Background()
	c := newComponent(t, testutil.NewFakeLoader())

	assert.NoError(t, c.Reset(ctx))

	out, err := c.AllOutputs(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)

	md := c.Metadata()
	assert.Equal(t, "", md.Name)
	assert.Equal(t, modelica.GenericType, md.ComponentType)
	assert.Empty(t, md.Inputs)
	assert.Empty(t, md.Outputs)
	assert.Equal(t, "", c.ComponentType())
}

func TestGenericComponent_LoadAndDrive(t *testing.T) {
	ctx := context.Background()
	loader := testutil.NewFakeLoader()
	rt := loader.Add("Tank", testutil.NewFakeRuntime(map[string]float64{"time": 0, "level": 2}))
	c := newComponent(t, loader)

	require.NoError(t, c.LoadFromFile(ctx, "Tank"))
	require.NoError(t, c.Initialize(ctx))
	assert.Equal(t, "Tank", c.ComponentType())
	assert.True(t, c.Loaded())

	require.NoError(t, c.SetInput(ctx, "inflow", 0.5))
	require.NoError(t, c.SetBoolInput(ctx, "valve_open", true))
	require.NoError(t, c.Step(ctx, 0.1))
	require.NoError(t, c.Step(ctx, 0.1))

	v, err := c.GetOutput(ctx, "time")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, v, 1e-9)
	assert.True(t, rt.Bool("valve_open"))

	out, err := c.AllOutputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"level", "time"}, sortedKeys(out))
}

func TestGenericComponent_RuntimeErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	loader := testutil.NewFakeLoader()
	rt := loader.Add("Tank", testutil.NewFakeRuntime(nil))
	c := newComponent(t, loader)
	require.NoError(t, c.LoadFromFile(ctx, "Tank"))

	boom := errors.New("solver diverged")
	rt.FailOn(testutil.OpStep, boom)

	err := c.Step(ctx, 0.1)
	require.Error(t, err)
	assert.True(t, modelica.IsKind(err, modelica.KindStepFailed))
	assert.ErrorIs(t, err, boom)

	var ce *modelica.ComponentError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Tank", ce.Component)

	rt.FailOn(testutil.OpReset, boom)
	assert.True(t, modelica.IsKind(c.Initialize(ctx), modelica.KindInitializationFailed))
	assert.True(t, modelica.IsKind(c.Reset(ctx), modelica.KindResetFailed))

	_, err = c.GetOutput(ctx, "missing")
	assert.True(t, modelica.IsKind(err, modelica.KindInvalidOutput))
}

func TestGenericComponent_LoadFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	loader := testutil.NewFakeLoader()
	rt := loader.Add("Tank", testutil.NewFakeRuntime(map[string]float64{"time": 0}))
	c := newComponent(t, loader)
	require.NoError(t, c.LoadFromFile(ctx, "Tank"))

	err := c.LoadFromFile(ctx, "Missing")
	require.Error(t, err)
	assert.True(t, modelica.IsKind(err, modelica.KindLoadFailed))
	assert.ErrorIs(t, err, modelica.ErrUnknownComponent)

	assert.Equal(t, "Tank", c.Name())
	assert.NoError(t, c.Step(ctx, 0.1))
	assert.Equal(t, 1, rt.Steps())
	assert.False(t, rt.Closed())
}

func TestGenericComponent_LoadEmptyName(t *testing.T) {
	c := newComponent(t, testutil.NewFakeLoader())
	err := c.LoadFromFile(context.Background(), "")
	assert.True(t, modelica.IsKind(err, modelica.KindLoadFailed))
}

func TestGenericComponent_ReloadClosesPrevious(t *testing.T) {
	ctx := context.Background()
	loader := testutil.NewFakeLoader()
	first := loader.Add("A", testutil.NewFakeRuntime(nil))
	loader.Add("B", testutil.NewFakeRuntime(nil))
	c := newComponent(t, loader)

	require.NoError(t, c.LoadFromFile(ctx, "A"))
	require.NoError(t, c.LoadFromFile(ctx, "B"))

	assert.True(t, first.Closed())
	assert.Equal(t, "B", c.Name())
}

type staticCatalog map[string]*modelica.Metadata

func (c staticCatalog) Lookup(name string) (*modelica.Metadata, bool) {
	md, ok := c[name]
	return md, ok
}

func TestGenericComponent_MetadataFromCatalog(t *testing.T) {
	ctx := context.Background()
	loader := testutil.NewFakeLoader()
	loader.Add(modelica.ThermalName, testutil.NewFakeRuntime(nil))
	catalog := staticCatalog{modelica.ThermalName: modelica.ThermalMetadata()}
	c := newComponent(t, loader, modelica.WithCatalog(catalog))

	require.NoError(t, c.LoadFromFile(ctx, modelica.ThermalName))

	md := c.Metadata()
	assert.Equal(t, modelica.ThermalName, md.Name)
	assert.Equal(t, modelica.GenericType, md.ComponentType)
	require.Len(t, md.Inputs, 3)
	assert.Equal(t, "heater_on", md.Inputs[0].Name)
	assert.Equal(t, modelica.VarBool, md.Inputs[0].Kind)
	require.Len(t, md.Outputs, 3)

	md.Inputs[0].Name = "mutated"
	assert.Equal(t, "heater_on", c.Metadata().Inputs[0].Name)
}

func TestComponentError_Message(t *testing.T) {
	err := &modelica.ComponentError{
		Kind:      modelica.KindStepFailed,
		Component: "Tank",
		Message:   "step failed",
		Err:       errors.New("nan"),
	}
	assert.Equal(t, "STEP_FAILED: step failed: nan (component=Tank)", err.Error())

	assert.False(t, modelica.IsKind(errors.New("plain"), modelica.KindStepFailed))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
