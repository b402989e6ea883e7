package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondlegend4/modelica-gdext/internal/ident"
	"github.com/bondlegend4/modelica-gdext/internal/node"
)

var (
	_ ident.Observer    = (*Metrics)(nil)
	_ node.StepObserver = (*Metrics)(nil)
)

func TestMetrics_InternCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	ctx := ident.NewContext(ident.Config{Observer: m, Logger: ident.DiscardLogger()})
	ctx.StaticString("health")
	ctx.StaticString("health")
	ctx.StaticString("mana")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.internHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.internMisses))
}

func TestMetrics_StepCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.StepSucceeded("Tank")
	m.StepSucceeded("Tank")
	m.StepFailed("Tank")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("Tank", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("Tank", "error")))
}

func TestMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.StepFailed("Tank")

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	assert.Contains(t, buf.String(), `gdmod_sim_steps_total{component="Tank",result="error"} 1`)
	assert.Contains(t, buf.String(), "gdmod_intern_static_hits_total 0")
}
