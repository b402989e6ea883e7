// Package metrics exposes interning and simulation counters as Prometheus
// collectors.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "gdmod"

// Metrics implements ident.Observer and node.StepObserver.
type Metrics struct {
	internHits   prometheus.Counter
	internMisses prometheus.Counter
	steps        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		internHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intern",
			Name:      "static_hits_total",
			Help:      "Static name lookups served from the per-context table.",
		}),
		internMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intern",
			Name:      "static_misses_total",
			Help:      "Static name lookups that populated the per-context table.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "steps_total",
			Help:      "Simulation steps by component and result.",
		}, []string{"component", "result"}),
	}

	for _, c := range []prometheus.Collector{m.internHits, m.internMisses, m.steps} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// StaticHit counts a static table hit.
func (m *Metrics) StaticHit() { m.internHits.Inc() }

// StaticMiss counts a static table miss.
func (m *Metrics) StaticMiss() { m.internMisses.Inc() }

// StepSucceeded counts a successful step.
func (m *Metrics) StepSucceeded(component string) {
	m.steps.WithLabelValues(component, "ok").Inc()
}

// StepFailed counts a failed step.
func (m *Metrics) StepFailed(component string) {
	m.steps.WithLabelValues(component, "error").Inc()
}

// WriteText writes everything g gathers in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
