package modelica

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// ThermalName is the registered name of the built-in thermal model.
const ThermalName = "SimpleThermal"

// Thermal model defaults.
const (
	thermalCapacity     = 1000.0 // J/K
	thermalConductance  = 10.0   // W/K
	thermalHeaterPower  = 1000.0 // W
	thermalAmbient      = 20.0   // degC
	thermalInitialTempC = 20.0
)

// ThermalRuntime is a lumped single-room heat balance integrated with
// explicit Euler:
//
//	C dT/dt = Q*heater_on - G*(T - ambient)
//
// It stands in for an external solver when none is configured.
type ThermalRuntime struct {
	mu       sync.Mutex
	reals    map[string]float64
	heaterOn bool
	time     float64
}

// NewThermalRuntime creates a ThermalRuntime at initial conditions.
func NewThermalRuntime() *ThermalRuntime {
	r := &ThermalRuntime{}
	r.reset()
	return r
}

// ThermalMetadata describes ThermalRuntime's variables.
func ThermalMetadata() *Metadata {
	ambient, power := thermalAmbient, thermalHeaterPower
	return &Metadata{
		Name:          ThermalName,
		ComponentType: GenericType,
		Description:   "Single-room heat balance with an on/off heater",
		Inputs: []Variable{
			{Name: "heater_on", Kind: VarBool},
			{Name: "ambient_temperature", Kind: VarReal, Unit: "degC", Default: &ambient},
			{Name: "heater_power", Kind: VarReal, Unit: "W", Default: &power},
		},
		Outputs: []Variable{
			{Name: "temperature", Kind: VarReal, Unit: "degC"},
			{Name: "heat_flow", Kind: VarReal, Unit: "W"},
			{Name: "time", Kind: VarReal, Unit: "s"},
		},
	}
}

func (r *ThermalRuntime) reset() {
	r.reals = map[string]float64{
		"ambient_temperature": thermalAmbient,
		"heater_power":        thermalHeaterPower,
		"temperature":         thermalInitialTempC,
		"heat_flow":           0,
	}
	r.heaterOn = false
	r.time = 0
}

func (r *ThermalRuntime) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	return nil
}

func (r *ThermalRuntime) SetReal(ctx context.Context, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch name {
	case "ambient_temperature", "heater_power":
		r.reals[name] = value
		return nil
	}
	return fmt.Errorf("no real input %q", name)
}

func (r *ThermalRuntime) SetBool(ctx context.Context, name string, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "heater_on" {
		return fmt.Errorf("no bool input %q", name)
	}
	r.heaterOn = value
	return nil
}

func (r *ThermalRuntime) GetReal(ctx context.Context, name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "time" {
		return r.time, nil
	}
	v, ok := r.reals[name]
	if !ok {
		return 0, fmt.Errorf("no variable %q", name)
	}
	return v, nil
}

func (r *ThermalRuntime) Step(ctx context.Context, dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("non-finite time step %g", dt)
	}
	if dt < 0 {
		return fmt.Errorf("negative time step %g", dt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	temp := r.reals["temperature"]
	var q float64
	if r.heaterOn {
		q = r.reals["heater_power"]
	}
	loss := thermalConductance * (temp - r.reals["ambient_temperature"])
	r.reals["temperature"] = temp + dt*(q-loss)/thermalCapacity
	r.reals["heat_flow"] = q - loss
	r.time += dt
	return nil
}

func (r *ThermalRuntime) Outputs(ctx context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]float64{
		"temperature": r.reals["temperature"],
		"heat_flow":   r.reals["heat_flow"],
		"time":        r.time,
	}, nil
}

func (r *ThermalRuntime) Close() error { return nil }

// RegisterBuiltins adds the built-in runtimes to reg.
func RegisterBuiltins(reg *Registry) {
	reg.Register(ThermalName, func(ctx context.Context, component string) (Runtime, error) {
		return NewThermalRuntime(), nil
	})
}

var _ Runtime = (*ThermalRuntime)(nil)
