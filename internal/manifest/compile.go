// Package manifest compiles CUE component manifests into modelica.Metadata.
//
// A manifest directory holds one or more .cue files declaring components:
//
//	component: SimpleThermal: {
//		description: "Single-room heat balance"
//		inputs: [{name: "heater_on", kind: "bool"}]
//		outputs: [{name: "temperature", unit: "degC"}]
//		runtime: command: ["thermal-solver", "--stdio"]
//	}
//
// The runtime command, when present, is launched as a ProcessRuntime.
package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// Compile parses one component value into Metadata.
//
// The value should be the component struct itself:
//
//	v := ctx.CompileString(src)
//	md, err := Compile(v.LookupPath(cue.ParsePath("component.SimpleThermal")))
func Compile(v cue.Value) (*modelica.Metadata, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	md := &modelica.Metadata{ComponentType: modelica.GenericType}

	md.Name = componentName(v)

	if d := v.LookupPath(cue.ParsePath("description")); d.Exists() {
		desc, err := d.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		md.Description = desc
	}

	var err error
	md.Inputs, err = parseVariables(v, "inputs", true)
	if err != nil {
		return nil, err
	}

	outVal := v.LookupPath(cue.ParsePath("outputs"))
	if !outVal.Exists() {
		return nil, &CompileError{
			Field:   "outputs",
			Message: "outputs is required",
			Pos:     v.Pos(),
		}
	}
	md.Outputs, err = parseVariables(v, "outputs", false)
	if err != nil {
		return nil, err
	}

	md.Command, err = parseCommand(v)
	if err != nil {
		return nil, err
	}

	return md, nil
}

// componentName is the unquoted label the component is declared under, so
// component: "my-tank": {...} is named my-tank.
func componentName(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	sel := labels[len(labels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// parseVariables reads a list of {name, kind?, unit?, default?} structs.
// Only inputs may carry a default.
func parseVariables(v cue.Value, field string, isInput bool) ([]modelica.Variable, error) {
	vars := []modelica.Variable{}

	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return vars, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list",
			Pos:     listVal.Pos(),
		}
	}

	for i := 0; iter.Next(); i++ {
		item := iter.Value()
		where := fmt.Sprintf("%s[%d]", field, i)

		nameVal := item.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   where + ".name",
				Message: "name is required",
				Pos:     item.Pos(),
			}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		variable := modelica.Variable{Name: name, Kind: modelica.VarReal}

		if k := item.LookupPath(cue.ParsePath("kind")); k.Exists() {
			kind, err := k.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			variable.Kind = modelica.VariableKind(kind)
		}

		if u := item.LookupPath(cue.ParsePath("unit")); u.Exists() {
			unit, err := u.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			variable.Unit = unit
		}

		if d := item.LookupPath(cue.ParsePath("default")); d.Exists() {
			if !isInput {
				return nil, &CompileError{
					Field:   where + ".default",
					Message: "outputs cannot declare a default",
					Pos:     d.Pos(),
				}
			}
			def, err := d.Float64()
			if err != nil {
				return nil, &CompileError{
					Field:   where + ".default",
					Message: "default must be a number",
					Pos:     d.Pos(),
				}
			}
			variable.Default = &def
		}

		vars = append(vars, variable)
	}

	return vars, nil
}

func parseCommand(v cue.Value) ([]string, error) {
	cmdVal := v.LookupPath(cue.ParsePath("runtime.command"))
	if !cmdVal.Exists() {
		return nil, nil
	}

	var cmd []string
	if err := cmdVal.Decode(&cmd); err != nil {
		return nil, &CompileError{
			Field:   "runtime.command",
			Message: "must be a list of strings",
			Pos:     cmdVal.Pos(),
		}
	}
	if len(cmd) == 0 {
		return nil, &CompileError{
			Field:   "runtime.command",
			Message: "command must not be empty",
			Pos:     cmdVal.Pos(),
		}
	}
	return cmd, nil
}

// CompileError is a manifest error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
