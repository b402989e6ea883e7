package manifest

import (
	"fmt"
	"strings"

	"github.com/bondlegend4/modelica-gdext/internal/modelica"
)

// Validation error codes.
const (
	ErrNoOutputs      = "M101" // at least one output required
	ErrEmptyName      = "M102" // variable or component name empty
	ErrDuplicateName  = "M103" // name declared twice
	ErrInvalidKind    = "M104" // kind not real|bool
	ErrOutputNotReal  = "M105" // outputs must be real
	ErrBoolHasDefault = "M106" // bool inputs take no numeric default
)

// ValidationError is a rule violation in compiled metadata.
type ValidationError struct {
	Component string `json:"component"`
	Field     string `json:"field"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Component, e.Field, e.Message)
}

// Validate checks compiled metadata. All violations are returned.
func Validate(md *modelica.Metadata) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Component: md.Name,
			Field:     field,
			Message:   fmt.Sprintf(format, args...),
			Code:      code,
		})
	}

	if strings.TrimSpace(md.Name) == "" {
		add("name", ErrEmptyName, "component name is required")
	}
	if len(md.Outputs) == 0 {
		add("outputs", ErrNoOutputs, "at least one output is required")
	}

	// Inputs and outputs share one namespace in the solver.
	seen := make(map[string]string)
	check := func(field string, v modelica.Variable) {
		if strings.TrimSpace(v.Name) == "" {
			add(field, ErrEmptyName, "name must be non-empty")
			return
		}
		if prev, ok := seen[v.Name]; ok {
			add(field, ErrDuplicateName, "%q already declared at %s", v.Name, prev)
			return
		}
		seen[v.Name] = field
	}

	for i, in := range md.Inputs {
		field := fmt.Sprintf("inputs[%d]", i)
		check(field, in)
		switch in.Kind {
		case modelica.VarReal:
		case modelica.VarBool:
			if in.Default != nil {
				add(field, ErrBoolHasDefault, "bool input %q cannot have a numeric default", in.Name)
			}
		default:
			add(field, ErrInvalidKind, "kind %q must be real or bool", in.Kind)
		}
	}

	for i, out := range md.Outputs {
		field := fmt.Sprintf("outputs[%d]", i)
		check(field, out)
		if out.Kind != modelica.VarReal {
			add(field, ErrOutputNotReal, "output %q must be real, got %q", out.Name, out.Kind)
		}
	}

	return errs
}
