package modelica

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes component errors.
type ErrorKind string

const (
	// KindLoadFailed indicates the runtime for a component could not be created.
	KindLoadFailed ErrorKind = "LOAD_FAILED"

	// KindInitializationFailed indicates Initialize failed or no component is loaded.
	KindInitializationFailed ErrorKind = "INITIALIZATION_FAILED"

	// KindInvalidInput indicates an input could not be set.
	KindInvalidInput ErrorKind = "INVALID_INPUT"

	// KindInvalidOutput indicates an output could not be read.
	KindInvalidOutput ErrorKind = "INVALID_OUTPUT"

	// KindStepFailed indicates the solver could not advance.
	KindStepFailed ErrorKind = "STEP_FAILED"

	// KindResetFailed indicates the solver could not return to initial conditions.
	KindResetFailed ErrorKind = "RESET_FAILED"
)

// notLoaded is the message for operations on an empty component.
const notLoaded = "Component not loaded"

// ComponentError is the error type returned by Component operations.
type ComponentError struct {
	Kind      ErrorKind
	Component string // component name, empty if none loaded
	Message   string
	Err       error // underlying runtime error, optional
}

func (e *ComponentError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component=%s)", e.Kind, msg, e.Component)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *ComponentError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ComponentError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, component, message string, err error) *ComponentError {
	return &ComponentError{Kind: kind, Component: component, Message: message, Err: err}
}
