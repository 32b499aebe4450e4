package mx

import (
	"errors"
	"fmt"
)

var (
	// ErrInputKeyMismatch is returned when some, but not all, inputs of an
	// operator were supplied by name.
	ErrInputKeyMismatch = errors.New("named inputs must name every input")

	// ErrOperatorSpent is returned when an Operator is invoked a second time.
	ErrOperatorSpent = errors.New("operator has already been invoked")

	// ErrNilValue is returned when a nil or already freed value is passed
	// where an engine handle is required.
	ErrNilValue = errors.New("value is nil or has been freed")

	// ErrParamIndex is returned when a positional parameter has no matching
	// argument name.
	ErrParamIndex = errors.New("parameter index out of range")
)

// UnknownOperatorError is returned when an operator name is in neither
// operator table.
type UnknownOperatorError struct {
	Name string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Name)
}

// UnknownDeviceTypeError is returned for an engine device type code that has
// no DeviceType.
type UnknownDeviceTypeError struct {
	Code int
}

func (e *UnknownDeviceTypeError) Error() string {
	return fmt.Sprintf("unknown device type code %d", e.Code)
}
