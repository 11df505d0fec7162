package analysis

import (
	"errors"
	"fmt"
)

// Class categorizes a failure for propagation purposes.
type Class int

const (
	// ClassUnknown is reported for errors that were never classified.
	ClassUnknown Class = iota
	// ClassConfiguration means the capture root is invalid or unreadable. Terminal.
	ClassConfiguration
	// ClassDataUnavailable means an expected table or feature is absent. Non-fatal.
	ClassDataUnavailable
	// ClassDataCorrupt means data expected to exist could not be read or parsed.
	// Fatal for the owning extractor only.
	ClassDataCorrupt
	// ClassResourceExhaustion means reserving output capacity failed.
	// Fatal for the owning extractor only.
	ClassResourceExhaustion
	// ClassAssembly means an assembler produced nothing from non-empty input.
	ClassAssembly
)

var classNames = map[Class]string{
	ClassUnknown:            "unknown",
	ClassConfiguration:      "configuration",
	ClassDataUnavailable:    "data-unavailable",
	ClassDataCorrupt:        "data-corrupt",
	ClassResourceExhaustion: "resource-exhaustion",
	ClassAssembly:           "assembly",
}

// String returns the string representation of Class
func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// Standard error variables for common conditions
var (
	ErrNotCapture      = errors.New("not a capture root")
	ErrMissingField    = errors.New("missing required field")
	ErrBadFrequency    = errors.New("frequency must be positive")
	ErrTableMissing    = errors.New("required table missing")
	ErrTableCorrupt    = errors.New("table unreadable")
	ErrCapacity        = errors.New("cannot reserve output capacity")
	ErrNoEvents        = errors.New("assembler produced no events")
	ErrDuplicateDomain = errors.New("device id present in more than one capture root")
)

// Error wraps an underlying error with its class and the stage that raised it.
type Error struct {
	Class     Class
	Component string
	Op        string
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Component, e.Err)
	}
	return fmt.Sprintf("%s: %s.%s: %v", e.Class, e.Component, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(class Class, err error, component, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Component: component, Op: op, Err: err}
}

// Configuration classifies err as a ConfigurationError.
func Configuration(err error, component, op string) error {
	return newError(ClassConfiguration, err, component, op)
}

// Unavailable classifies err as DataUnavailable.
func Unavailable(err error, component, op string) error {
	return newError(ClassDataUnavailable, err, component, op)
}

// Corrupt classifies err as DataCorrupt.
func Corrupt(err error, component, op string) error {
	return newError(ClassDataCorrupt, err, component, op)
}

// Exhausted classifies err as ResourceExhaustion.
func Exhausted(err error, component, op string) error {
	return newError(ClassResourceExhaustion, err, component, op)
}

// Assembly classifies err as an AssemblyError.
func Assembly(err error, component, op string) error {
	return newError(ClassAssembly, err, component, op)
}

// ClassOf returns the class of the first classified error in err's chain.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnknown
}

// IsFatal reports whether err should mark the run as failed.
// DataUnavailable is the only non-fatal class.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return ClassOf(err) != ClassDataUnavailable
}
