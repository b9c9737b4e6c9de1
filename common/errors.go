package common

import "fmt"

// InitializationError reports a failure while building the pipeline: a missing device capability,
// a shader that does not parse or validate, or a render pipeline the device refused to create.
// No partially built pipeline is left runnable after one of these.
type InitializationError struct {
	Op  string
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization: %s: %v", e.Op, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// ResourceCreationError reports that the device rejected a render target allocation,
// e.g. an unsupported color format or a dimension above the device limit.
type ResourceCreationError struct {
	Op  string
	Err error
}

func (e *ResourceCreationError) Error() string {
	return fmt.Sprintf("resource creation: %s: %v", e.Op, e.Err)
}

func (e *ResourceCreationError) Unwrap() error {
	return e.Err
}

// UsageError reports a programming defect caught by a precondition check, such as binding
// a target for reading while it is the active write target or drawing before initialization.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: %s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// NewInitializationError builds an InitializationError with a formatted cause.
func NewInitializationError(op, format string, args ...any) error {
	return &InitializationError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewResourceCreationError builds a ResourceCreationError with a formatted cause.
func NewResourceCreationError(op, format string, args ...any) error {
	return &ResourceCreationError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewUsageError builds a UsageError with a formatted cause.
func NewUsageError(op, format string, args ...any) error {
	return &UsageError{Op: op, Err: fmt.Errorf(format, args...)}
}
