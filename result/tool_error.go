package result

import (
	"errors"
	"fmt"
)

// ToolError represents a structured tool-reducer failure that preserves
// message and causal context while still implementing the standard error
// interface. Reducers may wrap an underlying ToolError via Cause to retain
// diagnostics across a chain of internal calls; the engine only ever sees
// the flattened string from Error() (spec.md §4.3 guarantee 2: the error
// string, not a structured value, is what reaches the model as a
// tool_result).
type ToolError struct {
	// Message is the human-readable summary of the failure.
	Message string
	// Cause links to the underlying tool error, enabling chains via
	// errors.Is/As.
	Cause *ToolError
}

// NewToolError constructs a ToolError with the given message.
func NewToolError(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// ToolErrorf formats according to a format specifier and returns the result
// as a ToolError.
func ToolErrorf(format string, args ...any) *ToolError {
	return NewToolError(fmt.Sprintf(format, args...))
}

// WrapToolError constructs a ToolError wrapping cause. If cause is already a
// ToolError chain it is reused rather than re-wrapped.
func WrapToolError(message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Message: message, Cause: asToolError(cause)}
}

func asToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: asToolError(errors.Unwrap(err))}
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}
