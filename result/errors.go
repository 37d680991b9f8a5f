package result

import "fmt"

// Code is one of the fixed error codes spec.md §6 exposes to callers of
// engine.Execute. It is a closed set: the engine never invents new codes at
// runtime.
type Code string

const (
	// CodeAPIError indicates the model transport returned an error.
	CodeAPIError Code = "API_ERROR"

	// CodeInvalidResponse indicates the model produced a response the
	// engine could not reconcile with the expected tool contract.
	CodeInvalidResponse Code = "INVALID_RESPONSE"

	// CodeOutputToolNotUsed indicates the model ended its turn without
	// producing any tool_use block.
	CodeOutputToolNotUsed Code = "OUTPUT_TOOL_NOT_USED"

	// CodeSubmitBeforeOutput indicates submit was used before any output
	// tool call was recorded in the current attempt.
	CodeSubmitBeforeOutput Code = "SUBMIT_BEFORE_OUTPUT"

	// CodeMaxIterationsExceeded indicates an attempt exhausted its
	// iteration budget without producing a candidate output.
	CodeMaxIterationsExceeded Code = "MAX_ITERATIONS_EXCEEDED"

	// CodeMaxAttemptsExceeded indicates every attempt was exhausted
	// without a validated output.
	CodeMaxAttemptsExceeded Code = "MAX_ATTEMPTS_EXCEEDED"

	// CodeValidationFailed indicates a validation layer rejected a
	// candidate output. Surfaced to callers only nested inside a
	// MAX_ATTEMPTS_EXCEEDED.lastError, never as a standalone terminal
	// error (spec.md §6).
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeExecutionCancelled indicates the caller-supplied context was
	// cancelled at one of the four cooperative checkpoints.
	CodeExecutionCancelled Code = "EXECUTION_CANCELLED"
)

// ExecError is the fixed-taxonomy error the engine returns to callers. Each
// code carries a typed context map populated according to spec.md §6; Context
// is exported as map[string]any rather than per-code structs so a single
// error type satisfies every code without a sum-of-structs switch at every
// call site, while Code lets callers branch precisely via errors.As.
type ExecError struct {
	code    Code
	message string
	context map[string]any
	cause   error
}

// Code returns the fixed error code.
func (e *ExecError) Code() Code { return e.code }

// Context returns the typed context fields for this error code. Callers
// should treat the returned map as read-only.
func (e *ExecError) Context() map[string]any { return e.context }

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return string(e.code)
}

// Unwrap returns the underlying cause, if any: the transport's own error for
// CodeAPIError, and the lastError for CodeMaxAttemptsExceeded.
func (e *ExecError) Unwrap() error { return e.cause }

// NewAPIError builds an API_ERROR{attempt, message}.
func NewAPIError(attempt int, cause error) *ExecError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ExecError{
		code:    CodeAPIError,
		message: msg,
		cause:   cause,
		context: map[string]any{"attempt": attempt, "message": msg},
	}
}

// NewInvalidResponse builds an INVALID_RESPONSE{attempt, reason,
// expectedTool, calledTools?}.
func NewInvalidResponse(attempt int, reason, expectedTool string, calledTools []string) *ExecError {
	ctx := map[string]any{
		"attempt":      attempt,
		"reason":       reason,
		"expectedTool": expectedTool,
	}
	if len(calledTools) > 0 {
		ctx["calledTools"] = calledTools
	}
	return &ExecError{code: CodeInvalidResponse, message: reason, context: ctx}
}

// NewOutputToolNotUsed builds an OUTPUT_TOOL_NOT_USED{attempt,
// iterationCount, expectedTool}.
func NewOutputToolNotUsed(attempt, iterationCount int, expectedTool string) *ExecError {
	return &ExecError{
		code:    CodeOutputToolNotUsed,
		message: fmt.Sprintf("model ended its turn without calling %q", expectedTool),
		context: map[string]any{
			"attempt":        attempt,
			"iterationCount": iterationCount,
			"expectedTool":   expectedTool,
		},
	}
}

// NewSubmitBeforeOutput builds a SUBMIT_BEFORE_OUTPUT{attempt,
// iterationCount}.
func NewSubmitBeforeOutput(attempt, iterationCount int) *ExecError {
	return &ExecError{
		code:    CodeSubmitBeforeOutput,
		message: "submit used before any output was recorded in this attempt",
		context: map[string]any{"attempt": attempt, "iterationCount": iterationCount},
	}
}

// NewMaxIterationsExceeded builds a MAX_ITERATIONS_EXCEEDED{attempt,
// iterationCount, maxIterations}.
func NewMaxIterationsExceeded(attempt, iterationCount, maxIterations int) *ExecError {
	return &ExecError{
		code:    CodeMaxIterationsExceeded,
		message: fmt.Sprintf("attempt %d exceeded %d iterations", attempt, maxIterations),
		context: map[string]any{
			"attempt":        attempt,
			"iterationCount": iterationCount,
			"maxIterations":  maxIterations,
		},
	}
}

// NewMaxAttemptsExceeded builds a MAX_ATTEMPTS_EXCEEDED{attempts,
// maxAttempts, lastError?}.
func NewMaxAttemptsExceeded(attempts, maxAttempts int, lastError *ExecError) *ExecError {
	ctx := map[string]any{"attempts": attempts, "maxAttempts": maxAttempts}
	if lastError != nil {
		ctx["lastError"] = lastError
	}
	return &ExecError{
		code:    CodeMaxAttemptsExceeded,
		message: fmt.Sprintf("exhausted %d attempts", maxAttempts),
		context: ctx,
		cause:   lastError,
	}
}

// NewValidationFailed builds a VALIDATION_FAILED{layer, attempt}. Used only
// to populate MAX_ATTEMPTS_EXCEEDED.lastError; a validation failure never
// terminates execute() on its own (spec.md §7).
func NewValidationFailed(layer string, attempt int) *ExecError {
	return &ExecError{
		code:    CodeValidationFailed,
		message: fmt.Sprintf("validation layer %q rejected the candidate output", layer),
		context: map[string]any{"layer": layer, "attempt": attempt},
	}
}

// NewExecutionCancelled builds an EXECUTION_CANCELLED{attempt, phase}.
// phase must be one of "prompt_generation", "api_call", "validation", or
// "iteration" (spec.md §4.7).
func NewExecutionCancelled(attempt int, phase string) *ExecError {
	return &ExecError{
		code:    CodeExecutionCancelled,
		message: fmt.Sprintf("execution cancelled during %s", phase),
		context: map[string]any{"attempt": attempt, "phase": phase},
	}
}
