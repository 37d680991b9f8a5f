// Package tool implements the tool-reducer protocol (C3): the uniform
// (state, input) -> Result[{newState, toolResult}, string] contract every
// tool exposes to the engine, plus the declarative schema shape used to
// derive JSON Schema for the model.
package tool

import (
	"encoding/json"

	"goa.design/agentcore/result"
)

type (
	// ExecutionContext is the immutable per-iteration record exposed to
	// handlers and callbacks (spec.md §3). Nothing in this package or the
	// engine mutates it after construction.
	ExecutionContext struct {
		// Attempt is the current attempt number, starting at 1.
		Attempt int
		// MaxAttempts is the configured attempt budget.
		MaxAttempts int
		// Iteration is the current iteration number within Attempt,
		// starting at 1.
		Iteration int
		// MaxIterations is the configured per-attempt iteration budget.
		MaxIterations int
		// ExecutionID correlates log/metric/callback-error records from a
		// single engine.Execute call; it has no effect on control flow.
		ExecutionID string
	}

	// State bundles the context, run state, and attempt state passed to a
	// handler. R and A are the caller's run-state and attempt-state types
	// (spec.md §3).
	State[R, A any] struct {
		Context ExecutionContext
		Run     R
		Attempt A
	}

	// Update is the successful outcome of a reducer: a replacement
	// {run, attempt} state pair plus the value to report back to the model
	// as the tool_result content.
	Update[R, A any] struct {
		Run     R
		Attempt A
		// Output is the value stringified for the tool_result block. Per
		// C3 guarantee 4, it may be any JSON-serializable value; tests may
		// depend on a JSON marshal round trip.
		Output any
	}

	// Handler is a reducer: pure with respect to its arguments (C3
	// guarantee 1). On success it returns a fresh {run, attempt} pair —
	// structural sharing of untouched branches is fine, but the old state
	// must never be mutated in place. On failure (result.Err) the engine
	// does not alter run/attempt state (C3 guarantee 2); the error's
	// Error() string is what reaches the model as the tool_result content.
	// A handler that panics is recovered by the engine's dispatch loop and
	// mapped to the same Err path (C3 guarantee 3).
	Handler[R, A any] func(state State[R, A], input json.RawMessage) result.Result[Update[R, A]]

	// Spec describes one tool: its wire metadata plus its reducer. R and A
	// must match the agent's run-state and attempt-state types.
	Spec[R, A any] struct {
		// Name is the tool identifier as seen by the model. Must be
		// unique within an agent; "submit" is reserved (spec.md §3).
		Name string
		// Description is presented to the model.
		Description string
		// InputSchema declares the tool's input shape.
		InputSchema Schema
		// Handler is the reducer invoked for this tool. Nil for the
		// implicit submit tool, which the engine never dispatches to a
		// handler (spec.md glossary: "no input, no handler").
		Handler Handler[R, A]
	}
)

// Definition converts Spec into the wire ToolDefinition the model transport
// sees.
func (s Spec[R, A]) Definition() (name, description string, inputSchema any) {
	return s.Name, s.Description, s.InputSchema.ToJSONSchema()
}
