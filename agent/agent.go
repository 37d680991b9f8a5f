// Package agent implements the agent definition (C4): an immutable,
// validated configuration object binding prompts, model parameters, tools,
// validation, observability, and state factories. Define enforces the five
// rules spec.md §4.4 names and returns a Definition the engine never
// mutates.
package agent

import (
	"errors"
	"fmt"

	"goa.design/agentcore/tool"
	"goa.design/agentcore/validation"
)

// DefaultMaxIterationsPerAttempt is used when Config.MaxIterationsPerAttempt
// is left at its zero value (spec.md §3: "maxIterationsPerAttempt ≥ 1
// (default 15)").
const DefaultMaxIterationsPerAttempt = 15

// ReflectionHandler formats a candidate output tool input into feedback for
// the model, or returns an error describing why the candidate was rejected.
// An output tool carrying a non-nil ReflectionHandler causes the engine to
// inject the implicit "submit" tool (spec.md §9 design note: reflection mode
// is a type-level gate, not a separate flag).
type ReflectionHandler[A any] func(ctx tool.ExecutionContext, attempt A, input any) (feedback string, err error)

// OutputTool describes the single required output tool for an agent. Unlike
// a helper tool.Spec, it has no reducer handler: in non-reflection mode the
// raw input becomes the candidate output directly (spec.md §4.1a).
// Reflection controls whether output is committed
// immediately or accumulated across further iterations.
type OutputTool[R, A any] struct {
	Name        string
	Description string
	InputSchema tool.Schema
	Reflection  ReflectionHandler[A]
}

// Prompts holds the three pure prompt-assembly functions C7 requires.
type Prompts[R, A, O any] struct {
	// System builds the system prompt once per attempt.
	System func(run R, attempt A, ctx tool.ExecutionContext) string
	// User builds the initial user message once per execution.
	User func(input any, ctx tool.ExecutionContext) string
	// Error builds the feedback message appended after a failed attempt.
	Error func(run R, ctx tool.ExecutionContext, failure *validation.Failure) string
}

// Model captures the provider-agnostic model parameters for an agent.
type Model struct {
	Name        string
	Temperature float64
	MaxTokens   int
}

// Observability toggles which optional metadata the engine collects
// (spec.md §6: "Fields are included iff the matching observability flag is
// enabled").
type Observability struct {
	TrackLatency  bool
	TrackTokens   bool
	TrackAttempts bool
}

// Config is the input to Define: the mutable, unvalidated shape a caller
// assembles before freezing it into a Definition.
type Config[R, A, O any] struct {
	Name        string
	Description string

	Model   Model
	Prompts Prompts[R, A, O]

	Output  OutputTool[R, A]
	Helpers []tool.Spec[R, A]

	OutputSchema            tool.Schema
	CustomValidators        []validation.Layer[O]
	MaxAttempts             int
	MaxIterationsPerAttempt int

	Observability Observability

	InitialRunState     func(input any) R
	InitialAttemptState func() A
}

// Definition is the frozen, validated bundle the engine consumes. All
// fields are unexported; callers read them back through accessors that
// return defensive copies, the closest Go gets to spec.md §4.4(e)'s "deeply
// frozen structure" (see DESIGN.md for the documented limitation).
type Definition[R, A, O any] struct {
	name        string
	description string

	model   Model
	prompts Prompts[R, A, O]

	output  OutputTool[R, A]
	helpers []tool.Spec[R, A]

	outputSchema            tool.Schema
	customValidators        []validation.Layer[O]
	maxAttempts             int
	maxIterationsPerAttempt int

	observability Observability

	initialRunState     func(input any) R
	initialAttemptState func() A
}

// Define validates cfg against spec.md §4.4's five rules and returns a
// frozen Definition, or an aggregated error describing every violation
// found (a caller correcting one mistake at a time would otherwise need to
// re-run Define repeatedly to discover the next).
func Define[R, A, O any](cfg Config[R, A, O]) (*Definition[R, A, O], error) {
	var errs []error

	// (a) unique tool names, "submit" reserved.
	seen := make(map[string]bool, len(cfg.Helpers)+1)
	if cfg.Output.Name == "" {
		errs = append(errs, errors.New("agent: output tool must have a name"))
	} else if cfg.Output.Name == "submit" {
		errs = append(errs, errors.New(`agent: output tool name "submit" is reserved`))
	} else {
		seen[cfg.Output.Name] = true
	}
	for _, h := range cfg.Helpers {
		if h.Name == "" {
			errs = append(errs, errors.New("agent: helper tool must have a name"))
			continue
		}
		if h.Name == "submit" {
			errs = append(errs, errors.New(`agent: tool name "submit" is reserved`))
			continue
		}
		if seen[h.Name] {
			errs = append(errs, fmt.Errorf("agent: duplicate tool name %q", h.Name))
			continue
		}
		seen[h.Name] = true
	}

	// (b) numeric bounds positive.
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	if maxAttempts < 1 {
		errs = append(errs, fmt.Errorf("agent: maxAttempts must be >= 1, got %d", maxAttempts))
	}
	maxIterations := cfg.MaxIterationsPerAttempt
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterationsPerAttempt
	}
	if maxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent: maxIterationsPerAttempt must be >= 1, got %d", maxIterations))
	}

	// (c) output tool present — enforced structurally: OutputTool is a
	// required field of Config, checked for a name above. Nothing else to
	// validate here.

	// (d) validators in a stable order — Config.CustomValidators is a
	// slice, so declaration order is preserved by construction; copied
	// below rather than referenced, so later caller-side mutation of the
	// original slice can't reorder a frozen Definition.

	if cfg.InitialRunState == nil {
		errs = append(errs, errors.New("agent: InitialRunState factory is required"))
	}
	if cfg.InitialAttemptState == nil {
		errs = append(errs, errors.New("agent: InitialAttemptState factory is required"))
	}
	if cfg.Prompts.System == nil || cfg.Prompts.User == nil || cfg.Prompts.Error == nil {
		errs = append(errs, errors.New("agent: Prompts.System, Prompts.User, and Prompts.Error are all required"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// (e) "deeply frozen": copy every mutable slice so later mutation of
	// cfg's backing arrays cannot reach the returned Definition.
	helpers := make([]tool.Spec[R, A], len(cfg.Helpers))
	copy(helpers, cfg.Helpers)
	validators := make([]validation.Layer[O], len(cfg.CustomValidators))
	copy(validators, cfg.CustomValidators)

	return &Definition[R, A, O]{
		name:                    cfg.Name,
		description:             cfg.Description,
		model:                   cfg.Model,
		prompts:                 cfg.Prompts,
		output:                  cfg.Output,
		helpers:                 helpers,
		outputSchema:            cfg.OutputSchema,
		customValidators:        validators,
		maxAttempts:             maxAttempts,
		maxIterationsPerAttempt: maxIterations,
		observability:           cfg.Observability,
		initialRunState:         cfg.InitialRunState,
		initialAttemptState:     cfg.InitialAttemptState,
	}, nil
}

// Name returns the agent's identifier.
func (d *Definition[R, A, O]) Name() string { return d.name }

// Description returns the agent's description.
func (d *Definition[R, A, O]) Description() string { return d.description }

// Model returns the agent's model parameters.
func (d *Definition[R, A, O]) Model() Model { return d.model }

// Prompts returns the agent's prompt-assembly functions.
func (d *Definition[R, A, O]) Prompts() Prompts[R, A, O] { return d.prompts }

// Output returns the agent's output tool.
func (d *Definition[R, A, O]) Output() OutputTool[R, A] { return d.output }

// Reflective reports whether the output tool carries a reflection handler,
// the sole gate for injecting the implicit "submit" tool (spec.md §9).
func (d *Definition[R, A, O]) Reflective() bool { return d.output.Reflection != nil }

// Helpers returns a copy of the agent's helper tool list.
func (d *Definition[R, A, O]) Helpers() []tool.Spec[R, A] {
	out := make([]tool.Spec[R, A], len(d.helpers))
	copy(out, d.helpers)
	return out
}

// OutputSchema returns the declarative schema used to build the output
// tool's JSON Schema and the validation pipeline's schema layer.
func (d *Definition[R, A, O]) OutputSchema() tool.Schema { return d.outputSchema }

// CustomValidators returns a copy of the agent's custom validation layers,
// in declared order.
func (d *Definition[R, A, O]) CustomValidators() []validation.Layer[O] {
	out := make([]validation.Layer[O], len(d.customValidators))
	copy(out, d.customValidators)
	return out
}

// MaxAttempts returns the configured attempt budget.
func (d *Definition[R, A, O]) MaxAttempts() int { return d.maxAttempts }

// MaxIterationsPerAttempt returns the configured per-attempt iteration
// budget.
func (d *Definition[R, A, O]) MaxIterationsPerAttempt() int { return d.maxIterationsPerAttempt }

// Observability returns the agent's observability flags.
func (d *Definition[R, A, O]) Observability() Observability { return d.observability }

// NewRunState constructs a fresh run state from input, via the agent's
// factory (spec.md §3: "born from initialRunState(input) before attempt 1").
func (d *Definition[R, A, O]) NewRunState(input any) R { return d.initialRunState(input) }

// NewAttemptState constructs a fresh attempt state, via the agent's factory
// (spec.md §3: "reconstructed from initialAttemptState() at the top of
// every attempt").
func (d *Definition[R, A, O]) NewAttemptState() A { return d.initialAttemptState() }
