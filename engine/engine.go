// Package engine implements the execution engine (C5): the retry-bounded,
// iteration-bounded state machine that drives a conversation with a model
// transport, dispatches tool calls through the tool-reducer protocol,
// validates candidate output, and optionally loops through reflection
// before committing. This is the sole subject of the specification this
// module realizes; every other package exists to support it.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"goa.design/agentcore/agent"
	"goa.design/agentcore/model"
	"goa.design/agentcore/result"
	"goa.design/agentcore/telemetry"
	"goa.design/agentcore/tool"
	"goa.design/agentcore/validation"
)

// submitToolName is the reserved name for the implicit reflection-mode exit
// tool (spec.md §3: "submit is reserved").
const submitToolName = "submit"

type (
	// Callbacks are the optional, fire-and-forget observability hooks C8
	// wraps in panic recovery (spec.md §4.8). A nil Callbacks, or any nil
	// field within one, is equivalent to a no-op.
	Callbacks[R, A any] struct {
		OnToolCall      func(ctx tool.ExecutionContext, name string, input any)
		OnToolResult    func(ctx tool.ExecutionContext, name string, resultString string, isError bool)
		OnLayerStart    func(ctx context.Context, layerName string)
		OnLayerComplete func(ctx context.Context, layerName string, ok bool)
	}

	// Options configures one Execute call.
	Options[R, A any] struct {
		// Input is passed to the agent's InitialRunState factory and to
		// the user-prompt assembly function.
		Input any
		// MaxAttempts overrides the agent's configured attempt budget
		// when non-zero (spec.md §4.1 contract: "maxAttempts?").
		MaxAttempts int
		// Callbacks receives tool-call and validation-layer events.
		Callbacks *Callbacks[R, A]
		// Telemetry receives ambient logs/metrics/spans. Defaults to a
		// no-op bundle when nil.
		Telemetry *telemetry.Bundle
	}

	// Metadata carries the observability fields spec.md §6 defines,
	// populated according to the agent's Observability flags.
	Metadata struct {
		Latency        *time.Duration
		Tokens         *model.TokenUsage
		CallbackErrors []error
	}

	// Outcome is the successful result of Execute.
	Outcome[O any] struct {
		Output   O
		Attempts int
		Metadata Metadata
	}
)

// Execute runs agent against a model transport client until it produces a
// validated output, exhausts its attempt budget, or hits a fatal condition
// (spec.md §4.1's contract: `execute(agent, {input, ...}) →
// Result<{output, attempts, metadata}, {errors, metadata}>`, realized here
// as a (Outcome[O], error) pair since Go idiomatically returns errors
// rather than a Result at a public API boundary).
func Execute[R, A, O any](ctx context.Context, def *agent.Definition[R, A, O], client model.Client, opts Options[R, A]) (Outcome[O], error) {
	executionID := uuid.NewString()
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNoopBundle()
	}

	maxAttempts := def.MaxAttempts()
	if opts.MaxAttempts > 0 {
		maxAttempts = opts.MaxAttempts
	}
	maxIterations := def.MaxIterationsPerAttempt()
	obs := def.Observability()

	started := time.Now()
	cbErrs := &callbackErrorSink{}

	run := def.NewRunState(opts.Input)
	var totalInput, totalOutput int
	var lastFailure *result.ExecError

	rootCtx := tool.ExecutionContext{MaxAttempts: maxAttempts, MaxIterations: maxIterations, ExecutionID: executionID}
	userPrompt := def.Prompts().User(opts.Input, rootCtx)
	history := []*model.Message{{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: userPrompt}}}}

	toolDefs := buildToolDefinitions(def)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptState := def.NewAttemptState()
		execCtx := tool.ExecutionContext{
			Attempt: attempt, MaxAttempts: maxAttempts,
			MaxIterations: maxIterations, ExecutionID: executionID,
		}

		if ctx.Err() != nil {
			return Outcome[O]{}, finalize(result.NewExecutionCancelled(attempt, "prompt_generation"), obs, started, totalInput, totalOutput, cbErrs)
		}

		system := def.Prompts().System(run, attemptState, execCtx)

		attemptCtx, span := tel.Tracer.Start(ctx, "engine.attempt")
		span.AddEvent("attempt.start", "attempt", attempt)

		out, err := runAttempt(attemptCtx, def, client, toolDefs, opts.Callbacks, tel, &run, attemptState, history, system, execCtx)
		totalInput += out.inputTokens
		totalOutput += out.outputTokens
		cbErrs.extend(out.callbackErrors)

		if err != nil {
			span.RecordError(err)
			span.End()
			return Outcome[O]{}, finalize(err, obs, started, totalInput, totalOutput, cbErrs)
		}
		span.End()

		candidate, decodeErr := decodeCandidate[O](out.candidate)
		var failure *validation.Failure
		if decodeErr != nil {
			failure = &validation.Failure{LayerName: validation.SchemaLayerName, LayerDescription: validation.SchemaLayerDescription, Err: decodeErr}
		} else {
			schemaLayer, schemaErr := validation.NewSchemaLayer[O](def.OutputSchema().ToJSONSchema())
			if schemaErr != nil {
				return Outcome[O]{}, finalize(result.NewAPIError(attempt, schemaErr), obs, started, totalInput, totalOutput, cbErrs)
			}
			pipeline := validation.New[O](schemaLayer, def.CustomValidators(), validationEvents(opts.Callbacks, cbErrs))
			if ctx.Err() != nil {
				return Outcome[O]{}, finalize(result.NewExecutionCancelled(attempt, "validation"), obs, started, totalInput, totalOutput, cbErrs)
			}
			candidate, failure = pipeline.Run(ctx, candidate)
		}

		if failure == nil {
			return Outcome[O]{
				Output:   candidate,
				Attempts: attempt,
				Metadata: buildMetadata(obs, started, totalInput, totalOutput, cbErrs),
			}, nil
		}

		lastFailure = result.NewValidationFailed(failure.LayerName, attempt)

		if ctx.Err() != nil {
			return Outcome[O]{}, finalize(result.NewExecutionCancelled(attempt, "iteration"), obs, started, totalInput, totalOutput, cbErrs)
		}
		feedback := def.Prompts().Error(run, execCtx, failure)
		history = append(history, &model.Message{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: feedback}}})
	}

	return Outcome[O]{}, finalize(result.NewMaxAttemptsExceeded(maxAttempts, maxAttempts, lastFailure), obs, started, totalInput, totalOutput, cbErrs)
}

// Error is a fatal execution failure, pairing the fixed-taxonomy
// *result.ExecError spec.md §6 defines with the same Metadata a successful
// Outcome carries (spec.md §4.1's contract returns `{errors, metadata}` on
// failure, not errors alone: token counts from failed attempts still
// matter to the caller).
type Error struct {
	*result.ExecError
	Metadata Metadata
}

// Unwrap exposes the underlying ExecError to errors.As, shadowing the
// promoted ExecError.Unwrap (which returns the ExecError's own cause, a level
// further down the chain).
func (e *Error) Unwrap() error { return e.ExecError }

func finalize(err *result.ExecError, obs agent.Observability, started time.Time, in, out int, cbErrs *callbackErrorSink) error {
	return &Error{ExecError: err, Metadata: buildMetadata(obs, started, in, out, cbErrs)}
}

func buildMetadata(obs agent.Observability, started time.Time, in, out int, cbErrs *callbackErrorSink) Metadata {
	var md Metadata
	if obs.TrackLatency {
		d := time.Since(started)
		md.Latency = &d
	}
	if obs.TrackTokens {
		md.Tokens = &model.TokenUsage{InputTokens: in, OutputTokens: out}
	}
	if errs := cbErrs.drain(); len(errs) > 0 {
		md.CallbackErrors = errs
	}
	return md
}

func buildToolDefinitions[R, A, O any](def *agent.Definition[R, A, O]) []*model.ToolDefinition {
	out := def.Output()
	defs := make([]*model.ToolDefinition, 0, len(def.Helpers())+2)
	defs = append(defs, &model.ToolDefinition{Name: out.Name, Description: out.Description, InputSchema: out.InputSchema.ToJSONSchema()})
	for _, h := range def.Helpers() {
		name, desc, schema := h.Definition()
		defs = append(defs, &model.ToolDefinition{Name: name, Description: desc, InputSchema: schema})
	}
	if def.Reflective() {
		defs = append(defs, &model.ToolDefinition{
			Name:        submitToolName,
			Description: "Submit the most recently produced output as final.",
			InputSchema: tool.Schema{Type: "object", Properties: map[string]tool.Schema{}}.ToJSONSchema(),
		})
	}
	return defs
}

func decodeCandidate[O any](input any) (O, error) {
	var out O
	data, err := json.Marshal(input)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

func validationEvents[R, A any](cb *Callbacks[R, A], sink *callbackErrorSink) *validation.Events {
	if cb == nil {
		return nil
	}
	ev := &validation.Events{}
	if cb.OnLayerStart != nil {
		ev.OnLayerStart = func(ctx context.Context, name string) {
			sink.add(safeCallback(func() { cb.OnLayerStart(ctx, name) }))
		}
	}
	if cb.OnLayerComplete != nil {
		ev.OnLayerComplete = func(ctx context.Context, name string, ok bool) {
			sink.add(safeCallback(func() { cb.OnLayerComplete(ctx, name, ok) }))
		}
	}
	return ev
}

// callbackErrorSink accumulates panics/errors surfaced while invoking
// caller callbacks (spec.md §4.8). Execute runs single-threaded per
// invocation, so no locking is needed.
type callbackErrorSink struct {
	errs []error
}

func (s *callbackErrorSink) add(err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

func (s *callbackErrorSink) extend(errs []error) {
	s.errs = append(s.errs, errs...)
}

func (s *callbackErrorSink) drain() []error {
	return s.errs
}

// safeCallback invokes fn, recovering any panic into err so a caller-supplied
// callback can never escape into the engine's own control flow (spec.md
// §4.8: "catches exceptions, records them... and returns normally").
func safeCallback(fn func()) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	fn()
	return nil
}
