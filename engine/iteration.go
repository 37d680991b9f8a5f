package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/agentcore/agent"
	"goa.design/agentcore/model"
	"goa.design/agentcore/result"
	"goa.design/agentcore/telemetry"
	"goa.design/agentcore/tool"
)

// attemptResult carries what one attempt produced for Execute to thread
// into its own bookkeeping: token usage accumulates even on a fatal
// failure (spec.md §8: "metadata.tokens... equal the sum of all transport
// usage fields, including failed attempts").
type attemptResult struct {
	candidate      any
	inputTokens    int
	outputTokens   int
	callbackErrors []error
}

// runAttempt drives the iteration loop (spec.md §4.1a) for a single
// attempt, returning the candidate's raw (undecoded) output-tool input on
// success, or a fatal *result.ExecError. run is a pointer because a
// successful helper-tool reducer replaces it; the replacement must be
// visible to the next attempt (spec.md §3: run state survives attempts,
// attempt state does not).
func runAttempt[R, A, O any](
	ctx context.Context,
	def *agent.Definition[R, A, O],
	client model.Client,
	toolDefs []*model.ToolDefinition,
	callbacks *Callbacks[R, A],
	tel *telemetry.Bundle,
	run *R,
	attemptState A,
	history []*model.Message,
	system string,
	execCtx tool.ExecutionContext,
) (attemptResult, *result.ExecError) {
	var res attemptResult
	out := def.Output()
	helperByName := make(map[string]tool.Spec[R, A], len(def.Helpers()))
	for _, h := range def.Helpers() {
		helperByName[h.Name] = h
	}

	var outputRecorded bool
	var candidate any

	for iteration := 1; iteration <= def.MaxIterationsPerAttempt(); iteration++ {
		execCtx.Iteration = iteration

		if ctx.Err() != nil {
			return res, result.NewExecutionCancelled(execCtx.Attempt, "api_call")
		}

		req := &model.Request{
			Model:       def.Model().Name,
			Temperature: def.Model().Temperature,
			MaxTokens:   def.Model().MaxTokens,
			System:      system,
			Messages:    history,
			Tools:       toolDefs,
		}
		iterCtx, span := tel.Tracer.Start(ctx, "engine.iteration")
		resp, err := client.Complete(iterCtx, req)
		if err != nil {
			span.RecordError(err)
			span.End()
			return res, result.NewAPIError(execCtx.Attempt, err)
		}
		res.inputTokens += resp.Usage.InputTokens
		res.outputTokens += resp.Usage.OutputTokens
		span.End()

		history = append(history, &model.Message{Role: model.ConversationRoleAssistant, Parts: resp.Content})

		blocks := collectToolUses(resp.Content)
		if len(blocks) == 0 {
			return res, result.NewOutputToolNotUsed(execCtx.Attempt, iteration, out.Name)
		}

		hasSubmit := false
		for _, b := range blocks {
			if b.Name == submitToolName {
				hasSubmit = true
				break
			}
		}

		var toolResults []model.Part
		// terminal becomes true only once this iteration actually records an
		// output-tool candidate; a turn containing only helper calls must
		// keep iterating regardless of whether the agent is reflective
		// (spec.md §4.1a: "Helpers only: Execute each helper... Continue
		// iterating").
		terminal := false
		for _, b := range blocks {
			switch {
			case b.Name == submitToolName:
				// No reducer, no tool_result: submit only ever appears as
				// the terminal block of a terminal iteration.
				continue
			case b.Name == out.Name:
				if hasSubmit {
					// Same-turn submit: the raw input becomes the
					// candidate directly, bypassing reflection (spec.md
					// §8 scenario 3: "the third output is taken as the
					// candidate because it is followed by submit within
					// the same turn").
					candidate = b.Input
					outputRecorded = true
					terminal = true
					fireToolCallbacks(callbacks, execCtx, b, "", nil, &res)
					continue
				}
				if def.Reflective() {
					feedback, rerr := safeReflect(out, execCtx, attemptState, b.Input)
					if rerr != nil {
						toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: "Error: " + rerr.Error(), IsError: true})
					} else {
						candidate = b.Input
						outputRecorded = true
						toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: feedback})
					}
					fireToolCallbacks(callbacks, execCtx, b, feedback, rerr, &res)
					continue
				}
				candidate = b.Input
				outputRecorded = true
				terminal = true
				fireToolCallbacks(callbacks, execCtx, b, "", nil, &res)
			default:
				spec, ok := helperByName[b.Name]
				if !ok {
					toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: fmt.Sprintf("Error: Unknown tool %q", b.Name), IsError: true})
					continue
				}
				fireOnToolCall(callbacks, execCtx, b.Name, b.Input, &res)
				input, merr := json.Marshal(b.Input)
				if merr != nil {
					toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: "Error: " + merr.Error(), IsError: true})
					continue
				}
				state := tool.State[R, A]{Context: execCtx, Run: *run, Attempt: attemptState}
				dispatched := tool.Invoke(spec, state, input)
				if dispatched.IsErr() {
					msg := "Error: " + dispatched.Error().Error()
					toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: msg, IsError: true})
					fireOnToolResult(callbacks, execCtx, b.Name, msg, true, &res)
					continue
				}
				update := dispatched.Unwrap()
				*run = update.Run
				attemptState = update.Attempt
				content, serr := tool.Stringify(update.Output)
				if serr != nil {
					content = "Error: " + serr.Error()
					toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: content, IsError: true})
					fireOnToolResult(callbacks, execCtx, b.Name, content, true, &res)
					continue
				}
				toolResults = append(toolResults, model.ToolResultPart{ToolUseID: b.ID, Content: content})
				fireOnToolResult(callbacks, execCtx, b.Name, content, false, &res)
			}
		}

		if hasSubmit {
			if !outputRecorded {
				return res, result.NewSubmitBeforeOutput(execCtx.Attempt, iteration)
			}
			res.candidate = candidate
			return res, nil
		}
		if terminal {
			res.candidate = candidate
			return res, nil
		}

		history = append(history, &model.Message{Role: model.ConversationRoleUser, Parts: toolResults})
	}

	return res, result.NewMaxIterationsExceeded(execCtx.Attempt, def.MaxIterationsPerAttempt(), def.MaxIterationsPerAttempt())
}

func collectToolUses(parts []model.Part) []model.ToolUsePart {
	var out []model.ToolUsePart
	for _, p := range parts {
		if tu, ok := p.(model.ToolUsePart); ok {
			out = append(out, tu)
		}
	}
	return out
}

func safeReflect[R, A any](out agent.OutputTool[R, A], execCtx tool.ExecutionContext, attempt A, input any) (feedback string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	return out.Reflection(execCtx, attempt, input)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

func fireOnToolCall[R, A any](cb *Callbacks[R, A], execCtx tool.ExecutionContext, name string, input any, res *attemptResult) {
	if cb == nil || cb.OnToolCall == nil {
		return
	}
	if err := safeCallback(func() { cb.OnToolCall(execCtx, name, input) }); err != nil {
		res.callbackErrors = append(res.callbackErrors, err)
	}
}

func fireOnToolResult[R, A any](cb *Callbacks[R, A], execCtx tool.ExecutionContext, name, content string, isErr bool, res *attemptResult) {
	if cb == nil || cb.OnToolResult == nil {
		return
	}
	if err := safeCallback(func() { cb.OnToolResult(execCtx, name, content, isErr) }); err != nil {
		res.callbackErrors = append(res.callbackErrors, err)
	}
}

func fireToolCallbacks[R, A any](cb *Callbacks[R, A], execCtx tool.ExecutionContext, b model.ToolUsePart, feedback string, rerr error, res *attemptResult) {
	fireOnToolCall(cb, execCtx, b.Name, b.Input, res)
	content := feedback
	isErr := rerr != nil
	if isErr {
		content = "Error: " + rerr.Error()
	}
	fireOnToolResult(cb, execCtx, b.Name, content, isErr, res)
}
