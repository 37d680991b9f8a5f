package tool

import (
	"encoding/json"
	"fmt"

	"goa.design/agentcore/result"
)

// Invoke runs spec's handler against input, recovering any panic into the
// same failure path a returned result.Err would take (C3 guarantee 3: no
// exception thrown by a reducer ever escapes to the engine's caller).
func Invoke[R, A any](spec Spec[R, A], state State[R, A], input json.RawMessage) (res result.Result[Update[R, A]]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Err[Update[R, A]](fmt.Errorf("tool %q panicked: %v", spec.Name, r))
		}
	}()
	if spec.Handler == nil {
		return result.Err[Update[R, A]](fmt.Errorf("tool %q has no handler", spec.Name))
	}
	return spec.Handler(state, input)
}

// Stringify renders a handler's Output for the tool_result wire content
// (model.ToolResultPart.Content), per C3 guarantee 4: toolResult may be any
// JSON-serializable value, and the engine stringifies it for the transport.
// A string Output is passed through unchanged rather than re-quoted, which
// matches the simple tools in the pack that return a plain text message.
func Stringify(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
