package tool_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/result"
	"goa.design/agentcore/tool"
)

type runState struct{ seen []string }
type attemptState struct{ count int }

func echoHandler(s tool.State[runState, attemptState], input json.RawMessage) result.Result[tool.Update[runState, attemptState]] {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(input, &in); err != nil {
		return result.Err[tool.Update[runState, attemptState]](err)
	}
	run := s.Run
	run.seen = append(append([]string{}, run.seen...), in.Text)
	return result.Ok(tool.Update[runState, attemptState]{
		Run:     run,
		Attempt: s.Attempt,
		Output:  map[string]string{"echoed": in.Text},
	})
}

func TestInvokeSuccess(t *testing.T) {
	spec := tool.Spec[runState, attemptState]{Name: "echo", Handler: echoHandler}
	st := tool.State[runState, attemptState]{Run: runState{}, Attempt: attemptState{}}

	res := tool.Invoke(spec, st, json.RawMessage(`{"text":"hi"}`))
	require.True(t, res.IsOk())
	upd := res.Unwrap()
	assert.Equal(t, []string{"hi"}, upd.Run.seen)

	str, err := tool.Stringify(upd.Output)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echoed":"hi"}`, str)
}

func lookupFailingHandler(s tool.State[runState, attemptState], _ json.RawMessage) result.Result[tool.Update[runState, attemptState]] {
	cause := result.NewToolError("record not found")
	return result.Err[tool.Update[runState, attemptState]](result.WrapToolError("lookup failed", cause))
}

func TestInvokePropagatesChainedToolError(t *testing.T) {
	spec := tool.Spec[runState, attemptState]{Name: "lookup", Handler: lookupFailingHandler}
	res := tool.Invoke(spec, tool.State[runState, attemptState]{}, nil)
	require.True(t, res.IsErr())
	assert.Equal(t, "lookup failed", res.Error().Error())

	var te *result.ToolError
	require.ErrorAs(t, res.Error(), &te)
	require.NotNil(t, te.Unwrap())
	assert.Equal(t, "record not found", te.Unwrap().Error())
}

func TestInvokeRecoversPanic(t *testing.T) {
	panicky := tool.Spec[runState, attemptState]{
		Name: "boom",
		Handler: func(tool.State[runState, attemptState], json.RawMessage) result.Result[tool.Update[runState, attemptState]] {
			panic("kaboom")
		},
	}
	res := tool.Invoke(panicky, tool.State[runState, attemptState]{}, nil)
	require.True(t, res.IsErr())
	assert.Contains(t, res.Error().Error(), "panicked")
}

func TestInvokeNoHandler(t *testing.T) {
	spec := tool.Spec[runState, attemptState]{Name: "submit"}
	res := tool.Invoke(spec, tool.State[runState, attemptState]{}, nil)
	assert.True(t, res.IsErr())
}

func TestSchemaToJSONSchema(t *testing.T) {
	s := tool.Schema{
		Properties: map[string]tool.Schema{
			"text": {Type: "string", Description: "text to echo"},
		},
		Required: []string{"text"},
	}
	js := s.ToJSONSchema().(map[string]any)
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"text"}, js["required"])
}

func TestStringifyPassesThroughStrings(t *testing.T) {
	s, err := tool.Stringify("already a string")
	require.NoError(t, err)
	assert.Equal(t, "already a string", s)
}
