package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/agent"
	"goa.design/agentcore/tool"
	"goa.design/agentcore/validation"
)

type runState struct{ doc string }
type attemptState struct{ calls int }
type output struct {
	Answer string `json:"answer"`
}

func baseConfig() agent.Config[runState, attemptState, output] {
	return agent.Config[runState, attemptState, output]{
		Name: "summarizer",
		Model: agent.Model{Name: "claude", Temperature: 0, MaxTokens: 1024},
		Prompts: agent.Prompts[runState, attemptState, output]{
			System: func(runState, attemptState, tool.ExecutionContext) string { return "system" },
			User:   func(any, tool.ExecutionContext) string { return "user" },
			Error:  func(runState, tool.ExecutionContext, *validation.Failure) string { return "error" },
		},
		Output: agent.OutputTool[runState, attemptState]{
			Name:        "submit_summary",
			Description: "submit the final summary",
		},
		InitialRunState:     func(input any) runState { return runState{doc: input.(string)} },
		InitialAttemptState: func() attemptState { return attemptState{} },
	}
}

func TestDefineAppliesDefaults(t *testing.T) {
	def, err := agent.Define(baseConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, def.MaxAttempts())
	assert.Equal(t, agent.DefaultMaxIterationsPerAttempt, def.MaxIterationsPerAttempt())
	assert.False(t, def.Reflective())
}

func TestDefineRejectsReservedSubmitName(t *testing.T) {
	cfg := baseConfig()
	cfg.Output.Name = "submit"
	_, err := agent.Define(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestDefineRejectsDuplicateToolNames(t *testing.T) {
	cfg := baseConfig()
	cfg.Helpers = []tool.Spec[runState, attemptState]{
		{Name: "lookup"},
		{Name: "lookup"},
	}
	_, err := agent.Define(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestDefineRejectsNonPositiveBounds(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxAttempts = -1
	cfg.MaxIterationsPerAttempt = -5
	_, err := agent.Define(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxAttempts")
	assert.Contains(t, err.Error(), "maxIterationsPerAttempt")
}

func TestDefineRequiresStateFactoriesAndPrompts(t *testing.T) {
	cfg := baseConfig()
	cfg.InitialRunState = nil
	cfg.Prompts.Error = nil
	_, err := agent.Define(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InitialRunState")
	assert.Contains(t, err.Error(), "Prompts")
}

func TestDefineReportsAllViolationsAtOnce(t *testing.T) {
	cfg := baseConfig()
	cfg.Output.Name = "submit"
	cfg.MaxAttempts = -1
	_, err := agent.Define(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
	assert.Contains(t, err.Error(), "maxAttempts")
}

func TestDefinitionFreezesValidatorOrderAndIsDefensivelyCopied(t *testing.T) {
	cfg := baseConfig()
	first := validation.FuncLayer[output]{LayerName: "First"}
	second := validation.FuncLayer[output]{LayerName: "Second"}
	cfg.CustomValidators = []validation.Layer[output]{first, second}

	def, err := agent.Define(cfg)
	require.NoError(t, err)

	got := def.CustomValidators()
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Name())
	assert.Equal(t, "Second", got[1].Name())

	// Mutating the returned slice must not affect the frozen Definition.
	got[0] = validation.FuncLayer[output]{LayerName: "Mutated"}
	assert.Equal(t, "First", def.CustomValidators()[0].Name())
}

func TestReflectiveGateFollowsOutputToolReflectionHandler(t *testing.T) {
	cfg := baseConfig()
	cfg.Output.Reflection = func(tool.ExecutionContext, attemptState, any) (string, error) {
		return "looks good", nil
	}
	def, err := agent.Define(cfg)
	require.NoError(t, err)
	assert.True(t, def.Reflective())
}

func TestNewRunStateAndAttemptStateUseFactories(t *testing.T) {
	def, err := agent.Define(baseConfig())
	require.NoError(t, err)
	run := def.NewRunState("hello world")
	assert.Equal(t, "hello world", run.doc)
	attempt := def.NewAttemptState()
	assert.Equal(t, 0, attempt.calls)
}
