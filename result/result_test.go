package result_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/result"
)

func TestResultOkErr(t *testing.T) {
	ok := result.Ok(42)
	assert.True(t, ok.IsOk())
	v, isOk := ok.Value()
	assert.True(t, isOk)
	assert.Equal(t, 42, v)
	assert.Nil(t, ok.Error())

	failed := result.Err[int](errors.New("boom"))
	assert.True(t, failed.IsErr())
	_, isOk = failed.Value()
	assert.False(t, isOk)
	require.Error(t, failed.Error())
}

func TestResultErrPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { result.Err[int](nil) })
}

func TestResultUnwrapPanicsOnErr(t *testing.T) {
	r := result.Err[int](errors.New("boom"))
	assert.Panics(t, func() { r.Unwrap() })
}

func TestMap(t *testing.T) {
	r := result.Ok(3)
	mapped := result.Map(r, func(v int) string { return "n" })
	assert.True(t, mapped.IsOk())
	v, _ := mapped.Value()
	assert.Equal(t, "n", v)

	failed := result.Err[int](errors.New("boom"))
	mappedErr := result.Map(failed, func(v int) string { return "n" })
	assert.True(t, mappedErr.IsErr())
}

func TestExecErrorCodesAndContext(t *testing.T) {
	e := result.NewOutputToolNotUsed(2, 15, "generate_output")
	assert.Equal(t, result.CodeOutputToolNotUsed, e.Code())
	assert.Equal(t, 2, e.Context()["attempt"])
	assert.Equal(t, 15, e.Context()["iterationCount"])
	assert.Equal(t, "generate_output", e.Context()["expectedTool"])
	assert.Contains(t, e.Error(), "OUTPUT_TOOL_NOT_USED")
}

func TestMaxAttemptsExceededCarriesLastError(t *testing.T) {
	last := result.NewValidationFailed("Schema", 3)
	e := result.NewMaxAttemptsExceeded(3, 3, last)
	assert.Same(t, last, e.Context()["lastError"])
	assert.ErrorIs(t, e, last)
}

func TestToolErrorChain(t *testing.T) {
	base := errors.New("db closed")
	wrapped := result.WrapToolError("lookup failed", base)
	assert.Equal(t, "lookup failed", wrapped.Error())
	assert.Equal(t, "db closed", wrapped.Unwrap().Error())
}
