package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/validation"
)

type answer struct {
	Value int `json:"value"`
}

func schemaDoc() any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"value": map[string]any{"type": "integer"}},
		"required":             []any{"value"},
		"additionalProperties": false,
	}
}

func TestPipelineRunsSchemaThenCustomInOrder(t *testing.T) {
	schema, err := validation.NewSchemaLayer[answer](schemaDoc())
	require.NoError(t, err)

	var order []string
	positive := validation.FuncLayer[answer]{
		LayerName:        "Positive",
		LayerDescription: "value must be positive",
		Fn: func(_ context.Context, a answer) (answer, error) {
			order = append(order, "Positive")
			if a.Value <= 0 {
				return a, errors.New("value must be positive")
			}
			return a, nil
		},
	}
	even := validation.FuncLayer[answer]{
		LayerName:        "Even",
		LayerDescription: "value must be even",
		Fn: func(_ context.Context, a answer) (answer, error) {
			order = append(order, "Even")
			if a.Value%2 != 0 {
				return a, errors.New("value must be even")
			}
			return a, nil
		},
	}

	var started, completed []string
	events := &validation.Events{
		OnLayerStart: func(_ context.Context, name string) { started = append(started, name) },
		OnLayerComplete: func(_ context.Context, name string, ok bool) {
			completed = append(completed, name)
			assert.True(t, ok)
		},
	}

	p := validation.New[answer](schema, []validation.Layer[answer]{positive, even}, events)
	out, failure := p.Run(context.Background(), answer{Value: 4})

	require.Nil(t, failure)
	assert.Equal(t, answer{Value: 4}, out)
	assert.Equal(t, []string{"Positive", "Even"}, order)
	assert.Equal(t, []string{validation.SchemaLayerName, "Positive", "Even"}, started)
	assert.Equal(t, started, completed)
}

func TestPipelineShortCircuitsOnFirstFailure(t *testing.T) {
	schema, err := validation.NewSchemaLayer[answer](schemaDoc())
	require.NoError(t, err)

	var ran []string
	positive := validation.FuncLayer[answer]{
		LayerName:        "Positive",
		LayerDescription: "value must be positive",
		Fn: func(_ context.Context, a answer) (answer, error) {
			ran = append(ran, "Positive")
			return a, errors.New("value must be positive")
		},
	}
	never := validation.FuncLayer[answer]{
		LayerName:        "Never",
		LayerDescription: "should not run",
		Fn: func(_ context.Context, a answer) (answer, error) {
			ran = append(ran, "Never")
			return a, nil
		},
	}

	p := validation.New[answer](schema, []validation.Layer[answer]{positive, never}, nil)
	_, failure := p.Run(context.Background(), answer{Value: -1})

	require.NotNil(t, failure)
	assert.Equal(t, "Positive", failure.LayerName)
	assert.Equal(t, "value must be positive", failure.LayerDescription)
	assert.EqualError(t, failure.Err, "value must be positive")
	assert.Equal(t, []string{"Positive"}, ran)
}

func TestPipelineSchemaLayerRejectsMalformedOutput(t *testing.T) {
	schema, err := validation.NewSchemaLayer[map[string]any](schemaDoc())
	require.NoError(t, err)

	p := validation.New[map[string]any](schema, nil, nil)
	_, failure := p.Run(context.Background(), map[string]any{"value": "four"})

	require.NotNil(t, failure)
	assert.Equal(t, validation.SchemaLayerName, failure.LayerName)
	assert.Equal(t, validation.SchemaLayerDescription, failure.LayerDescription)
}

func TestPipelineIdempotentOnValidOutput(t *testing.T) {
	schema, err := validation.NewSchemaLayer[answer](schemaDoc())
	require.NoError(t, err)

	p := validation.New[answer](schema, nil, nil)
	first, failure := p.Run(context.Background(), answer{Value: 2})
	require.Nil(t, failure)

	second, failure := p.Run(context.Background(), first)
	require.Nil(t, failure)
	assert.Equal(t, first, second)
}

func TestSchemaLayerIdentityIsFixed(t *testing.T) {
	schema, err := validation.NewSchemaLayer[answer](schemaDoc())
	require.NoError(t, err)
	assert.Equal(t, "Schema", schema.Name())
	assert.Equal(t, "Validates output shape", schema.Description())
}
