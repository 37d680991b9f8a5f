package validation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaLayer is the implicit first validation layer (spec.md §4.2): it
// compiles the agent's declared output schema once and validates each
// candidate by round-tripping it through JSON, the same compile-once/
// validate-per-call pattern the teacher uses for tool-payload validation.
type SchemaLayer[O any] struct {
	compiled *jsonschema.Schema
}

// NewSchemaLayer compiles schemaDoc (a JSON-Schema-shaped value, typically
// produced by tool.Schema.ToJSONSchema) once per call; the returned layer
// validates any number of candidates. engine.Execute builds one per attempt.
func NewSchemaLayer[O any](schemaDoc any) (*SchemaLayer[O], error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("output-schema.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("validation: add schema resource: %w", err)
	}
	compiled, err := c.Compile("output-schema.json")
	if err != nil {
		return nil, fmt.Errorf("validation: compile output schema: %w", err)
	}
	return &SchemaLayer[O]{compiled: compiled}, nil
}

// Name implements Layer.
func (*SchemaLayer[O]) Name() string { return SchemaLayerName }

// Description implements Layer.
func (*SchemaLayer[O]) Description() string { return SchemaLayerDescription }

// Validate marshals output to JSON and checks it against the compiled
// schema. The value is returned unchanged on success; the schema layer never
// transforms candidates, only rejects them.
func (l *SchemaLayer[O]) Validate(_ context.Context, output O) (O, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return output, fmt.Errorf("marshal candidate output: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return output, fmt.Errorf("unmarshal candidate output: %w", err)
	}
	if err := l.compiled.Validate(doc); err != nil {
		return output, err
	}
	return output, nil
}

// FuncLayer adapts a plain validation function into a Layer, for custom
// validators that don't need their own named type (spec.md §3: "custom
// layers follow in declared order").
type FuncLayer[O any] struct {
	LayerName        string
	LayerDescription string
	Fn               func(ctx context.Context, output O) (O, error)
}

// Name implements Layer.
func (f FuncLayer[O]) Name() string { return f.LayerName }

// Description implements Layer.
func (f FuncLayer[O]) Description() string { return f.LayerDescription }

// Validate implements Layer.
func (f FuncLayer[O]) Validate(ctx context.Context, output O) (O, error) {
	return f.Fn(ctx, output)
}
