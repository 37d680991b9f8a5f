// Package validation implements the ordered validation pipeline (C2): the
// implicit schema layer followed by the agent's custom layers, each
// receiving the previous layer's validated output, short-circuiting on the
// first failure.
package validation

import "context"

type (
	// Layer validates (and may transform) a candidate output. Validate is
	// treated as deterministic and side-effect-free per spec.md §4.2;
	// running it twice on the same input must produce the same result
	// (idempotence, spec.md §8).
	Layer[O any] interface {
		// Name is a short identifier shown in feedback to the model.
		Name() string
		// Description explains what the layer checks; combined with Name
		// to build focused retry feedback (spec.md §9).
		Description() string
		// Validate checks (and may normalize) output, returning the
		// validated value or an error describing the failure.
		Validate(ctx context.Context, output O) (O, error)
	}

	// Failure captures which layer rejected a candidate and why, exactly
	// the information the caller needs to build focused feedback for the
	// next attempt (spec.md §4.2).
	Failure struct {
		LayerName        string
		LayerDescription string
		Err              error
	}

	// Events receives layer-start/layer-complete notifications. All
	// fields are optional; a nil Events, or a nil field within one, is
	// equivalent to a no-op (Pipeline checks both before every invocation).
	Events struct {
		OnLayerStart    func(ctx context.Context, layerName string)
		OnLayerComplete func(ctx context.Context, layerName string, ok bool)
	}

	// Pipeline runs an implicit schema layer followed by zero or more
	// custom layers, in order, against a candidate output.
	Pipeline[O any] struct {
		schema  Layer[O]
		custom  []Layer[O]
		events  *Events
	}
)

// Schema layer identity is fixed by spec.md §4.2.
const (
	SchemaLayerName        = "Schema"
	SchemaLayerDescription = "Validates output shape"
)

// New builds a Pipeline with schema always first, followed by custom in
// declared order (spec.md §4.4(d): validators are in a stable order).
func New[O any](schema Layer[O], custom []Layer[O], events *Events) *Pipeline[O] {
	return &Pipeline[O]{schema: schema, custom: custom, events: events}
}

// Run validates output through every layer, returning the final validated
// value or the identity of the first layer to fail plus its error.
func (p *Pipeline[O]) Run(ctx context.Context, output O) (O, *Failure) {
	layers := make([]Layer[O], 0, 1+len(p.custom))
	if p.schema != nil {
		layers = append(layers, p.schema)
	}
	layers = append(layers, p.custom...)

	current := output
	for _, layer := range layers {
		p.fireStart(ctx, layer.Name())
		validated, err := layer.Validate(ctx, current)
		if err != nil {
			p.fireComplete(ctx, layer.Name(), false)
			return current, &Failure{
				LayerName:        layer.Name(),
				LayerDescription: layer.Description(),
				Err:              err,
			}
		}
		p.fireComplete(ctx, layer.Name(), true)
		current = validated
	}
	return current, nil
}

func (p *Pipeline[O]) fireStart(ctx context.Context, name string) {
	if p.events != nil && p.events.OnLayerStart != nil {
		p.events.OnLayerStart(ctx, name)
	}
}

func (p *Pipeline[O]) fireComplete(ctx context.Context, name string, ok bool) {
	if p.events != nil && p.events.OnLayerComplete != nil {
		p.events.OnLayerComplete(ctx, name, ok)
	}
}
