package tool

import "encoding/json"

// Schema is a declarative description of a tool's input shape, sufficient to
// construct a JSON Schema for the model (spec.md §4.3). It intentionally
// covers only the subset of JSON Schema every example provider-tool
// declaration in the wild actually uses: typed properties, required fields,
// and nesting via Items/Properties.
type Schema struct {
	// Type is the JSON Schema type ("object", "string", "number",
	// "integer", "boolean", "array"). Defaults to "object" when empty and
	// Properties is non-nil.
	Type string
	// Description documents the field or root schema for the model.
	Description string
	// Enum restricts a string/number field to a fixed set of values.
	Enum []any
	// Properties describes object fields by name. Only meaningful when
	// Type is "object" (or empty with Properties set).
	Properties map[string]Schema
	// Required lists the property names an object schema must include.
	Required []string
	// Items describes the element schema for an "array" type.
	Items *Schema
}

// ToJSONSchema renders s as a JSON-Schema-compatible value (nested maps),
// ready to marshal into a tool's input_schema field on the wire.
func (s Schema) ToJSONSchema() any {
	m := map[string]any{}
	typ := s.Type
	if typ == "" && s.Properties != nil {
		typ = "object"
	}
	if typ != "" {
		m["type"] = typ
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.ToJSONSchema()
		}
		m["properties"] = props
	}
	if len(s.Required) > 0 {
		m["required"] = s.Required
	}
	if s.Items != nil {
		m["items"] = s.Items.ToJSONSchema()
	}
	return m
}

// MarshalJSON renders the schema as its JSON Schema representation.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSONSchema())
}
