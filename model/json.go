package model

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a Message while preserving the concrete Part types
// stored in Parts via an explicit Kind discriminator, so transcripts survive
// a JSON round-trip (a caller logging or persisting history outside the
// engine's in-memory run is the typical use).
func (m Message) MarshalJSON() ([]byte, error) {
	type alias struct {
		Role  ConversationRole `json:"role"`
		Parts []any            `json:"parts"`
	}
	if len(m.Parts) == 0 {
		return json.Marshal(alias{Role: m.Role})
	}
	parts := make([]any, 0, len(m.Parts))
	for i, p := range m.Parts {
		enc, err := encodeMessagePart(p)
		if err != nil {
			return nil, fmt.Errorf("encode parts[%d]: %w", i, err)
		}
		parts = append(parts, enc)
	}
	return json.Marshal(alias{Role: m.Role, Parts: parts})
}

// UnmarshalJSON decodes a Message, materializing concrete Part
// implementations from the Kind discriminator.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role  ConversationRole  `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	m.Role = tmp.Role
	if len(tmp.Parts) == 0 {
		m.Parts = nil
		return nil
	}
	m.Parts = make([]Part, 0, len(tmp.Parts))
	for i, raw := range tmp.Parts {
		part, err := decodeMessagePart(raw)
		if err != nil {
			return fmt.Errorf("decode parts[%d]: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func encodeMessagePart(p Part) (any, error) {
	switch v := p.(type) {
	case TextPart:
		return struct {
			Kind string `json:"kind"`
			TextPart
		}{Kind: "text", TextPart: v}, nil
	case ToolUsePart:
		return struct {
			Kind string `json:"kind"`
			ToolUsePart
		}{Kind: "tool_use", ToolUsePart: v}, nil
	case ToolResultPart:
		return struct {
			Kind string `json:"kind"`
			ToolResultPart
		}{Kind: "tool_result", ToolResultPart: v}, nil
	default:
		return nil, fmt.Errorf("model: unknown part type %T", p)
	}
}

func decodeMessagePart(raw json.RawMessage) (Part, error) {
	var disc struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		return nil, err
	}
	switch disc.Kind {
	case "text":
		var p TextPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "tool_use":
		var p ToolUsePart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "tool_result":
		var p ToolResultPart
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("model: unknown part kind %q", disc.Kind)
	}
}
