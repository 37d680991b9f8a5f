package tool

// Bounds describes how a tool result has been bounded relative to the full
// underlying data set. It is a small, provider-agnostic contract that lets a
// helper tool (for example, a JSONPath query over a large document) report
// truncation metadata without the caller re-inspecting tool-specific fields.
type Bounds struct {
	Returned       int
	Total          *int
	Truncated      bool
	RefinementHint string
}

// BoundedResult is an optional interface a reducer's Update.Output may
// implement so the engine (or an observability hook) can surface boundedness
// without decoding the tool-specific result shape.
type BoundedResult interface {
	Bounds() Bounds
}
