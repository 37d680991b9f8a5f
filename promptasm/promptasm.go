// Package promptasm provides pure formatting helpers for the prompt-assembly
// boundary (C7). The per-boundary prompt functions themselves live as
// caller-supplied closures on agent.Config.Prompts, since they must be
// generic over an agent's run-state, attempt-state, and output types; this
// package supplies the text-shaping building blocks a Prompts
// implementation typically composes, grounded in the teacher's own
// result-preview formatting.
package promptasm

import (
	"fmt"
	"strings"
)

// DefaultPreviewLength bounds FormatPreview's output when no explicit limit
// is given.
const DefaultPreviewLength = 140

// FormatValidationFeedback composes the retry message shown to the model
// after a validation layer rejects a candidate: the layer's identity plus
// its stringified error, and nothing else (spec.md §9: "avoid leaking
// internal class names or stack traces; the model sees only the
// description string and the structured error").
func FormatValidationFeedback(layerName, layerDescription string, cause error) string {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous output did not pass validation (%s: %s).", layerName, layerDescription)
	if reason != "" {
		fmt.Fprintf(&b, " Reason: %s", reason)
	}
	b.WriteString(" Please correct the issue and call the output tool again.")
	return b.String()
}

// FormatPreview normalizes whitespace and bounds a value to maxLen runes,
// for embedding a tool result or a prior candidate output inside a prompt
// without blowing out the context window.
func FormatPreview(text string, maxLen int) string {
	if text == "" {
		return ""
	}
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	normalized := normalizeWhitespace(text)
	runes := []rune(normalized)
	if len(runes) <= maxLen {
		return strings.TrimSpace(normalized)
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "…"
}

// FormatEnumeratedList renders items as a numbered list, one per line, for
// prompts that need to present several candidates or failures together.
func FormatEnumeratedList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, item)
	}
	return b.String()
}

func normalizeWhitespace(in string) string {
	out := make([]rune, 0, len(in))
	prevSpace := false
	for _, r := range in {
		switch r {
		case '\n', '\r', '\t', ' ':
			if !prevSpace {
				out = append(out, ' ')
			}
			prevSpace = true
		default:
			out = append(out, r)
			prevSpace = false
		}
	}
	return string(out)
}
