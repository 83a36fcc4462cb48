package besteffort

import (
	"encoding/json"

	"github.com/papercomputeco/reel/pkg/llm"
)

// provider implements the Provider interface as a fallback for unknown
// payload shapes. It recognizes a legacy top-level text field and error
// envelopes; anything else comes back as ShapeUnknown.
type provider struct{}

func New() *provider { return &provider{} }

func (b *provider) Name() string {
	return "besteffort"
}

// CanHandle always returns true - this is the fallback provider.
func (b *provider) CanHandle(payload []byte) bool {
	return true
}

// ParseChunk never returns an error for well-formed JSON objects. Values it
// cannot interpret are reported as ShapeUnknown.
func (b *provider) ParseChunk(payload []byte) (*llm.Chunk, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return &llm.Chunk{Shape: llm.ShapeUnknown}, nil
	}

	if msg, ok := extractError(raw); ok {
		return &llm.Chunk{Shape: llm.ShapeError, Error: msg}, nil
	}

	_, hasDelta := raw["delta"]
	text, hasText := raw["text"].(string)
	if !hasText || hasDelta {
		return &llm.Chunk{Shape: llm.ShapeUnknown}, nil
	}

	chunk := &llm.Chunk{
		Shape: llm.ShapeText,
		Text:  text,
		Usage: extractUsage(raw),
	}

	if id := extractString(raw, "id"); id != "" {
		chunk.Meta = &llm.Meta{
			ID:       id,
			Model:    extractString(raw, "model"),
			Provider: extractString(raw, "provider"),
		}
	}

	if reason := extractString(raw, "finish_reason", "stop_reason"); reason != "" {
		chunk.FinishReasons = []string{reason}
	}

	return chunk, nil
}

// extractError recognizes {"error": "..."} and {"error": {"message": "..."}}.
func extractError(raw map[string]any) (string, bool) {
	switch e := raw["error"].(type) {
	case string:
		return e, true
	case map[string]any:
		return extractString(e, "message", "type"), true
	}
	return "", false
}

// extractUsage tries to find usage metrics in various formats.
func extractUsage(raw map[string]any) *llm.Usage {
	u, ok := raw["usage"].(map[string]any)
	if !ok {
		return nil
	}

	usage := &llm.Usage{}
	found := false

	if v := extractInt(u, "prompt_tokens", "input_tokens"); v != nil {
		usage.PromptTokens = *v
		found = true
	}
	if v := extractInt(u, "completion_tokens", "output_tokens"); v != nil {
		usage.CompletionTokens = *v
		found = true
	}
	if v := extractInt(u, "total_tokens"); v != nil {
		usage.TotalTokens = *v
	} else {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if v, ok := u["cost"].(float64); ok {
		usage.Cost = &v
		found = true
	}

	if !found {
		return nil
	}
	return usage
}

// Helper functions for extracting values from maps

func extractString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func extractInt(m map[string]any, keys ...string) *int {
	for _, key := range keys {
		if v, ok := m[key].(float64); ok {
			i := int(v)
			return &i
		}
	}
	return nil
}
