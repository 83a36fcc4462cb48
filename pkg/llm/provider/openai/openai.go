// Package openai
package openai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/papercomputeco/reel/pkg/llm"
)

// provider implements the Provider interface for the Chat Completions wire
// format shared by OpenAI, OpenRouter and compatible gateways.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) CanHandle(payload []byte) bool {
	var head struct {
		Object  string          `json:"object"`
		Choices json.RawMessage `json:"choices"`
		Data    json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(payload, &head); err != nil {
		return false
	}

	if strings.HasPrefix(head.Object, "chat.completion") || head.Object == "text_completion" {
		return true
	}

	return isArray(head.Choices) || isArray(head.Data)
}

func (o *provider) ParseChunk(payload []byte) (*llm.Chunk, error) {
	var c openaiChunk
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}

	chunk := &llm.Chunk{Shape: llm.ShapeChatCompletion}
	if len(c.Choices) == 0 && len(c.Data) > 0 {
		chunk.Shape = llm.ShapeImageData
	}

	if c.ID != "" {
		chunk.Meta = &llm.Meta{
			ID:                c.ID,
			Model:             c.Model,
			Provider:          c.Provider,
			Created:           c.Created,
			SystemFingerprint: c.SystemFingerprint,
		}
	}

	for i, choice := range c.Choices {
		if i == 0 {
			parseFirstChoice(chunk, choice)
		}
		if choice.Delta != nil {
			for _, img := range choice.Delta.Images {
				chunk.Images = append(chunk.Images, deltaImage(len(chunk.Images), img))
			}
		}
		if choice.FinishReason != "" {
			chunk.FinishReasons = append(chunk.FinishReasons, choice.FinishReason)
		}
	}

	for _, img := range c.Data {
		if img.B64JSON == "" && img.URL == "" {
			continue
		}
		chunk.Images = append(chunk.Images, llm.Image{
			Index: len(chunk.Images),
			B64:   img.B64JSON,
			URL:   img.URL,
		})
	}

	if c.Usage != nil {
		chunk.Usage = &llm.Usage{
			PromptTokens:     c.Usage.PromptTokens,
			CompletionTokens: c.Usage.CompletionTokens,
			TotalTokens:      c.Usage.TotalTokens,
			Cost:             c.Usage.Cost,
		}
	}

	return chunk, nil
}

// parseFirstChoice selects the delta text and tool-call entries of the
// first choice. Text follows a fixed priority: tool-call arguments, legacy
// function_call arguments, a tool_use content block, string content, text
// content blocks, then legacy completion text.
func parseFirstChoice(chunk *llm.Chunk, choice openaiChoice) {
	d := choice.Delta
	if d == nil {
		if choice.Text != nil {
			chunk.Text = *choice.Text
		}
		return
	}

	for i, tc := range d.ToolCalls {
		index := i
		if tc.Index != nil {
			index = *tc.Index
		}
		chunk.ToolCalls = append(chunk.ToolCalls, llm.ToolCallDelta{
			Index:     index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if d.FunctionCall != nil {
		chunk.ToolCalls = append(chunk.ToolCalls, llm.ToolCallDelta{
			Index:     0,
			Name:      d.FunctionCall.Name,
			Arguments: d.FunctionCall.Arguments,
		})
	}

	text, blocks := parseContent(d.Content)
	for i, b := range blocks {
		if b.Type != "tool_use" {
			continue
		}
		chunk.ToolUses = append(chunk.ToolUses, llm.ToolComplete{
			Index:        i,
			CallID:       b.ID,
			FunctionName: b.Name,
			Arguments:    compactJSON(b.Input),
		})
	}

	switch {
	case len(d.ToolCalls) > 0 && d.ToolCalls[0].Function.Arguments != "":
		chunk.Text = d.ToolCalls[0].Function.Arguments
	case d.FunctionCall != nil && d.FunctionCall.Arguments != "":
		chunk.Text = d.FunctionCall.Arguments
	case len(chunk.ToolUses) > 0 && chunk.ToolUses[0].Arguments != "":
		chunk.Text = chunk.ToolUses[0].Arguments
	case text != "":
		chunk.Text = text
	default:
		chunk.Text = joinText(blocks)
	}
}

// parseContent splits the content union into its string or block form.
func parseContent(raw json.RawMessage) (string, []openaiContentBlock) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
	case '[':
		var blocks []openaiContentBlock
		if err := json.Unmarshal(raw, &blocks); err == nil {
			return "", blocks
		}
	}
	return "", nil
}

func joinText(blocks []openaiContentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

func deltaImage(index int, img openaiDeltaImage) llm.Image {
	url := img.ImageURL.URL
	if strings.HasPrefix(url, "data:") {
		return llm.Image{Index: index, B64: url}
	}
	return llm.Image{Index: index, URL: url}
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
