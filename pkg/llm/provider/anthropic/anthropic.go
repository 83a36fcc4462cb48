// Package anthropic
package anthropic

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/papercomputeco/reel/pkg/llm"
)

// provider implements the Provider interface for Anthropic's Messages API,
// covering both the streaming event types and the complete message.
type provider struct{}

// New
func New() *provider { return &provider{} }

// Name
func (p *provider) Name() string {
	return "anthropic"
}

var shapes = map[string]llm.Shape{
	"message":             llm.ShapeMessage,
	"message_start":       llm.ShapeMessageStart,
	"message_delta":       llm.ShapeMessageDelta,
	"message_stop":        llm.ShapeMessageStop,
	"content_block_start": llm.ShapeContentBlockStart,
	"content_block_delta": llm.ShapeContentBlockDelta,
	"content_block_stop":  llm.ShapeContentBlockStop,
	"tool_use":            llm.ShapeToolUse,
	"ping":                llm.ShapePing,
	"error":               llm.ShapeError,
}

func (p *provider) CanHandle(payload []byte) bool {
	var head struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	}

	if err := json.Unmarshal(payload, &head); err != nil {
		return false
	}

	if _, ok := shapes[head.Type]; ok {
		return true
	}

	// Check for Claude model names
	return strings.HasPrefix(head.Model, "claude-") && head.Type != ""
}

func (p *provider) ParseChunk(payload []byte) (*llm.Chunk, error) {
	var ev anthropicEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}

	shape, ok := shapes[ev.Type]
	if !ok {
		return nil, ErrUnknownEventType
	}

	chunk := &llm.Chunk{Shape: shape}

	switch shape {
	case llm.ShapeMessageStart:
		if ev.Message == nil {
			break
		}
		chunk.Meta = meta(ev.Message)
		if u := ev.Message.Usage; u != nil {
			chunk.Usage = &llm.Usage{
				PromptTokens:             u.InputTokens,
				CacheCreationInputTokens: u.CacheCreationInputTokens,
				CacheReadInputTokens:     u.CacheReadInputTokens,
			}
			chunk.UsagePartial = true
		}

	case llm.ShapeContentBlockStart:
		if b := ev.ContentBlock; b != nil && b.Type == "tool_use" {
			chunk.ToolCalls = []llm.ToolCallDelta{{Index: ev.Index, ID: b.ID, Name: b.Name}}
		}

	case llm.ShapeContentBlockDelta:
		if ev.Delta == nil {
			break
		}
		switch ev.Delta.Type {
		case "text_delta":
			chunk.Text = ev.Delta.Text
		case "input_json_delta":
			chunk.ToolCalls = []llm.ToolCallDelta{{Index: ev.Index, Arguments: ev.Delta.PartialJSON}}
		}

	case llm.ShapeMessageDelta:
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			chunk.FinishReasons = []string{ev.Delta.StopReason}
		}
		if u := ev.Usage; u != nil {
			chunk.Usage = &llm.Usage{
				PromptTokens:             u.InputTokens,
				CompletionTokens:         u.OutputTokens,
				TotalTokens:              u.InputTokens + u.OutputTokens,
				CacheCreationInputTokens: u.CacheCreationInputTokens,
				CacheReadInputTokens:     u.CacheReadInputTokens,
			}
		}

	case llm.ShapeMessage:
		parseMessage(chunk, &ev)

	case llm.ShapeToolUse:
		args := compactJSON(ev.Input)
		chunk.ToolUses = []llm.ToolComplete{{
			CallID:       ev.ID,
			FunctionName: ev.Name,
			Arguments:    args,
		}}
		chunk.Text = args

	case llm.ShapeError:
		if ev.Error != nil {
			chunk.Error = ev.Error.Message
		}
	}

	return chunk, nil
}

// parseMessage handles a complete, non-streaming message. A tool_use block
// takes priority over text blocks for the delta text.
func parseMessage(chunk *llm.Chunk, ev *anthropicEvent) {
	chunk.Meta = meta(&ev.anthropicMessage)

	var text strings.Builder
	for i, b := range ev.Content {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_use":
			chunk.ToolUses = append(chunk.ToolUses, llm.ToolComplete{
				Index:        i,
				CallID:       b.ID,
				FunctionName: b.Name,
				Arguments:    compactJSON(b.Input),
			})
		}
	}

	if len(chunk.ToolUses) > 0 && chunk.ToolUses[0].Arguments != "" {
		chunk.Text = chunk.ToolUses[0].Arguments
	} else {
		chunk.Text = text.String()
	}

	if ev.StopReason != "" {
		chunk.FinishReasons = []string{ev.StopReason}
	}

	if u := ev.Usage; u != nil {
		chunk.Usage = &llm.Usage{
			PromptTokens:             u.InputTokens,
			CompletionTokens:         u.OutputTokens,
			TotalTokens:              u.InputTokens + u.OutputTokens,
			CacheCreationInputTokens: u.CacheCreationInputTokens,
			CacheReadInputTokens:     u.CacheReadInputTokens,
		}
	}
}

func meta(m *anthropicMessage) *llm.Meta {
	if m.ID == "" {
		return nil
	}
	return &llm.Meta{ID: m.ID, Model: m.Model}
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
