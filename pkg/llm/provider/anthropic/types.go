package anthropic

import "encoding/json"

// anthropicEvent is the union of every Messages API payload: streaming
// events discriminated by Type, the complete message document, and a bare
// tool_use block.
type anthropicEvent struct {
	Type string `json:"type"`

	// message_start
	Message *anthropicMessage `json:"message,omitempty"`

	// content_block_start, content_block_delta, content_block_stop
	Index        int             `json:"index"`
	ContentBlock *anthropicBlock `json:"content_block,omitempty"`

	// content_block_delta, message_delta
	Delta *anthropicDelta `json:"delta,omitempty"`
	Usage *anthropicUsage `json:"usage,omitempty"`

	// error
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`

	anthropicMessage
}

// anthropicMessage is a complete assistant message. Its fields are also
// promoted onto anthropicEvent so a non-streaming response and a bare
// tool_use block decode into the same struct.
type anthropicMessage struct {
	ID         string           `json:"id,omitempty"`
	Role       string           `json:"role,omitempty"`
	Model      string           `json:"model,omitempty"`
	Content    []anthropicBlock `json:"content,omitempty"`
	StopReason string           `json:"stop_reason,omitempty"`
	Usage      *anthropicUsage  `json:"usage,omitempty"`

	// tool_use blocks sent on their own
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type anthropicUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}
