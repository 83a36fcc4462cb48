package openai

import "encoding/json"

// openaiChunk represents a chat completion chunk, or a complete chat
// completion after its messages were moved into deltas, or an images
// response.
type openaiChunk struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Provider          string         `json:"provider,omitempty"` // OpenRouter addition
	SystemFingerprint string         `json:"system_fingerprint,omitempty"`
	Choices           []openaiChoice `json:"choices"`
	Data              []openaiImage  `json:"data"`
	Usage             *openaiUsage   `json:"usage,omitempty"`
}

type openaiChoice struct {
	Index        int          `json:"index"`
	Delta        *openaiDelta `json:"delta,omitempty"`
	Text         *string      `json:"text,omitempty"` // legacy completions
	FinishReason string       `json:"finish_reason"`
}

type openaiDelta struct {
	Role string `json:"role,omitempty"`

	// Union type: string or []openaiContentBlock
	Content json.RawMessage `json:"content,omitempty"`

	ToolCalls    []openaiToolCall    `json:"tool_calls,omitempty"`
	FunctionCall *openaiFunctionCall `json:"function_call,omitempty"`
	Images       []openaiDeltaImage  `json:"images,omitempty"`
}

// openaiContentBlock covers the typed content parts some upstreams send in
// place of a plain content string.
type openaiContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type openaiToolCall struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openaiFunctionCall `json:"function"`
}

type openaiFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// openaiDeltaImage is an image part attached to a delta or message
// (OpenRouter image generation).
type openaiDeltaImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// openaiImage is one entry of an images API response.
type openaiImage struct {
	B64JSON       string `json:"b64_json,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type openaiUsage struct {
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	Cost             *float64 `json:"cost,omitempty"` // OpenRouter addition
}
