// Package llm defines the provider-agnostic event vocabulary produced when an
// LLM response body is parsed.
//
// Canonical events come straight out of the vendor normalizer. Derived events
// are produced by subscribers (the code-fence segmenter, the image extractor)
// reacting to canonical events. Both kinds implement Event and travel on the
// same bus.
package llm

import "encoding/json"

// Topic is the stable wire name of an event type.
type Topic string

// Canonical topics.
const (
	TopicRawJSON      Topic = "or.json"
	TopicMeta         Topic = "or.meta"
	TopicDelta        Topic = "or.delta"
	TopicUsage        Topic = "or.usage"
	TopicDone         Topic = "or.done"
	TopicStreamEnd    Topic = "or.stream-end"
	TopicImage        Topic = "or.image"
	TopicToolStart    Topic = "tool.start"
	TopicToolArgs     Topic = "tool.arguments"
	TopicToolComplete Topic = "tool.complete"
)

// Derived topics.
const (
	TopicTextFragment Topic = "text.fragment"
	TopicCodeStart    Topic = "code.start"
	TopicCodeFragment Topic = "code.fragment"
	TopicCodeEnd      Topic = "code.end"
	TopicImageDecoded Topic = "image.decoded"
)

// Event is implemented by every member of the vocabulary. The set is closed:
// only types in this package satisfy it.
type Event interface {
	Topic() Topic
	isEvent()
}

// RawJSON carries every decoded payload verbatim so that shapes the
// normalizer does not understand still reach subscribers.
type RawJSON struct {
	Value json.RawMessage `json:"value"`
}

// Meta describes the response. It is emitted at most once per session.
type Meta struct {
	ID                string `json:"id"`
	Model             string `json:"model,omitempty"`
	Provider          string `json:"provider,omitempty"`
	Created           int64  `json:"created,omitempty"`
	SystemFingerprint string `json:"system_fingerprint,omitempty"`
}

// Delta is one increment of model output text.
type Delta struct {
	Seq     int    `json:"seq"`
	Content string `json:"content"`
}

// Usage holds token counters. It is emitted at most once per session.
type Usage struct {
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	Cost             *float64 `json:"cost,omitempty"`

	// Cache token counts (Anthropic prompt caching)
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// Done signals that a choice finished, with the upstream stop reason
// (e.g. "stop", "length", "tool_calls", "end_turn").
type Done struct {
	FinishReason string `json:"finish_reason"`
}

// StreamEnd terminates a non-streaming response. Streaming responses end
// with the upstream [DONE] marker instead.
type StreamEnd struct{}

// Image references one generated image, either inline base64 or a URL.
// B64 may itself be a data URI.
type Image struct {
	Index int    `json:"index"`
	B64   string `json:"b64,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ToolStart opens a tool call at the given index within a choice.
type ToolStart struct {
	Index        int    `json:"index"`
	CallID       string `json:"call_id"`
	FunctionName string `json:"function_name,omitempty"`
}

// ToolArgFragment is a verbatim slice of a tool call's argument text.
// Fragments are not token aligned; only their concatenation is meaningful.
type ToolArgFragment struct {
	Index    int    `json:"index"`
	Fragment string `json:"fragment"`
}

// ToolComplete carries the fully reassembled arguments of one tool call.
type ToolComplete struct {
	Index        int    `json:"index"`
	CallID       string `json:"call_id"`
	FunctionName string `json:"function_name,omitempty"`
	Arguments    string `json:"arguments"`
}

// TextFragment is markdown text outside of any fenced code block.
type TextFragment struct {
	Seq      int    `json:"seq"`
	Fragment string `json:"fragment"`
}

// CodeStart opens a fenced code block.
type CodeStart struct {
	Seq      int    `json:"seq"`
	BlockID  int    `json:"block_id"`
	Language string `json:"language,omitempty"`
}

// CodeFragment is content inside the open code block BlockID.
type CodeFragment struct {
	Seq      int    `json:"seq"`
	BlockID  int    `json:"block_id"`
	Fragment string `json:"fragment"`
}

// CodeEnd closes the code block BlockID.
type CodeEnd struct {
	Seq     int `json:"seq"`
	BlockID int `json:"block_id"`
}

// ImageDecoded is an Image resolved to bytes, or passed through as a URL
// when it points at an external resource.
type ImageDecoded struct {
	Index    int    `json:"index"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (RawJSON) Topic() Topic         { return TopicRawJSON }
func (Meta) Topic() Topic            { return TopicMeta }
func (Delta) Topic() Topic           { return TopicDelta }
func (Usage) Topic() Topic           { return TopicUsage }
func (Done) Topic() Topic            { return TopicDone }
func (StreamEnd) Topic() Topic       { return TopicStreamEnd }
func (Image) Topic() Topic           { return TopicImage }
func (ToolStart) Topic() Topic       { return TopicToolStart }
func (ToolArgFragment) Topic() Topic { return TopicToolArgs }
func (ToolComplete) Topic() Topic    { return TopicToolComplete }
func (TextFragment) Topic() Topic    { return TopicTextFragment }
func (CodeStart) Topic() Topic       { return TopicCodeStart }
func (CodeFragment) Topic() Topic    { return TopicCodeFragment }
func (CodeEnd) Topic() Topic         { return TopicCodeEnd }
func (ImageDecoded) Topic() Topic    { return TopicImageDecoded }

func (RawJSON) isEvent()         {}
func (Meta) isEvent()            {}
func (Delta) isEvent()           {}
func (Usage) isEvent()           {}
func (Done) isEvent()            {}
func (StreamEnd) isEvent()       {}
func (Image) isEvent()           {}
func (ToolStart) isEvent()       {}
func (ToolArgFragment) isEvent() {}
func (ToolComplete) isEvent()    {}
func (TextFragment) isEvent()    {}
func (CodeStart) isEvent()       {}
func (CodeFragment) isEvent()    {}
func (CodeEnd) isEvent()         {}
func (ImageDecoded) isEvent()    {}

// IsCanonical reports whether t is produced by the vendor normalizer rather
// than by a derived-event subscriber.
func IsCanonical(t Topic) bool {
	switch t {
	case TopicRawJSON, TopicMeta, TopicDelta, TopicUsage, TopicDone,
		TopicStreamEnd, TopicImage, TopicToolStart, TopicToolArgs, TopicToolComplete:
		return true
	default:
		return false
	}
}
