package llm

// Shape tags the vendor payload shape a Chunk was parsed from.
type Shape string

const (
	// ShapeUnknown marks payloads no provider recognized.
	ShapeUnknown Shape = "unknown"

	// OpenAI-compatible shapes (OpenAI, OpenRouter, most proxies).
	ShapeChatCompletion Shape = "chat.completion"
	ShapeImageData      Shape = "image.data"

	// Anthropic Messages API shapes.
	ShapeMessage           Shape = "message"
	ShapeMessageStart      Shape = "message_start"
	ShapeMessageDelta      Shape = "message_delta"
	ShapeMessageStop       Shape = "message_stop"
	ShapeContentBlockStart Shape = "content_block_start"
	ShapeContentBlockDelta Shape = "content_block_delta"
	ShapeContentBlockStop  Shape = "content_block_stop"
	ShapeToolUse           Shape = "tool_use"
	ShapePing              Shape = "ping"

	// Vendor-neutral shapes.
	ShapeText  Shape = "text"
	ShapeError Shape = "error"
)

// Chunk is the vendor-independent view of one decoded payload.
//
// Providers fill a Chunk without any knowledge of earlier payloads;
// deduplicating Meta and Usage and numbering deltas is left to the
// parser session that consumes it.
type Chunk struct {
	Shape Shape

	// Meta is set when the payload carries a response id.
	Meta *Meta

	// Text is the delta text selected for this payload, if any.
	Text string

	ToolCalls []ToolCallDelta
	ToolUses  []ToolComplete
	Images    []Image

	// FinishReasons holds one entry per choice that finished.
	FinishReasons []string

	Usage *Usage

	// UsagePartial marks counters that are completed by a later payload,
	// such as Anthropic's message_start input tokens.
	UsagePartial bool

	// Error carries the upstream error message for ShapeError payloads.
	Error string
}

// ToolCallDelta is one tool-call entry of a streaming delta.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Recognized reports whether a provider understood the payload.
func (c *Chunk) Recognized() bool {
	return c != nil && c.Shape != ShapeUnknown
}
