package eventstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/reel/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the transcript payload schema.
	SchemaVersionV1 = 1

	// EventTypeStreamParsed is emitted after a response body has been parsed.
	EventTypeStreamParsed = "reel.stream.parsed"
)

// Stats is a point-in-time snapshot of a parser session's counters.
type Stats struct {
	Bytes                int64 `json:"bytes"`
	Lines                int   `json:"lines"`
	Payloads             int   `json:"payloads"`
	DroppedPayloads      int   `json:"dropped_payloads"`
	UnrecognizedPayloads int   `json:"unrecognized_payloads"`
	PayloadsAfterDone    int   `json:"payloads_after_done"`
	IgnoredLines         int   `json:"ignored_lines"`
	Deltas               int   `json:"deltas"`
	Events               int   `json:"events"`
	CodeBlocks           int   `json:"code_blocks"`
	ToolCalls            int   `json:"tool_calls"`
	Images               int   `json:"images"`
	SawDone              bool  `json:"saw_done"`
}

// Transcript is a transport-neutral summary of one parsed response.
type Transcript struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	SessionID     string    `json:"session_id"`

	Source      TranscriptSource      `json:"source"`
	RequestMeta TranscriptRequestMeta `json:"request_meta"`

	Meta         *llm.Meta          `json:"meta,omitempty"`
	Text         string             `json:"text"`
	FinishReason string             `json:"finish_reason,omitempty"`
	ToolCalls    []llm.ToolComplete `json:"tool_calls,omitempty"`
	Usage        *llm.Usage         `json:"usage,omitempty"`
	Stats        Stats              `json:"stats"`
	Events       []EnvelopeEvent    `json:"events,omitempty"`
}

// TranscriptSource identifies where the response came from.
type TranscriptSource struct {
	Provider string `json:"provider,omitempty"`
	Upstream string `json:"upstream,omitempty"`
}

// TranscriptRequestMeta captures request lifecycle metadata.
type TranscriptRequestMeta struct {
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HTTPStatus  int       `json:"http_status"`
}

// EnvelopeEvent is one event of a transcript, tagged with its topic.
type EnvelopeEvent struct {
	Topic   llm.Topic       `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelopeEvent marshals ev into an EnvelopeEvent.
func NewEnvelopeEvent(ev llm.Event) (EnvelopeEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EnvelopeEvent{}, fmt.Errorf("marshaling %s event: %w", ev.Topic(), err)
	}
	return EnvelopeEvent{Topic: ev.Topic(), Payload: payload}, nil
}
