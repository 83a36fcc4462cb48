package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/parser"
	"github.com/papercomputeco/reel/pkg/segment"
	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/utils"
)

var (
	parseToolName    = "parse_response"
	parseDescription = "Parse a captured LLM response body (an SSE stream or a complete JSON response from an OpenAI-compatible or Anthropic API). Returns the assembled text, completed tool calls with their arguments, fenced code blocks as segments, usage, and parser statistics."

	listToolName    = "list_transcripts"
	listDescription = "List transcripts of LLM responses recorded by the reel proxy, newest first. Optionally filter by parser session or provider."

	getToolName    = "get_transcript"
	getDescription = "Get one recorded transcript by its event id, including the full text and tool calls."
)

const previewLen = 120

// ParseInput represents the input arguments for the parse tool.
type ParseInput struct {
	Body     string `json:"body" jsonschema:"the raw response body, either SSE lines or one JSON document"`
	Provider string `json:"provider,omitempty" jsonschema:"response dialect: auto, openai, anthropic or besteffort (default: auto)"`
	Repair   *bool  `json:"repair,omitempty" jsonschema:"repair truncated tool-call argument JSON"`
}

// ListInput represents the input arguments for the list tool.
type ListInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"only return transcripts of this parser session"`
	Provider  string `json:"provider,omitempty" jsonschema:"only return transcripts from this provider"`
	Limit     int    `json:"limit,omitempty" jsonschema:"number of transcripts to return (default: 20)"`
}

// GetInput represents the input arguments for the get tool.
type GetInput struct {
	EventID string `json:"event_id" jsonschema:"the event id of the transcript"`
}

// ToolCall is a completed tool call.
type ToolCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// Segment is a run of markdown or code.
type Segment struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
	Complete bool   `json:"complete,omitempty"`
}

// Usage holds token counters.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TranscriptOutput is the full view of one parsed response.
type TranscriptOutput struct {
	EventID      string            `json:"event_id"`
	SessionID    string            `json:"session_id"`
	EmittedAt    string            `json:"emitted_at"`
	Provider     string            `json:"provider,omitempty"`
	Model        string            `json:"model,omitempty"`
	Text         string            `json:"text"`
	FinishReason string            `json:"finish_reason,omitempty"`
	ToolCalls    []ToolCall        `json:"tool_calls"`
	Usage        Usage             `json:"usage"`
	Stats        eventstream.Stats `json:"stats"`
	Segments     []Segment         `json:"segments,omitempty"`
}

// TranscriptSummary is the list view of one transcript.
type TranscriptSummary struct {
	EventID      string `json:"event_id"`
	SessionID    string `json:"session_id"`
	EmittedAt    string `json:"emitted_at"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Preview      string `json:"preview"`
	ToolCalls    int    `json:"tool_calls"`
	TotalTokens  int    `json:"total_tokens"`
}

// ListOutput represents the output of the list tool.
type ListOutput struct {
	Transcripts []TranscriptSummary `json:"transcripts"`
	Count       int                 `json:"count"`
}

func (s *Server) handleParse(ctx context.Context, _ *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, TranscriptOutput, error) {
	logger := s.config.Logger

	repair := s.config.RepairToolJSON
	if input.Repair != nil {
		repair = *input.Repair
	}

	logger.Debug("MCP parse request",
		"bytes", len(input.Body),
		"provider", input.Provider,
		"repair", repair,
	)

	prov, err := provider.Resolve(input.Provider)
	if err != nil {
		return errorResult(err.Error()), emptyTranscript(), nil
	}

	res, err := parser.Parse(ctx, strings.NewReader(input.Body),
		parser.WithLogger(logger),
		parser.WithRepair(repair),
		parser.WithProvider(prov),
	)
	if err != nil {
		logger.Error("failed to parse body", "error", err)
		return errorResult(fmt.Sprintf("Failed to parse body: %v", err)), emptyTranscript(), nil
	}

	output := transcriptOutput(res.Transcript)
	output.Segments = segmentsOutput(res.Segments)

	return jsonResult(output)
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	ts, err := s.config.Store.List(ctx, storage.ListOptions{
		SessionID: input.SessionID,
		Provider:  input.Provider,
		Limit:     limit,
	})
	if err != nil {
		s.config.Logger.Error("failed to list transcripts", "error", err)
		return errorResult(fmt.Sprintf("Failed to list transcripts: %v", err)), emptyList(), nil
	}

	output := ListOutput{Transcripts: make([]TranscriptSummary, 0, len(ts))}
	for _, t := range ts {
		output.Transcripts = append(output.Transcripts, transcriptSummary(t))
	}
	output.Count = len(output.Transcripts)

	return jsonResult(output)
}

func (s *Server) handleGet(ctx context.Context, _ *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, TranscriptOutput, error) {
	t, err := s.config.Store.Get(ctx, input.EventID)
	if err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return errorResult(nf.Error()), emptyTranscript(), nil
		}
		s.config.Logger.Error("failed to get transcript", "event_id", input.EventID, "error", err)
		return errorResult(fmt.Sprintf("Failed to get transcript: %v", err)), emptyTranscript(), nil
	}

	return jsonResult(transcriptOutput(t))
}

// jsonResult returns output both as structured content and, for clients
// without structured content support, as serialized JSON text.
func jsonResult[Out any](output Out) (*mcp.CallToolResult, Out, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero Out
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// emptyTranscript and emptyList are returned alongside error results. Their
// slices are non-nil so the structured output still matches the schema.
func emptyTranscript() TranscriptOutput {
	return TranscriptOutput{ToolCalls: []ToolCall{}}
}

func emptyList() ListOutput {
	return ListOutput{Transcripts: []TranscriptSummary{}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func transcriptOutput(t *eventstream.Transcript) TranscriptOutput {
	out := TranscriptOutput{
		EventID:      t.EventID,
		SessionID:    t.SessionID,
		EmittedAt:    t.EmittedAt.Format(time.RFC3339Nano),
		Provider:     t.Source.Provider,
		Text:         t.Text,
		FinishReason: t.FinishReason,
		ToolCalls:    make([]ToolCall, 0, len(t.ToolCalls)),
		Stats:        t.Stats,
	}
	if t.Meta != nil {
		out.Model = t.Meta.Model
	}
	if t.Usage != nil {
		out.Usage = Usage{
			PromptTokens:     t.Usage.PromptTokens,
			CompletionTokens: t.Usage.CompletionTokens,
			TotalTokens:      t.Usage.TotalTokens,
		}
	}
	for _, tc := range t.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			CallID:    tc.CallID,
			Name:      tc.FunctionName,
			Arguments: tc.Arguments,
		})
	}
	return out
}

func transcriptSummary(t *eventstream.Transcript) TranscriptSummary {
	full := transcriptOutput(t)
	return TranscriptSummary{
		EventID:      full.EventID,
		SessionID:    full.SessionID,
		EmittedAt:    full.EmittedAt,
		Provider:     full.Provider,
		Model:        full.Model,
		FinishReason: full.FinishReason,
		Preview:      utils.Truncate(full.Text, previewLen),
		ToolCalls:    len(full.ToolCalls),
		TotalTokens:  full.Usage.TotalTokens,
	}
}

func segmentsOutput(segs []*segment.Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, seg := range segs {
		out = append(out, Segment{
			Type:     string(seg.Type),
			Language: seg.Language,
			Content:  seg.Content,
			Complete: seg.Complete,
		})
	}
	return out
}
