// Package parser turns LLM response bodies into typed events.
//
// A Session owns one instance of every pipeline stage: the SSE framer,
// extractor and decoder, the vendor normalizer, and the derived-event
// producers (code fences, tool calls, images, segments) wired onto a
// synchronous event bus. Sessions are single-use and not safe for
// concurrent use; every concurrent response gets its own.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papercomputeco/reel/pkg/codefence"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/image"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/segment"
	"github.com/papercomputeco/reel/pkg/sse"
	"github.com/papercomputeco/reel/pkg/toolcall"
)

const readBufferSize = 32 * 1024

// Session parses one response body.
type Session struct {
	id     string
	logger *slog.Logger
	repair bool

	framer    *sse.Framer
	extractor *sse.Extractor
	decoder   *sse.Decoder
	detector  *provider.Detector
	bus       *eventstream.Bus

	fence    *codefence.Segmenter
	tools    *toolcall.Accumulator
	images   *image.Extractor
	segments *segment.Accumulator

	metaEmitted  bool
	usageEmitted bool
	pendingUsage *llm.Usage
	seq          int

	documentBytes int64
	documents     int
	unrecognized  int
	toolUses      int
	afterDone     int
	sawDone       bool
	streamEnded   bool
	finalized     bool
}

// New creates a Session with all pipeline stages subscribed.
func New(opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		logger:    logger.Nop(),
		framer:    sse.NewFramer(),
		extractor: sse.NewExtractor(),
		decoder:   sse.NewDecoder(),
		detector:  provider.NewDetector(),
		bus:       eventstream.NewBus(),
		fence:     codefence.New(),
		images:    image.New(),
		segments:  segment.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tools = toolcall.New(toolcall.WithRepair(s.repair))
	s.logger = s.logger.With("session_id", s.id)

	// The bus is idle here, so these cannot fail.
	_ = s.bus.Subscribe(toolcall.Predicate(), s.tools.Handle)
	_ = s.bus.Subscribe(codefence.Predicate(), s.fence.Handle)
	_ = s.bus.Subscribe(image.Predicate(), s.images.Handle)
	_ = s.bus.Subscribe(segment.Predicate(), s.segments.Handle)

	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers h for the events matched by p. Subscribers registered
// before input is fed observe every event the session produces.
func (s *Session) Subscribe(p eventstream.Predicate, h eventstream.Handler) error {
	return s.bus.Subscribe(p, h)
}

// Feed consumes one chunk of an SSE stream.
func (s *Session) Feed(chunk string) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, line := range s.framer.PushString(chunk) {
		s.handleLine(line)
	}
	return nil
}

// FeedBytes consumes one chunk of an SSE stream. Chunks may split UTF-8
// sequences anywhere.
func (s *Session) FeedBytes(chunk []byte) error {
	if s.finalized {
		return ErrFinalized
	}
	for _, line := range s.framer.Push(chunk) {
		s.handleLine(line)
	}
	return nil
}

// ParseResponse consumes a complete non-streaming response document and
// finalizes the session.
func (s *Session) ParseResponse(body []byte) error {
	if s.finalized {
		return ErrFinalized
	}

	s.documentBytes += int64(len(body))
	s.documents++

	if s.streamEnded {
		s.afterDone++
		s.logger.Debug("ignored response document after stream end", "bytes", len(body))
	} else if payload, ok := s.decoder.DecodeBytes(body, 0); ok {
		rewritten := provider.MessageToDelta(payload.Value)
		s.dispatch(payload.Value, s.detector.Parse(rewritten))
	} else {
		s.logger.Debug("dropped unparseable response document", "bytes", len(body))
	}

	return s.Finalize()
}

// Consume reads r until EOF, feeding it to the session, and finalizes the
// session. Bodies whose first non-space byte opens a JSON object or array
// are parsed as a single document; everything else is treated as SSE.
//
// ctx is checked between reads. On cancellation or a read error the
// session is left unfinalized so the caller can decide what to keep.
func (s *Session) Consume(ctx context.Context, r io.Reader) (int64, error) {
	if s.finalized {
		return 0, ErrFinalized
	}

	var (
		n        int64
		buf      = make([]byte, readBufferSize)
		sniffed  bool
		document bool
		doc      bytes.Buffer
		head     []byte
	)

	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		m, err := r.Read(buf)
		if m > 0 {
			n += int64(m)
			chunk := buf[:m]

			if !sniffed {
				head = append(head, chunk...)
				trimmed := bytes.TrimLeft(head, " \t\r\n")
				if len(trimmed) > 0 {
					sniffed = true
					document = trimmed[0] == '{' || trimmed[0] == '['
					chunk, head = head, nil
				} else {
					chunk = nil
				}
			}

			if len(chunk) > 0 {
				if document {
					doc.Write(chunk)
				} else if ferr := s.FeedBytes(chunk); ferr != nil {
					return n, ferr
				}
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("reading response body: %w", err)
		}
	}

	if document {
		return n, s.ParseResponse(doc.Bytes())
	}
	if len(head) > 0 {
		// Whitespace only.
		_ = s.FeedBytes(head)
	}
	return n, s.Finalize()
}

// Finalize flushes buffered input, closes open code blocks and tool calls,
// and emits StreamEnd if the stream did not already end. Calling Finalize
// more than once is a no-op.
func (s *Session) Finalize() error {
	if s.finalized {
		return nil
	}

	for _, line := range s.framer.Flush() {
		s.handleLine(line)
	}
	s.endStream()
	s.finalized = true

	st := s.Stats()
	s.logger.Debug("stream finalized",
		"bytes", st.Bytes,
		"payloads", st.Payloads,
		"deltas", st.Deltas,
		"events", st.Events,
		"dropped_payloads", st.DroppedPayloads,
		"unrecognized_payloads", st.UnrecognizedPayloads,
		"payloads_after_done", st.PayloadsAfterDone,
		"ignored_lines", st.IgnoredLines,
		"saw_done", st.SawDone,
	)
	return nil
}

// Finalized reports whether Finalize has run.
func (s *Session) Finalized() bool {
	return s.finalized
}

// Segments returns the markdown and code segments produced so far. The
// segments keep growing as more input is fed.
func (s *Session) Segments() []*segment.Segment {
	return s.segments.Segments()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() eventstream.Stats {
	return eventstream.Stats{
		Bytes:                s.framer.Bytes() + s.documentBytes,
		Lines:                s.framer.Lines(),
		Payloads:             s.extractor.Payloads() + s.documents,
		DroppedPayloads:      s.decoder.Dropped(),
		UnrecognizedPayloads: s.unrecognized,
		PayloadsAfterDone:    s.afterDone,
		IgnoredLines:         s.extractor.Ignored(),
		Deltas:               s.seq,
		Events:               s.bus.Delivered(),
		CodeBlocks:           s.fence.Blocks(),
		ToolCalls:            s.tools.Completed() + s.toolUses,
		Images:               s.images.Decoded(),
		SawDone:              s.sawDone,
	}
}

func (s *Session) handleLine(line sse.Line) {
	sig := s.extractor.Extract(line)

	switch sig.Kind {
	case sse.SignalData:
		// Nothing after [DONE] reaches the bus, so fences and tool calls
		// closed by endStream stay closed.
		if s.streamEnded {
			s.afterDone++
			s.logger.Debug("ignored payload after stream end", "line", sig.LineIndex)
			return
		}
		payload, ok := s.decoder.Decode(sig)
		if !ok {
			s.logger.Debug("dropped unparseable payload", "line", sig.LineIndex)
			return
		}
		s.dispatch(payload.Value, s.detector.Parse(payload.Value))
	case sse.SignalDone:
		s.sawDone = true
		s.endStream()
	}
}

// dispatch publishes the canonical events of one payload in order: RawJSON,
// Meta, Delta, tool events, images, Done, Usage.
func (s *Session) dispatch(raw json.RawMessage, chunk *llm.Chunk) {
	s.bus.Publish(llm.RawJSON{Value: raw})

	if !chunk.Recognized() {
		s.unrecognized++
		return
	}

	if chunk.Meta != nil && !s.metaEmitted {
		s.metaEmitted = true
		s.bus.Publish(*chunk.Meta)
	}

	if chunk.Text != "" {
		s.bus.Publish(llm.Delta{Seq: s.seq, Content: chunk.Text})
		s.seq++
	}

	for _, tc := range chunk.ToolCalls {
		if tc.ID != "" || tc.Name != "" {
			s.bus.Publish(llm.ToolStart{Index: tc.Index, CallID: tc.ID, FunctionName: tc.Name})
		}
		if tc.Arguments != "" {
			s.bus.Publish(llm.ToolArgFragment{Index: tc.Index, Fragment: tc.Arguments})
		}
	}

	for _, tu := range chunk.ToolUses {
		s.toolUses++
		s.bus.Publish(tu)
	}

	for _, img := range chunk.Images {
		s.bus.Publish(img)
	}

	for _, reason := range chunk.FinishReasons {
		s.bus.Publish(llm.Done{FinishReason: reason})
	}

	if chunk.Usage != nil {
		s.handleUsage(*chunk.Usage, chunk.UsagePartial)
	}

	if chunk.Shape == llm.ShapeError {
		s.logger.Debug("upstream error payload", "error", chunk.Error)
	}
}

// handleUsage emits Usage once. Partial counters are held until the
// payload that completes them, or until the stream ends.
func (s *Session) handleUsage(u llm.Usage, partial bool) {
	if s.usageEmitted {
		return
	}

	if s.pendingUsage != nil {
		u = mergeUsage(*s.pendingUsage, u)
	}
	if partial {
		s.pendingUsage = &u
		return
	}

	s.pendingUsage = nil
	s.usageEmitted = true
	s.bus.Publish(u)
}

// endStream closes open code blocks and tool calls and publishes StreamEnd
// exactly once.
func (s *Session) endStream() {
	if s.streamEnded {
		return
	}
	s.streamEnded = true

	s.fence.Finalize(s.bus.Publish)
	s.tools.Flush(s.bus.Publish)
	if s.pendingUsage != nil {
		s.handleUsage(*s.pendingUsage, false)
	}
	s.bus.Publish(llm.StreamEnd{})
}

func mergeUsage(base, next llm.Usage) llm.Usage {
	if next.PromptTokens == 0 {
		next.PromptTokens = base.PromptTokens
	}
	if next.CompletionTokens == 0 {
		next.CompletionTokens = base.CompletionTokens
	}
	if next.CacheCreationInputTokens == 0 {
		next.CacheCreationInputTokens = base.CacheCreationInputTokens
	}
	if next.CacheReadInputTokens == 0 {
		next.CacheReadInputTokens = base.CacheReadInputTokens
	}
	if next.Cost == nil {
		next.Cost = base.Cost
	}
	if sum := next.PromptTokens + next.CompletionTokens; next.TotalTokens < sum {
		next.TotalTokens = sum
	}
	return next
}
