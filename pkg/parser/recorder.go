package parser

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

// Recorder is a subscriber that keeps every event it sees, in order.
type Recorder struct {
	events []llm.Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record subscribes a new Recorder to every event of s.
func Record(s *Session) (*Recorder, error) {
	r := NewRecorder()
	if err := s.Subscribe(nil, r.Handle); err != nil {
		return nil, err
	}
	return r, nil
}

// Handle implements eventstream.Handler.
func (r *Recorder) Handle(ev llm.Event, _ eventstream.Emit) {
	r.events = append(r.events, ev)
}

// Events returns every recorded event.
func (r *Recorder) Events() []llm.Event {
	out := make([]llm.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded events matched by p.
func (r *Recorder) Filter(p eventstream.Predicate) []llm.Event {
	var out []llm.Event
	for _, ev := range r.events {
		if p == nil || p(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Topics returns the topic of every recorded event.
func (r *Recorder) Topics() []llm.Topic {
	out := make([]llm.Topic, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic()
	}
	return out
}

// Text concatenates the content of every Delta.
func (r *Recorder) Text() string {
	var sb strings.Builder
	for _, ev := range r.events {
		if d, ok := ev.(llm.Delta); ok {
			sb.WriteString(d.Content)
		}
	}
	return sb.String()
}

// Transcript summarizes the recorded events of s. RawJSON events are left
// out of the envelope list; everything else is kept in order.
func (r *Recorder) Transcript(s *Session) (*eventstream.Transcript, error) {
	t := &eventstream.Transcript{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeStreamParsed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		SessionID:     s.ID(),
		Text:          r.Text(),
		Stats:         s.Stats(),
	}

	for _, ev := range r.events {
		switch e := ev.(type) {
		case llm.RawJSON:
			continue
		case llm.Meta:
			m := e
			t.Meta = &m
			t.Source.Provider = e.Provider
		case llm.Done:
			t.FinishReason = e.FinishReason
		case llm.ToolComplete:
			t.ToolCalls = append(t.ToolCalls, e)
		case llm.Usage:
			u := e
			t.Usage = &u
		}

		env, err := eventstream.NewEnvelopeEvent(ev)
		if err != nil {
			return nil, err
		}
		t.Events = append(t.Events, env)
	}

	return t, nil
}
