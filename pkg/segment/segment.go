// Package segment folds derived text and code events into an ordered list
// of renderable segments.
package segment

import (
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

// Type is the kind of content a segment holds.
type Type string

const (
	Markdown Type = "markdown"
	Code     Type = "code"
)

// Segment is a maximal run of markdown or code content. Content grows in
// place as fragments arrive.
type Segment struct {
	Type     Type   `json:"type"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	BlockID  int    `json:"block_id"`

	// Complete is set on a code segment once its block closed.
	Complete bool `json:"complete,omitempty"`
}

// Accumulator is a reducer over derived events. Segments are only ever
// appended or grown at the tail, never reordered or removed, so pointers
// returned by Segments keep observing updates.
type Accumulator struct {
	segments []*Segment
	open     map[int]*Segment
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{open: make(map[int]*Segment)}
}

// Predicate selects the events the accumulator reacts to.
func Predicate() eventstream.Predicate {
	return eventstream.Topics(llm.TopicTextFragment, llm.TopicCodeStart, llm.TopicCodeFragment, llm.TopicCodeEnd)
}

// Handle implements eventstream.Handler.
func (a *Accumulator) Handle(ev llm.Event, _ eventstream.Emit) {
	a.Apply(ev)
}

// Apply reduces one event into the segment list. Other events are ignored.
func (a *Accumulator) Apply(ev llm.Event) {
	switch e := ev.(type) {
	case llm.TextFragment:
		if last := a.last(); last != nil && last.Type == Markdown {
			last.Content += e.Fragment
			return
		}
		a.segments = append(a.segments, &Segment{Type: Markdown, Content: e.Fragment})

	case llm.CodeStart:
		seg := &Segment{Type: Code, Language: e.Language, BlockID: e.BlockID}
		a.segments = append(a.segments, seg)
		a.open[e.BlockID] = seg

	case llm.CodeFragment:
		if seg, ok := a.open[e.BlockID]; ok {
			seg.Content += e.Fragment
		}

	case llm.CodeEnd:
		if seg, ok := a.open[e.BlockID]; ok {
			seg.Complete = true
			delete(a.open, e.BlockID)
		}
	}
}

// Segments returns the segments in display order. The returned slice is a
// copy but its elements are shared with the accumulator.
func (a *Accumulator) Segments() []*Segment {
	out := make([]*Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

// Len returns the number of segments.
func (a *Accumulator) Len() int {
	return len(a.segments)
}

func (a *Accumulator) last() *Segment {
	if len(a.segments) == 0 {
		return nil
	}
	return a.segments[len(a.segments)-1]
}
