// Package toolcall reassembles fragmented tool-call arguments into complete
// calls.
package toolcall

import (
	"slices"
	"strings"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithRepair enables best-effort repair of truncated argument JSON before
// delivery. Disabled by default.
func WithRepair(enabled bool) Option {
	return func(a *Accumulator) {
		a.repair = enabled
	}
}

type call struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator collects ToolStart and ToolArgFragment events per tool-call
// index and emits exactly one ToolComplete per index when the calls finish.
//
// Calls finish on a tool-calling finish reason, on StreamEnd, or when Flush
// is called at session end.
type Accumulator struct {
	repair    bool
	calls     map[int]*call
	completed int
}

// New creates an Accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{calls: make(map[int]*call)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Predicate selects the events the accumulator reacts to.
func Predicate() eventstream.Predicate {
	return eventstream.Topics(llm.TopicToolStart, llm.TopicToolArgs, llm.TopicDone, llm.TopicStreamEnd)
}

// Handle implements eventstream.Handler.
func (a *Accumulator) Handle(ev llm.Event, emit eventstream.Emit) {
	switch e := ev.(type) {
	case llm.ToolStart:
		c := a.open(e.Index)
		if c.id == "" {
			c.id = e.CallID
		}
		if c.name == "" {
			c.name = e.FunctionName
		}
	case llm.ToolArgFragment:
		a.open(e.Index).args.WriteString(e.Fragment)
	case llm.Done:
		if completesCalls(e.FinishReason) {
			a.Flush(emit)
		}
	case llm.StreamEnd:
		a.Flush(emit)
	}
}

// Flush completes every open call in index order.
func (a *Accumulator) Flush(emit eventstream.Emit) {
	if len(a.calls) == 0 {
		return
	}

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	for _, i := range indexes {
		c := a.calls[i]
		delete(a.calls, i)

		args := c.args.String()
		if a.repair {
			args = Repair(args)
		}

		a.completed++
		emit(llm.ToolComplete{
			Index:        i,
			CallID:       c.id,
			FunctionName: c.name,
			Arguments:    args,
		})
	}
}

// Open returns the number of calls still accumulating.
func (a *Accumulator) Open() int {
	return len(a.calls)
}

// Completed returns how many calls the accumulator has completed.
func (a *Accumulator) Completed() int {
	return a.completed
}

func (a *Accumulator) open(index int) *call {
	c, ok := a.calls[index]
	if !ok {
		c = &call{}
		a.calls[index] = c
	}
	return c
}

func completesCalls(reason string) bool {
	switch reason {
	case llm.FinishReasonToolCalls, llm.FinishReasonFunctionCall, llm.FinishReasonToolUse:
		return true
	default:
		return false
	}
}
