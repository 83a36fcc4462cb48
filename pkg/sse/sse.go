// Package sse provides the push-based framing layer for LLM response bodies:
// a line Framer that survives arbitrary chunk boundaries, an Extractor that
// turns lines into SSE signals, and a Decoder that validates JSON payloads.
//
// Nothing in this package blocks or suspends. Callers push chunks as they
// arrive from the network and pull complete results back out.
//
// Event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the payload upstream providers send to terminate a stream.
const DoneSentinel = "[DONE]"

// Line is a single framed line with its terminator stripped.
type Line struct {
	// Index increases by one for every line emitted by a Framer, starting at 0.
	Index int

	// Text is the line content without the trailing "\n" or "\r\n".
	Text string
}

// SignalKind discriminates the result of extracting a Line.
type SignalKind int

const (
	// SignalNone covers comments, blank lines and unrecognized line shapes.
	SignalNone SignalKind = iota

	// SignalData carries a "data:" payload.
	SignalData

	// SignalDone is the terminal "data: [DONE]" marker.
	SignalDone
)

func (k SignalKind) String() string {
	switch k {
	case SignalData:
		return "data"
	case SignalDone:
		return "done"
	default:
		return "none"
	}
}

// Signal is the outcome of feeding one Line to an Extractor.
type Signal struct {
	Kind SignalKind

	// Payload is the data field value. Only set for SignalData.
	Payload string

	// Index is the per-extractor index of accepted data payloads.
	// Only set for SignalData.
	Index int

	// LineIndex is the index of the Line the signal came from.
	LineIndex int
}
