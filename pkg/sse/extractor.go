package sse

import "strings"

// Extractor classifies framed lines into SSE signals.
//
// Only the "data" field matters here. "event:", "id:" and "retry:" lines as
// well as any other shapes are ignored; they are counted so callers can tell
// when an upstream starts speaking a protocol this package does not handle.
type Extractor struct {
	payloads int
	ignored  int
	comments int
}

// NewExtractor returns an Extractor with zeroed counters.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the Signal for a single line.
func (e *Extractor) Extract(line Line) Signal {
	text := line.Text

	switch {
	case text == "":
		return Signal{Kind: SignalNone, LineIndex: line.Index}

	case strings.HasPrefix(text, ":"):
		e.comments++
		return Signal{Kind: SignalNone, LineIndex: line.Index}

	case strings.HasPrefix(text, "data:"):
		value := strings.TrimPrefix(text, "data:")
		// A single space after the colon is not part of the value.
		value = strings.TrimPrefix(value, " ")

		if value == DoneSentinel {
			return Signal{Kind: SignalDone, LineIndex: line.Index}
		}

		s := Signal{
			Kind:      SignalData,
			Payload:   value,
			Index:     e.payloads,
			LineIndex: line.Index,
		}
		e.payloads++
		return s

	default:
		e.ignored++
		return Signal{Kind: SignalNone, LineIndex: line.Index}
	}
}

// Payloads returns the number of data payloads accepted so far.
func (e *Extractor) Payloads() int {
	return e.payloads
}

// Ignored returns the number of non-blank, non-comment, non-data lines seen.
func (e *Extractor) Ignored() int {
	return e.ignored
}

// Comments returns the number of comment lines seen.
func (e *Extractor) Comments() int {
	return e.comments
}
