// Package codefence splits streamed markdown into text and fenced code
// events without waiting for the stream to end.
package codefence

import (
	"strings"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

const fence = "```"

type state int

const (
	stateText state = iota
	stateMaybeFence
	stateInCode
	stateMaybeClose
)

// Segmenter is a character-level state machine over Delta content.
//
// Three backticks open a fence; the rest of that line is the language tag.
// Inside a block, three backticks followed only by spaces, tabs or CR up to
// a line break close it. Text and code are flushed at every transition and
// at the end of every delta, so the only lookahead carried between deltas
// is up to two backticks, a language tag, or a candidate closing fence.
type Segmenter struct {
	state   state
	ticks   int
	buf     strings.Builder
	lang    strings.Builder
	closing strings.Builder

	seq     int
	nextID  int
	blockID int
}

// New returns a Segmenter in the TEXT state.
func New() *Segmenter {
	return &Segmenter{}
}

// Predicate selects the events the segmenter reacts to.
func Predicate() eventstream.Predicate {
	return eventstream.Topics(llm.TopicDelta)
}

// Handle implements eventstream.Handler.
func (s *Segmenter) Handle(ev llm.Event, emit eventstream.Emit) {
	if d, ok := ev.(llm.Delta); ok {
		s.Write(d.Content, emit)
	}
}

// Write feeds one delta of content through the state machine.
func (s *Segmenter) Write(content string, emit eventstream.Emit) {
	for i := 0; i < len(content); i++ {
		c := content[i]

		switch s.state {
		case stateText:
			if c == '`' {
				s.ticks++
				if s.ticks == len(fence) {
					s.ticks = 0
					s.flushText(emit)
					s.state = stateMaybeFence
				}
				continue
			}
			s.releaseTicks()
			s.buf.WriteByte(c)

		case stateMaybeFence:
			if c == '\n' {
				lang := strings.TrimSpace(s.lang.String())
				s.lang.Reset()
				s.open(lang, emit)
				continue
			}
			s.lang.WriteByte(c)

		case stateInCode:
			if c == '`' {
				s.ticks++
				if s.ticks == len(fence) {
					s.ticks = 0
					s.flushCode(emit)
					s.state = stateMaybeClose
				}
				continue
			}
			s.releaseTicks()
			s.buf.WriteByte(c)

		case stateMaybeClose:
			switch c {
			case ' ', '\t', '\r':
				s.closing.WriteByte(c)
			case '\n':
				s.closing.Reset()
				s.close(emit)
			default:
				// False alarm: the fence was content. Reprocess c as code.
				s.buf.WriteString(fence)
				s.buf.WriteString(s.closing.String())
				s.closing.Reset()
				s.state = stateInCode
				i--
			}
		}
	}

	switch s.state {
	case stateText:
		s.flushText(emit)
	case stateInCode:
		s.flushCode(emit)
	}
}

// Finalize flushes anything buffered and force-closes an open block. An
// unfinished opening fence is emitted back as text; a pending closing fence
// is discarded. Calling Finalize again is a no-op.
func (s *Segmenter) Finalize(emit eventstream.Emit) {
	switch s.state {
	case stateText:
		s.releaseTicks()
		s.flushText(emit)
	case stateMaybeFence:
		s.buf.WriteString(fence)
		s.buf.WriteString(s.lang.String())
		s.lang.Reset()
		s.flushText(emit)
		s.state = stateText
	case stateInCode:
		s.releaseTicks()
		s.flushCode(emit)
		s.close(emit)
	case stateMaybeClose:
		s.closing.Reset()
		s.close(emit)
	}
}

// InCode reports whether a code block is currently open.
func (s *Segmenter) InCode() bool {
	return s.state == stateInCode || s.state == stateMaybeClose
}

// Blocks returns how many code blocks have been opened.
func (s *Segmenter) Blocks() int {
	return s.nextID
}

func (s *Segmenter) open(lang string, emit eventstream.Emit) {
	s.blockID = s.nextID
	s.nextID++
	emit(llm.CodeStart{Seq: s.next(), BlockID: s.blockID, Language: lang})
	s.state = stateInCode
}

func (s *Segmenter) close(emit eventstream.Emit) {
	emit(llm.CodeEnd{Seq: s.next(), BlockID: s.blockID})
	s.state = stateText
}

func (s *Segmenter) flushText(emit eventstream.Emit) {
	if s.buf.Len() == 0 {
		return
	}
	frag := s.buf.String()
	s.buf.Reset()
	emit(llm.TextFragment{Seq: s.next(), Fragment: frag})
}

func (s *Segmenter) flushCode(emit eventstream.Emit) {
	if s.buf.Len() == 0 {
		return
	}
	frag := s.buf.String()
	s.buf.Reset()
	emit(llm.CodeFragment{Seq: s.next(), BlockID: s.blockID, Fragment: frag})
}

// releaseTicks returns backticks that turned out not to be a fence to the
// pending buffer.
func (s *Segmenter) releaseTicks() {
	for ; s.ticks > 0; s.ticks-- {
		s.buf.WriteByte('`')
	}
}

func (s *Segmenter) next() int {
	seq := s.seq
	s.seq++
	return seq
}
