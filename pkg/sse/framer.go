package sse

import "bytes"

// Framer splits an ordered sequence of raw chunks into complete lines.
//
// Bytes are buffered until a "\n" is seen, so lines split across chunks,
// including splits inside a multi-byte UTF-8 sequence, come out whole.
// Blank lines are emitted like any other line since the SSE layer uses
// them as record separators.
type Framer struct {
	buf   []byte
	next  int
	bytes int64
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends chunk to the carry-over buffer and returns every line that
// is now complete. The returned slice is nil when no terminator was seen.
func (f *Framer) Push(chunk []byte) []Line {
	f.bytes += int64(len(chunk))
	f.buf = append(f.buf, chunk...)

	var lines []Line
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}

		lines = append(lines, f.line(f.buf[:i]))
		f.buf = f.buf[i+1:]
	}

	// Compact so a long stream of short lines does not pin the whole
	// history of the body in the backing array.
	if len(f.buf) == 0 {
		f.buf = nil
	} else if cap(f.buf) > 4*len(f.buf) && cap(f.buf) > 4096 {
		f.buf = append([]byte(nil), f.buf...)
	}

	return lines
}

// PushString is Push for string chunks.
func (f *Framer) PushString(chunk string) []Line {
	return f.Push([]byte(chunk))
}

// Flush returns the unterminated remainder of the buffer as a final line.
// It returns nil when the buffer is empty.
func (f *Framer) Flush() []Line {
	if len(f.buf) == 0 {
		return nil
	}

	l := f.line(f.buf)
	f.buf = nil
	return []Line{l}
}

// Lines returns how many lines have been emitted so far.
func (f *Framer) Lines() int {
	return f.next
}

// Bytes returns how many bytes have been pushed so far.
func (f *Framer) Bytes() int64 {
	return f.bytes
}

// Pending returns the number of buffered bytes not yet emitted as a line.
func (f *Framer) Pending() int {
	return len(f.buf)
}

func (f *Framer) line(raw []byte) Line {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	l := Line{Index: f.next, Text: string(raw)}
	f.next++
	return l
}
