package stream

import (
	"bytes"
	"strings"
)

// Reassembler turns a sequence of arbitrary chunks into complete lines.
//
// The buffer always holds at most one partial line: Feed consumes every byte
// up to and including the last newline and keeps the rest for the next call.
// A chunk without any newline only grows the buffer; chunk sizes are expected
// to be far larger than a line.
type Reassembler struct {
	buf []byte
}

// Feed appends chunk to the buffer and returns the complete lines it now
// holds, without their terminators.
func (r *Reassembler) Feed(chunk []byte) []string {
	r.buf = append(r.buf, chunk...)

	p := bytes.LastIndexByte(r.buf, '\n')
	if p < 0 {
		return nil
	}

	lines := splitLines(string(r.buf[:p]))
	n := copy(r.buf, r.buf[p+1:])
	r.buf = r.buf[:n]
	return lines
}

// Drain returns the trailing unterminated line, if any, and empties the
// buffer. Called once the source is exhausted.
func (r *Reassembler) Drain() []string {
	if len(r.buf) == 0 {
		return nil
	}
	line := strings.TrimSuffix(string(r.buf), "\r")
	r.buf = r.buf[:0]
	return []string{line}
}

// Buffered returns the number of bytes held back as a partial line.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
