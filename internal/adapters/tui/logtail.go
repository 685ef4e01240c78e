package tui

import (
	"bytes"
	"strings"
)

// DefaultTailLines bounds the output kept per task.
const DefaultTailLines = 1000

// LogTail keeps the last lines written to it. A carriage return rewinds the
// current line, so progress bars collapse into their final state.
type LogTail struct {
	limit   int
	lines   []string
	current strings.Builder
	// pendingCR is set when a chunk ended in '\r' that may start a "\r\n".
	pendingCR bool
}

// NewLogTail creates a LogTail holding at most limit complete lines.
func NewLogTail(limit int) *LogTail {
	if limit <= 0 {
		limit = DefaultTailLines
	}
	return &LogTail{limit: limit}
}

// Write appends p.
func (l *LogTail) Write(p []byte) (int, error) {
	n := len(p)
	if l.pendingCR && len(p) > 0 {
		l.pendingCR = false
		if p[0] == '\n' {
			l.push()
			p = p[1:]
		} else {
			l.current.Reset()
		}
	}
	for len(p) > 0 {
		idx := bytes.IndexAny(p, "\r\n")
		if idx < 0 {
			l.current.Write(p)
			break
		}
		l.current.Write(p[:idx])
		switch {
		case p[idx] == '\n':
			l.push()
		case idx+1 == len(p):
			l.pendingCR = true
		case p[idx+1] == '\n':
			l.push()
			idx++
		default:
			l.current.Reset()
		}
		p = p[idx+1:]
	}
	return n, nil
}

func (l *LogTail) push() {
	l.lines = append(l.lines, l.current.String())
	l.current.Reset()
	if over := len(l.lines) - l.limit; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
}

// Tail returns up to n of the most recent lines, including the unterminated one.
func (l *LogTail) Tail(n int) []string {
	all := l.lines
	if l.current.Len() > 0 {
		all = append(all[:len(all):len(all)], l.current.String())
	}
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the number of lines held.
func (l *LogTail) Len() int {
	n := len(l.lines)
	if l.current.Len() > 0 {
		n++
	}
	return n
}
