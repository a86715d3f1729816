package telemetry

import (
	"bytes"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultMaxLineLength bounds a pending line without newline.
const DefaultMaxLineLength = 4096

// Lines splits chunks into newline-terminated lines, carrying partial
// lines over to the next chunk. Lines are UTF-8 repaired and trimmed.
type Lines struct {
	MaxLineLength int

	buf      []byte
	overflow bool
}

// NewLines creates a Lines splitter.
func NewLines() *Lines {
	return &Lines{MaxLineLength: DefaultMaxLineLength}
}

// Feed appends a chunk and returns the complete lines in it.
func (l *Lines) Feed(chunk []byte) (lines []string) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			l.append(chunk)
			break
		}
		l.append(chunk[:i])
		if l.overflow {
			l.overflow = false
		} else {
			lines = append(lines, decodeLine(l.buf))
		}
		l.buf = l.buf[:0]
		chunk = chunk[i+1:]
	}
	return
}

// Pending returns the number of buffered bytes of an incomplete line.
func (l *Lines) Pending() int {
	return len(l.buf)
}

func (l *Lines) append(data []byte) {
	if l.overflow {
		return
	}
	if max := l.MaxLineLength; max > 0 && len(l.buf)+len(data) > max {
		glog.V(2).Infof("discard line longer than %d bytes", max)
		l.buf, l.overflow = l.buf[:0], true
		return
	}
	l.buf = append(l.buf, data...)
}

func decodeLine(raw []byte) string {
	s, _, err := transform.String(runes.ReplaceIllFormed(), string(raw))
	if err != nil {
		s = strings.ToValidUTF8(string(raw), "�")
	}
	return strings.TrimSpace(s)
}
