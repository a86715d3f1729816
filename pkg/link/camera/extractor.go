// Package camera extracts RGB565 frames from the binary camera link.
package camera

import (
	"bytes"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/pixel"
)

// Frame markers sent by the camera firmware around each raw frame.
var (
	StartMarker = []byte("RAW_RGB565_START")
	EndMarker   = []byte("RAW_RGB565_END")
)

// Extractor accumulates bytes from the camera link and extracts frames
// delimited by StartMarker and EndMarker.
// It is not safe for concurrent use; one reader goroutine owns it.
type Extractor struct {
	Geometry    pixel.Geometry
	Orientation *pixel.Orientation
	// MaxBuffer bounds the accumulator while no complete frame is present.
	MaxBuffer int

	buf     []byte
	frames  uint64
	dropped uint64
}

// NewExtractor creates an Extractor.
func NewExtractor(g pixel.Geometry, o *pixel.Orientation) *Extractor {
	return &Extractor{
		Geometry:    g,
		Orientation: o,
		MaxBuffer:   DefaultMaxBuffer(g),
	}
}

// DefaultMaxBuffer allows up to four marker-wrapped frames to be pending.
func DefaultMaxBuffer(g pixel.Geometry) int {
	return 4 * (g.PayloadSize() + len(StartMarker) + len(EndMarker))
}

// Feed appends a chunk and returns all frames completed by it.
// Payloads of the wrong length are dropped silently.
func (e *Extractor) Feed(chunk []byte) (frames []*pixel.Frame) {
	e.buf = append(e.buf, chunk...)
	for {
		start := bytes.Index(e.buf, StartMarker)
		if start < 0 {
			break
		}
		payloadStart := start + len(StartMarker)
		end := bytes.Index(e.buf[payloadStart:], EndMarker)
		if end < 0 {
			break
		}
		payload := e.buf[payloadStart : payloadStart+end]
		frame, ok := pixel.DecodeFrame(payload, e.Geometry.Width, e.Geometry.Height, e.Orientation.Flags())
		e.consume(payloadStart + end + len(EndMarker))
		if !ok {
			e.dropped++
			glog.V(2).Infof("drop frame payload: %d bytes, expect %d", len(payload), e.Geometry.PayloadSize())
			continue
		}
		e.frames++
		frames = append(frames, frame)
	}
	e.bound()
	return
}

// Buffered returns the number of bytes waiting for a complete frame.
func (e *Extractor) Buffered() int {
	return len(e.buf)
}

// Frames returns the number of frames extracted.
func (e *Extractor) Frames() uint64 {
	return e.frames
}

// Dropped returns the number of payloads dropped for length mismatch.
func (e *Extractor) Dropped() uint64 {
	return e.dropped
}

// Reset discards all buffered bytes.
func (e *Extractor) Reset() {
	e.buf = e.buf[:0]
}

func (e *Extractor) consume(n int) {
	rest := copy(e.buf, e.buf[n:])
	e.buf = e.buf[:rest]
}

// bound trims the accumulator when it grows beyond MaxBuffer. It keeps the
// last start marker unless the bytes after it are already too long to be a
// valid frame, otherwise only a possible partial start marker is kept.
func (e *Extractor) bound() {
	if e.MaxBuffer <= 0 || len(e.buf) <= e.MaxBuffer {
		return
	}
	keep := len(StartMarker) - 1
	maxFrame := len(StartMarker) + e.Geometry.PayloadSize() + len(EndMarker)
	if start := bytes.LastIndex(e.buf, StartMarker); start >= 0 && len(e.buf)-start < maxFrame {
		keep = len(e.buf) - start
	}
	if keep >= len(e.buf) {
		return
	}
	glog.V(2).Infof("discard %d unsynced bytes", len(e.buf)-keep)
	e.consume(len(e.buf) - keep)
}
