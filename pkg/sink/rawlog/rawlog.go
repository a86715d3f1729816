// Package rawlog captures link events into a binary log of CBOR envelopes
// and replays them.
//
// A log starts with an 8-byte magic followed by records of
// [8-byte little-endian unix nanos][4-byte little-endian length][CBOR envelope].
package rawlog

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/msgs"
)

// Magic identifies a capture file.
const Magic = "SNSLRAW1"

const recordHeaderSize = 12

// MaxRecordSize bounds a single record read back from a log.
const MaxRecordSize = 16 << 20

var (
	// ErrBadMagic indicates the input is not a capture file.
	ErrBadMagic = errors.New("bad rawlog magic")
	// ErrWriterClosed indicates a write after Close.
	ErrWriterClosed = errors.New("rawlog writer is closed")
)

// Writer appends events to a capture. It is safe for concurrent use.
type Writer struct {
	lock   sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewWriter writes the magic to w and returns a Writer.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriterSize(w, 1<<20)
	if _, err := bw.WriteString(Magic); err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return &Writer{w: bw}, nil
}

// Create creates a capture file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Record appends a typed event.
func (w *Writer) Record(typed *msgs.Typed) error {
	payload, err := typed.EncodeCBOR()
	if err != nil {
		return err
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.w == nil {
		return ErrWriterClosed
	}
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(typed.Time.UnixNano()))
	binary.LittleEndian.PutUint32(header[8:], uint32(len(payload)))
	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	return w.w.Flush()
}

// Emit implements event.Sink.
func (w *Writer) Emit(ev event.Event) {
	typed, err := msgs.TypedFrom(ev)
	if err == nil {
		err = w.Record(typed)
	}
	if err != nil {
		glog.Errorf("rawlog record %s error: %v", ev.EventType(), err)
	}
}

// Close flushes the capture and closes the file opened by Create.
func (w *Writer) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.w == nil {
		return nil
	}
	err := w.w.Flush()
	w.w = nil
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads records back from a capture.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
}

// NewReader checks the magic and returns a Reader.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if string(magic) != Magic {
		return nil, ErrBadMagic
	}
	return &Reader{r: br}, nil
}

// Open opens a capture file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next reads the next record. It returns io.EOF at the end of the capture;
// a truncated trailing record is also reported as io.EOF.
func (r *Reader) Next() (*msgs.Typed, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[8:])
	if size > MaxRecordSize {
		return nil, fmt.Errorf("rawlog record of %d bytes exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	typed, err := msgs.DecodeCBOR(payload)
	if err != nil {
		return nil, err
	}
	if typed.Time.IsZero() {
		typed.Time = time.Unix(0, int64(binary.LittleEndian.Uint64(header[:8]))).UTC()
	}
	return typed, nil
}

// Close closes the file opened by Open.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Replay emits every recorded event into Sink.
type Replay struct {
	Reader *Reader
	Sink   event.Sink
	// Realtime reproduces the recorded gaps between events.
	Realtime bool
}

// Name implements framework.Named.
func (p *Replay) Name() string { return "replay" }

// Run implements framework.Runnable. It returns io.EOF when the capture
// is exhausted.
func (p *Replay) Run(ctx context.Context) error {
	var last time.Time
	for {
		typed, err := p.Reader.Next()
		if err != nil {
			return err
		}
		if p.Realtime && !last.IsZero() {
			if gap := typed.Time.Sub(last); gap > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(gap):
				}
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		last = typed.Time
		p.Sink.Emit(typed.Event)
	}
}
