package link

import (
	"context"
	"errors"
	"io"
	"os"
)

// DefaultChunkSize is the read buffer size used when none is given.
const DefaultChunkSize = 4096

// ErrClosed indicates the transport was closed while reading.
var ErrClosed = errors.New("link closed")

// ChunkHandler consumes a chunk. The chunk is only valid during the call.
type ChunkHandler interface {
	HandleChunk(ctx context.Context, chunk []byte) error
}

// HandleChunkFunc is func type of ChunkHandler.
type HandleChunkFunc func(context.Context, []byte) error

// HandleChunk implements ChunkHandler.
func (f HandleChunkFunc) HandleChunk(ctx context.Context, chunk []byte) error {
	return f(ctx, chunk)
}

// IsTimeout reports whether err is a read timeout.
func IsTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// ReadLoop reads chunks from r and hands them to h until ctx is done,
// r fails or h fails. Cancellation is checked once per read.
// It returns ctx.Err() on cancellation, io.EOF at end of stream and
// the transport or handler error otherwise.
func ReadLoop(ctx context.Context, r io.Reader, chunkSize int, h ChunkHandler) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := r.Read(buf)
		if n > 0 {
			if herr := h.HandleChunk(ctx, buf[:n]); herr != nil {
				return herr
			}
		}
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			if errors.Is(err, os.ErrClosed) {
				return ErrClosed
			}
			return err
		}
	}
}
