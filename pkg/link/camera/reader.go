package camera

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link"
	"github.com/robotalks/sensorlink/pkg/metrics"
)

// Reader drives an Extractor from a transport and emits decoded frames.
type Reader struct {
	Source    io.Reader
	Extractor *Extractor
	Sink      event.Sink
	Metrics   *metrics.Metrics
	ChunkSize int

	dropped uint64
}

// NewReader creates a Reader.
func NewReader(src io.Reader, ext *Extractor, sink event.Sink) *Reader {
	return &Reader{
		Source:    src,
		Extractor: ext,
		Sink:      sink,
		ChunkSize: link.DefaultChunkSize,
	}
}

// Name implements framework.Named.
func (r *Reader) Name() string { return "camera" }

// Run implements framework.Runnable.
func (r *Reader) Run(ctx context.Context) error {
	r.emit(&event.Status{Message: "camera link started"})
	err := link.ReadLoop(ctx, r.Source, r.ChunkSize, link.HandleChunkFunc(r.handleChunk))
	if err != nil && err != context.Canceled && err != io.EOF {
		r.emit(&event.Error{Err: err})
	}
	r.emit(&event.Status{Message: "camera link stopped"})
	return err
}

func (r *Reader) handleChunk(_ context.Context, chunk []byte) error {
	r.Metrics.RecordChunk(metrics.LinkCamera, len(chunk))
	frames := r.Extractor.Feed(chunk)
	if dropped := r.Extractor.Dropped(); dropped != r.dropped {
		r.Metrics.RecordFrameDropped(int(dropped - r.dropped))
		r.dropped = dropped
	}
	for _, f := range frames {
		glog.V(4).Infof("frame %dx%d", f.Width, f.Height)
		r.Metrics.RecordEvent(f)
		r.emit(f)
	}
	r.Metrics.SetBuffered(metrics.LinkCamera, r.Extractor.Buffered())
	return nil
}

func (r *Reader) emit(ev event.Event) {
	if r.Sink != nil {
		r.Sink.Emit(ev)
	}
}
