package telemetry

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link"
	"github.com/robotalks/sensorlink/pkg/metrics"
)

// Reader drives Lines and an Accumulator from a transport and emits
// telemetry events.
type Reader struct {
	Source      io.Reader
	Lines       *Lines
	Accumulator *Accumulator
	Sink        event.Sink
	Metrics     *metrics.Metrics
	ChunkSize   int
	// Echo logs every received line, like a serial monitor.
	Echo bool
}

// NewReader creates a Reader.
func NewReader(src io.Reader, sink event.Sink) *Reader {
	return &Reader{
		Source:      src,
		Lines:       NewLines(),
		Accumulator: NewAccumulator(),
		Sink:        sink,
		ChunkSize:   link.DefaultChunkSize,
	}
}

// Name implements framework.Named.
func (r *Reader) Name() string { return "telemetry" }

// Run implements framework.Runnable.
// An unterminated block is discarded when Run returns.
func (r *Reader) Run(ctx context.Context) error {
	r.emit(&event.Status{Message: "telemetry link started"})
	err := link.ReadLoop(ctx, r.Source, r.ChunkSize, link.HandleChunkFunc(r.handleChunk))
	if r.Accumulator.Reset() {
		r.Metrics.RecordBlockDiscarded()
	}
	if err != nil && err != context.Canceled && err != io.EOF {
		r.emit(&event.Error{Err: err})
	}
	r.emit(&event.Status{Message: "telemetry link stopped"})
	return err
}

func (r *Reader) handleChunk(_ context.Context, chunk []byte) error {
	r.Metrics.RecordChunk(metrics.LinkTelemetry, len(chunk))
	for _, line := range r.Lines.Feed(chunk) {
		r.Metrics.RecordLine()
		if r.Echo {
			glog.Infof("[SERIAL] %s", line)
		} else {
			glog.V(4).Infof("[SERIAL] %s", line)
		}
		if ev := r.Accumulator.Feed(line); ev != nil {
			r.Metrics.RecordEvent(ev)
			r.emit(ev)
		}
	}
	r.Metrics.SetBuffered(metrics.LinkTelemetry, r.Lines.Pending())
	return nil
}

func (r *Reader) emit(ev event.Event) {
	if r.Sink != nil {
		r.Sink.Emit(ev)
	}
}
