// Package metrics exposes Prometheus counters for the link decoders.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/robotalks/sensorlink/pkg/event"
)

// Link labels.
const (
	LinkCamera    = "camera"
	LinkTelemetry = "telemetry"
)

// Metrics holds the decoder metrics. All methods are no-ops on a nil
// *Metrics so decoders can run without instrumentation.
type Metrics struct {
	BytesRead       *prometheus.CounterVec
	ChunksRead      *prometheus.CounterVec
	Buffered        *prometheus.GaugeVec
	Events          *prometheus.CounterVec
	FramesDropped   prometheus.Counter
	LinesRead       prometheus.Counter
	BlocksDiscarded prometheus.Counter
	QueueDropped    prometheus.Counter
}

// New creates and registers all metrics with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		BytesRead: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorlink_bytes_read_total",
			Help: "Total number of bytes read from a link",
		}, []string{"link"}),
		ChunksRead: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorlink_chunks_read_total",
			Help: "Total number of non-empty reads from a link",
		}, []string{"link"}),
		Buffered: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sensorlink_buffered_bytes",
			Help: "Bytes waiting in a link accumulator",
		}, []string{"link"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorlink_events_total",
			Help: "Total number of decoded events",
		}, []string{"type"}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sensorlink_frames_dropped_total",
			Help: "Total number of frame payloads dropped for length mismatch",
		}),
		LinesRead: f.NewCounter(prometheus.CounterOpts{
			Name: "sensorlink_lines_read_total",
			Help: "Total number of telemetry lines read",
		}),
		BlocksDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "sensorlink_blocks_discarded_total",
			Help: "Total number of prediction blocks left unterminated",
		}),
		QueueDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sensorlink_queue_dropped_total",
			Help: "Total number of events dropped by a full consumer queue",
		}),
	}
}

// RecordChunk records a read of n bytes from a link.
func (m *Metrics) RecordChunk(link string, n int) {
	if m == nil {
		return
	}
	m.ChunksRead.WithLabelValues(link).Inc()
	m.BytesRead.WithLabelValues(link).Add(float64(n))
}

// SetBuffered records the accumulator size of a link.
func (m *Metrics) SetBuffered(link string, n int) {
	if m == nil {
		return
	}
	m.Buffered.WithLabelValues(link).Set(float64(n))
}

// RecordEvent counts a decoded event by type.
func (m *Metrics) RecordEvent(ev event.Event) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(ev.EventType()).Inc()
}

// RecordFrameDropped counts dropped frame payloads.
func (m *Metrics) RecordFrameDropped(n int) {
	if m == nil {
		return
	}
	m.FramesDropped.Add(float64(n))
}

// RecordLine counts a telemetry line.
func (m *Metrics) RecordLine() {
	if m == nil {
		return
	}
	m.LinesRead.Inc()
}

// RecordBlockDiscarded counts an unterminated prediction block.
func (m *Metrics) RecordBlockDiscarded() {
	if m == nil {
		return
	}
	m.BlocksDiscarded.Inc()
}

// RecordQueueDropped counts events dropped by a full queue.
func (m *Metrics) RecordQueueDropped(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.QueueDropped.Add(float64(n))
}
