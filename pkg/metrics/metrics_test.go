package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordChunk(LinkCamera, 10)
	m.RecordChunk(LinkCamera, 5)
	m.SetBuffered(LinkCamera, 7)
	m.RecordEvent(&event.Status{})
	m.RecordFrameDropped(2)
	m.RecordLine()
	m.RecordBlockDiscarded()
	m.RecordQueueDropped(3)
	m.RecordQueueDropped(0)

	require.Equal(t, 15.0, testutil.ToFloat64(m.BytesRead.WithLabelValues(LinkCamera)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ChunksRead.WithLabelValues(LinkCamera)))
	require.Equal(t, 7.0, testutil.ToFloat64(m.Buffered.WithLabelValues(LinkCamera)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(event.StatusType)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.FramesDropped))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LinesRead))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BlocksDiscarded))
	require.Equal(t, 3.0, testutil.ToFloat64(m.QueueDropped))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordChunk(LinkTelemetry, 1)
	m.SetBuffered(LinkTelemetry, 1)
	m.RecordEvent(&event.Status{})
	m.RecordFrameDropped(1)
	m.RecordLine()
	m.RecordBlockDiscarded()
	m.RecordQueueDropped(1)
}
