package telemetry

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/metrics"
)

// chunkStream delivers chunks like a serial port with a read timeout.
type chunkStream struct {
	chunks []string
	err    error
}

func (s *chunkStream) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, s.err
	}
	n := copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

type eventRecorder []event.Event

func (r *eventRecorder) Emit(ev event.Event) {
	*r = append(*r, ev)
}

func (r eventRecorder) types() (types []string) {
	for _, ev := range r {
		types = append(types, ev.EventType())
	}
	return
}

const sessionLog = "boot\r\nT: 23.5 C H: 60.2\r\n" +
	"Predictions:\nDiseased: 0.91\nHealthy: 0.09\nSoil Moisture State: 1\nRSSI -42\n" +
	"Predictions:\nDiseased: 0.5\n"

func splitEvery(s string, n int) (chunks []string) {
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return append(chunks, s)
}

func TestReader(t *testing.T) {
	var rec eventRecorder
	m := metrics.New(prometheus.NewRegistry())
	r := NewReader(&chunkStream{chunks: splitEvery(sessionLog, 7), err: io.EOF}, &rec)
	r.Metrics = m
	r.ChunkSize = 5

	require.Equal(t, io.EOF, r.Run(context.Background()))
	require.Equal(t, []string{
		event.StatusType, TempHumidityType, PredictionType, event.StatusType,
	}, rec.types())

	p := rec[2].(*Prediction)
	require.InDelta(t, 0.91, *p.Diseased, 1e-9)
	require.InDelta(t, 0.09, *p.Healthy, 1e-9)
	require.InDelta(t, 1.0, *p.Soil, 1e-9)
	require.Equal(t, int32(-42), *p.RSSI)
	require.InDelta(t, 23.5, *p.Temp, 1e-9)
	require.InDelta(t, 60.2, *p.Hum, 1e-9)

	require.False(t, r.Accumulator.Collecting())
	require.Equal(t, float64(1), testutil.ToFloat64(m.BlocksDiscarded))
	require.Equal(t, float64(9), testutil.ToFloat64(m.LinesRead))
	require.Equal(t, float64(len(sessionLog)), testutil.ToFloat64(m.BytesRead.WithLabelValues(metrics.LinkTelemetry)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Events.WithLabelValues(PredictionType)))
}

func TestReaderTransportError(t *testing.T) {
	var rec eventRecorder
	unplugged := errors.New("unplugged")
	r := NewReader(&chunkStream{chunks: []string{"T: 1 C H: 2\n"}, err: unplugged}, &rec)

	require.Equal(t, unplugged, r.Run(context.Background()))
	require.Equal(t, []string{
		event.StatusType, TempHumidityType, event.ErrorType, event.StatusType,
	}, rec.types())
	require.ErrorIs(t, rec[2].(*event.Error), unplugged)
}

func TestReaderCanceled(t *testing.T) {
	var rec eventRecorder
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(strings.NewReader(sessionLog), &rec)

	require.Equal(t, context.Canceled, r.Run(ctx))
	require.Equal(t, []string{event.StatusType, event.StatusType}, rec.types())
}
