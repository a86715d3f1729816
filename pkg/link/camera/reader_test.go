package camera

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/metrics"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// chunkStream delivers chunks like a serial port with a read timeout:
// a zero-byte read when nothing is pending.
type chunkStream struct {
	chunks [][]byte
	err    error
}

func (s *chunkStream) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, nil
	}
	n := copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

type eventRecorder struct {
	lock   sync.Mutex
	events []event.Event
}

func (r *eventRecorder) Emit(ev event.Event) {
	r.lock.Lock()
	r.events = append(r.events, ev)
	r.lock.Unlock()
}

func (r *eventRecorder) frames() (frames []*pixel.Frame) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		if f, ok := ev.(*pixel.Frame); ok {
			frames = append(frames, f)
		}
	}
	return
}

func TestReader(t *testing.T) {
	good := testPayload(1)
	data := stream().frame(good).frame(make([]byte, 3)).frame(good).bytes()
	src := &chunkStream{chunks: [][]byte{data[:20], data[20:50], data[50:]}, err: io.EOF}
	var rec eventRecorder
	m := metrics.New(prometheus.NewRegistry())
	r := NewReader(src, NewExtractor(testGeometry, nil), &rec)
	r.Metrics = m
	r.ChunkSize = 16

	err := r.Run(context.Background())
	require.Equal(t, io.EOF, err)
	require.Len(t, rec.frames(), 2)
	require.Equal(t, "camera link started", rec.events[0].(*event.Status).Message)
	require.Equal(t, "camera link stopped", rec.events[len(rec.events)-1].(*event.Status).Message)
	require.Equal(t, float64(len(data)), testutil.ToFloat64(m.BytesRead.WithLabelValues(metrics.LinkCamera)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(pixel.EventType)))
}

func TestReaderTransportError(t *testing.T) {
	failure := errors.New("device unplugged")
	var rec eventRecorder
	r := NewReader(&chunkStream{err: failure}, NewExtractor(testGeometry, nil), &rec)
	require.Equal(t, failure, r.Run(context.Background()))
	var errEvent *event.Error
	for _, ev := range rec.events {
		if e, ok := ev.(*event.Error); ok {
			errEvent = e
		}
	}
	require.NotNil(t, errEvent)
	require.Equal(t, failure, errEvent.Err)
}

func TestReaderStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(&chunkStream{}, NewExtractor(testGeometry, nil), nil)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("reader did not stop")
	}
}

func TestSlot(t *testing.T) {
	var s Slot
	f, seq := s.Load()
	require.Nil(t, f)
	require.Zero(t, seq)

	first := expectFrame(t, testPayload(1), pixel.Flags{})
	second := expectFrame(t, testPayload(2), pixel.Flags{})
	s.Emit(&event.Status{})
	s.Emit(first)
	f, seq = s.Load()
	require.Same(t, first, f)
	require.Equal(t, uint64(1), seq)
	s.Store(second)
	f, seq = s.Load()
	require.Same(t, second, f)
	require.Equal(t, uint64(2), seq)
}

func TestSlotConcurrent(t *testing.T) {
	var s Slot
	frames := []*pixel.Frame{
		expectFrame(t, testPayload(1), pixel.Flags{}),
		expectFrame(t, testPayload(2), pixel.Flags{}),
	}
	var wg sync.WaitGroup
	var partial int
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Store(frames[i%2])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if f, _ := s.Load(); f != nil && f != frames[0] && f != frames[1] {
				partial++
			}
		}
	}()
	wg.Wait()
	require.Zero(t, partial)
	_, seq := s.Load()
	require.Equal(t, uint64(1000), seq)
}
