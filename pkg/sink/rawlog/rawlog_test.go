package rawlog

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
	"github.com/robotalks/sensorlink/pkg/msgs"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

type eventRecorder []event.Event

func (r *eventRecorder) Emit(ev event.Event) {
	*r = append(*r, ev)
}

func TestCaptureReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	w, err := Create(path)
	require.NoError(t, err)
	events := []event.Event{
		&event.Status{Message: "camera link started"},
		&pixel.Frame{Width: 1, Height: 1, Pix: []pixel.RGB{{R: 8, G: 4, B: 8}}},
		&telemetry.TempHumidity{Temp: 22, Hum: 48},
	}
	for _, ev := range events {
		w.Emit(ev)
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Equal(t, ErrWriterClosed, w.Record(&msgs.Typed{Type: event.StatusType, Event: &event.Status{}}))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	var rec eventRecorder
	err = (&Replay{Reader: r, Sink: &rec}).Run(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, eventRecorder(events), rec)
}

func TestReaderTimestamps(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	at := time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC)
	typed, err := msgs.TypedAt(&event.Status{Message: "x"}, at)
	require.NoError(t, err)
	require.NoError(t, w.Record(typed))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	got, err := r.Next()
	require.NoError(t, err)
	require.True(t, at.Equal(got.Time))
	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	w.Emit(&event.Status{Message: "x"})
	data := buf.Bytes()

	r, err := NewReader(bytes.NewReader(data[:len(data)-2]))
	require.NoError(t, err)
	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestReaderBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("STXMRAW1")))
	require.Equal(t, ErrBadMagic, err)
	_, err = NewReader(bytes.NewReader([]byte("SN")))
	require.Equal(t, ErrBadMagic, err)
}

func TestReplayCanceled(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	w.Emit(&event.Status{Message: "x"})
	r, err := NewReader(&buf)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var rec eventRecorder
	require.Equal(t, context.Canceled, (&Replay{Reader: r, Sink: &rec}).Run(ctx))
	require.Empty(t, rec)
}
