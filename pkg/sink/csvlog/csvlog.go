// Package csvlog appends telemetry events to a CSV sensor log.
package csvlog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
)

// DefaultFilename is the log file used when none is given.
const DefaultFilename = "sensor_log.csv"

// Header is the first record of a log file.
var Header = []string{"timestamp", "temp", "hum", "diseased", "healthy", "soil", "rssi"}

// Logger writes one record per telemetry event. Absent values are
// written as empty fields. It is safe for concurrent use.
type Logger struct {
	// Now is the clock, replaceable in tests.
	Now func() time.Time

	lock   sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// New creates a Logger writing to w. The header is written when
// writeHeader is set.
func New(w io.Writer, writeHeader bool) (*Logger, error) {
	l := &Logger{Now: time.Now, w: csv.NewWriter(w)}
	if writeHeader {
		if err := l.write(Header); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Open appends to the log file at path, creating it with a header if
// it does not exist or is empty.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	l, err := New(f, info.Size() == 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.closer = f
	return l, nil
}

// Emit implements event.Sink.
func (l *Logger) Emit(ev event.Event) {
	var record []string
	switch e := ev.(type) {
	case *telemetry.TempHumidity:
		record = l.record(&e.Temp, &e.Hum, nil, nil, nil, nil)
	case *telemetry.Prediction:
		record = l.record(e.Temp, e.Hum, e.Diseased, e.Healthy, e.Soil, e.RSSI)
	default:
		return
	}
	if err := l.write(record); err != nil {
		glog.Errorf("csvlog write error: %v", err)
	}
}

// Close flushes and closes the underlying file, if opened by Open.
func (l *Logger) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.w.Flush()
	err := l.w.Error()
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
		l.closer = nil
	}
	return err
}

func (l *Logger) record(temp, hum, diseased, healthy, soil *float64, rssi *int32) []string {
	r := []string{
		l.Now().UTC().Format(time.RFC3339Nano),
		formatFloat(temp),
		formatFloat(hum),
		formatFloat(diseased),
		formatFloat(healthy),
		formatFloat(soil),
		"",
	}
	if rssi != nil {
		r[6] = strconv.FormatInt(int64(*rssi), 10)
	}
	return r
}

func (l *Logger) write(record []string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if err := l.w.Write(record); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
