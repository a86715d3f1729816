package csvlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int32) *int32     { return &v }

func fixedClock() time.Time {
	return time.Date(2024, 5, 17, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
}

func TestLoggerRecords(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, true)
	require.NoError(t, err)
	l.Now = fixedClock

	l.Emit(&telemetry.TempHumidity{Temp: 23.5, Hum: 60.2})
	l.Emit(&event.Status{Message: "ignored"})
	l.Emit(&telemetry.Prediction{Diseased: fptr(0.91), Healthy: fptr(0.09), Soil: fptr(1), RSSI: iptr(-42), Temp: fptr(23.5), Hum: fptr(60.2)})
	l.Emit(&telemetry.Prediction{Healthy: fptr(0.5)})
	require.NoError(t, l.Close())

	require.Equal(t, "timestamp,temp,hum,diseased,healthy,soil,rssi\n"+
		"2024-05-17T08:00:00Z,23.5,60.2,,,,\n"+
		"2024-05-17T08:00:00Z,23.5,60.2,0.91,0.09,1,-42\n"+
		"2024-05-17T08:00:00Z,,,,0.5,,\n", buf.String())
}

func TestOpenWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	for i := 0; i < 2; i++ {
		l, err := Open(path)
		require.NoError(t, err)
		l.Now = fixedClock
		l.Emit(&telemetry.TempHumidity{Temp: float64(i), Hum: 50})
		require.NoError(t, l.Close())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "timestamp,temp,hum,diseased,healthy,soil,rssi\n"+
		"2024-05-17T08:00:00Z,0,50,,,,\n"+
		"2024-05-17T08:00:00Z,1,50,,,,\n", string(data))
}
