package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sensorlink/pkg/event"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int32) *int32     { return &v }

func feedAll(a *Accumulator, lines ...string) (events []event.Event) {
	for _, line := range lines {
		if ev := a.Feed(line); ev != nil {
			events = append(events, ev)
		}
	}
	return
}

func TestAccumulator(t *testing.T) {
	testCases := []struct {
		name   string
		lines  []string
		expect []event.Event
	}{
		{
			name:  "prediction block",
			lines: []string{"Predictions:", "Diseased: 0.91", "Healthy: 0.09", "Soil Moisture State: 1", "RSSI -42"},
			expect: []event.Event{&Prediction{
				Diseased: fptr(0.91), Healthy: fptr(0.09), Soil: fptr(1), RSSI: iptr(-42),
			}},
		},
		{
			name:  "reading inside block",
			lines: []string{"Pred(plant)", "Diseased: 0.2", "T: 23.5 C H: 60.2", "Healthy: 0.8", "RSSI -50"},
			expect: []event.Event{
				&TempHumidity{Temp: 23.5, Hum: 60.2},
				&Prediction{
					Diseased: fptr(0.2), Healthy: fptr(0.8), RSSI: iptr(-50),
					Temp: fptr(23.5), Hum: fptr(60.2),
				},
			},
		},
		{
			name:  "reading carried into prediction",
			lines: []string{"T: 20 C H: 40", "boot ok", "T: 21 C H: 41", "Received packet 'p'", "Diseased: 0.5", "RSSI -10"},
			expect: []event.Event{
				&TempHumidity{Temp: 20, Hum: 40},
				&TempHumidity{Temp: 21, Hum: 41},
				&Prediction{Diseased: fptr(0.5), RSSI: iptr(-10), Temp: fptr(21), Hum: fptr(41)},
			},
		},
		{
			name:  "unterminated block",
			lines: []string{"Predictions:", "Diseased: 0.91", "Healthy: 0.09"},
		},
		{
			name:  "trailer while idle is noise",
			lines: []string{"RSSI -42", "Diseased: 0.1"},
		},
		{
			name:  "start while collecting is interior",
			lines: []string{"Predictions:", "Diseased: 0.3", "Predictions:", "Healthy: 0.7", "RSSI -1"},
			expect: []event.Event{&Prediction{
				Diseased: fptr(0.3), Healthy: fptr(0.7), RSSI: iptr(-1),
			}},
		},
		{
			name:  "start line with rssi waits for trailer",
			lines: []string{"Received packet 'a' with RSSI -40", "Diseased: 0.6", "RSSI -41"},
			expect: []event.Event{&Prediction{
				Diseased: fptr(0.6), RSSI: iptr(-40),
			}},
		},
		{
			name:   "missing fields",
			lines:  []string{"Predictions:", "RSSI"},
			expect: []event.Event{&Prediction{}},
		},
		{
			name:  "consecutive blocks",
			lines: []string{"Predictions:", "Diseased: 0.1", "RSSI -1", "Predictions:", "Diseased: 0.2", "RSSI -2"},
			expect: []event.Event{
				&Prediction{Diseased: fptr(0.1), RSSI: iptr(-1)},
				&Prediction{Diseased: fptr(0.2), RSSI: iptr(-2)},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			events := feedAll(NewAccumulator(), tc.lines...)
			require.Equal(t, tc.expect, events)
		})
	}
}

func TestAccumulatorState(t *testing.T) {
	var a Accumulator
	require.False(t, a.Collecting())
	_, ok := a.LastReading()
	require.False(t, ok)

	require.Nil(t, a.Feed("Predictions:"))
	require.True(t, a.Collecting())
	require.NotNil(t, a.Feed("T: 1 C H: 2"))
	require.True(t, a.Collecting())
	reading, ok := a.LastReading()
	require.True(t, ok)
	require.Equal(t, TempHumidity{Temp: 1, Hum: 2}, reading)

	require.True(t, a.Reset())
	require.False(t, a.Collecting())
	require.False(t, a.Reset())
	require.Nil(t, a.Feed("RSSI -3"))
}
