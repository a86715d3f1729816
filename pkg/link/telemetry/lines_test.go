package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLines(t *testing.T) {
	testCases := []struct {
		name    string
		chunks  []string
		expect  []string
		pending int
	}{
		{
			name:   "crlf",
			chunks: []string{"a\r\nb\r\n"},
			expect: []string{"a", "b"},
		},
		{
			name:    "partial",
			chunks:  []string{"Pred", "ictions:\nDis"},
			expect:  []string{"Predictions:"},
			pending: 3,
		},
		{
			name:   "split crlf",
			chunks: []string{"RSSI -42\r", "\n"},
			expect: []string{"RSSI -42"},
		},
		{
			name:   "invalid utf8",
			chunks: []string{"T: \xff1\n"},
			expect: []string{"T: �1"},
		},
		{
			name:   "blank",
			chunks: []string{"\n  \n"},
			expect: []string{"", ""},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLines()
			var lines []string
			for _, chunk := range tc.chunks {
				lines = append(lines, l.Feed([]byte(chunk))...)
			}
			require.Equal(t, tc.expect, lines)
			require.Equal(t, tc.pending, l.Pending())
		})
	}
}

func TestLinesOverflow(t *testing.T) {
	l := NewLines()
	l.MaxLineLength = 8
	require.Empty(t, l.Feed([]byte("0123")))
	require.Empty(t, l.Feed([]byte("456789")))
	require.Zero(t, l.Pending())
	require.Equal(t, []string{"ok"}, l.Feed([]byte("more\nok\n")))
	require.Equal(t, []string{"12345678"}, l.Feed([]byte("12345678\n")))
}
