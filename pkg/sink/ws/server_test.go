package ws

import (
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/sensorlink/pkg/link/camera"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
	"github.com/robotalks/sensorlink/pkg/metrics"
	"github.com/robotalks/sensorlink/pkg/msgs"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *camera.Slot) {
	slot := &camera.Slot{}
	reg := prometheus.NewRegistry()
	metrics.New(reg).RecordLine()
	s := NewServer("")
	s.FrameSource = slot
	s.Gatherer = reg
	s.Orientation = pixel.NewOrientation(pixel.Flags{ByteSwap: true})
	s.Status = func() interface{} { return map[string]int{"predictions": 2} }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv, slot
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestServerEvents(t *testing.T) {
	s, srv, _ := newTestServer(t)
	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "", "http://localhost/")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 10*time.Millisecond)

	s.Emit(&pixel.Frame{Width: 1, Height: 1, Pix: make([]pixel.RGB, 1)})
	s.Emit(&telemetry.TempHumidity{Temp: 23.5, Hum: 60.2})

	var msg string
	require.NoError(t, websocket.Message.Receive(conn, &msg))
	typed, err := msgs.DecodeJSON([]byte(msg))
	require.NoError(t, err)
	require.Equal(t, &telemetry.TempHumidity{Temp: 23.5, Hum: 60.2}, typed.Event)

	conn.Close()
	require.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServerFrame(t *testing.T) {
	_, srv, slot := newTestServer(t)
	resp, _ := get(t, srv.URL+"/frame.png")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	slot.Store(&pixel.Frame{Width: 2, Height: 1, Pix: []pixel.RGB{{R: 0xf8}, {B: 0xf8}}})
	resp, body := get(t, srv.URL+"/frame.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(strings.NewReader(string(body)))
	require.NoError(t, err)
	require.Equal(t, 6, img.Bounds().Dx())
	require.Equal(t, 3, img.Bounds().Dy())
	r, _, b, _ := img.At(5, 2).RGBA()
	require.Zero(t, r)
	require.Equal(t, uint32(0xf8f8), b)
}

func TestServerStatus(t *testing.T) {
	_, srv, slot := newTestServer(t)
	slot.Store(&pixel.Frame{})
	resp, body := get(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply struct {
		Monitor  map[string]int `json:"monitor"`
		Clients  int            `json:"clients"`
		FrameSeq uint64         `json:"frame_seq"`
		Flags    pixel.Flags    `json:"flags"`
	}
	require.NoError(t, json.Unmarshal(body, &reply))
	require.Equal(t, 2, reply.Monitor["predictions"])
	require.Equal(t, uint64(1), reply.FrameSeq)
	require.Equal(t, pixel.Flags{ByteSwap: true}, reply.Flags)
}

func TestServerMetricsAndHealth(t *testing.T) {
	_, srv, _ := newTestServer(t)
	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "sensorlink_lines_read_total 1")

	resp, body = get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))
}
