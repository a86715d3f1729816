package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/robotalks/sensorlink/pkg/event"
	fx "github.com/robotalks/sensorlink/pkg/framework"
	"github.com/robotalks/sensorlink/pkg/monitor"
	"github.com/robotalks/sensorlink/pkg/msgs"
	"github.com/robotalks/sensorlink/pkg/pixel"
	"github.com/robotalks/sensorlink/pkg/sink/csvlog"
	"github.com/robotalks/sensorlink/pkg/sink/mqtt"
	"github.com/robotalks/sensorlink/pkg/sink/rawlog"
)

var (
	mqttURL    = "mqtt://localhost:1883/sensorlink/"
	deviceID   = "+"
	replayPath string
	realtime   bool
	csvPath    string
)

func init() {
	if val := os.Getenv("SENSORLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&deviceID, "device-id", deviceID, "Device to monitor, + for all.")
	flag.StringVar(&replayPath, "replay", replayPath, "Replay a capture file instead of subscribing.")
	flag.BoolVar(&realtime, "realtime", realtime, "Replay with the recorded timing.")
	flag.StringVar(&csvPath, "csv", csvPath, "Also append telemetry to a CSV sensor log.")
}

// printer logs every event of a device.
type printer struct {
	mon *monitor.Monitor
	csv *csvlog.Logger
}

func (p *printer) DeviceEvent(deviceID string, typed *msgs.Typed) {
	log.Printf("%s: [%s] %s", deviceID, typed.Type, describe(typed.Event))
	p.mon.Emit(typed.Event)
	if p.csv != nil {
		p.csv.Emit(typed.Event)
	}
	if st := p.mon.Status(); st.Alert && typed.Type != event.StatusType {
		log.Printf("%s: ALERT! %s %s", deviceID, st.PlantState, describe(typed.Event))
	}
}

func (p *printer) DeviceOnline(deviceID string, online bool) {
	log.Printf("%s: online=%v", deviceID, online)
}

func describe(ev event.Event) string {
	switch e := ev.(type) {
	case *pixel.Frame:
		return fmt.Sprintf("%dx%d", e.Width, e.Height)
	case *event.Status:
		return e.Message
	case fmt.Stringer:
		return e.String()
	case error:
		return e.Error()
	}
	return ""
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	p := &printer{mon: monitor.New(monitor.DefaultConfig())}
	if csvPath != "" {
		logger, err := csvlog.Open(csvPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer logger.Close()
		p.csv = logger
	}

	runner := fx.NewRunner().HandleSignals()
	runner.StopOnExit = true
	if replayPath != "" {
		r, err := rawlog.Open(replayPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer r.Close()
		runner.Go(&rawlog.Replay{
			Reader: r,
			Sink: event.SinkFunc(func(ev event.Event) {
				p.DeviceEvent(replayPath, &msgs.Typed{Type: ev.EventType(), Event: ev})
			}),
			Realtime: realtime,
		})
	} else {
		q, err := mqtt.NewQueueFromURL(mqttURL)
		if err != nil {
			log.Fatalln(err)
		}
		mqtt.SubscribeEvents(q, deviceID, p)
		runner.Go(fx.NamedRun("mqtt", fx.RunFunc(func(ctx context.Context) error {
			token := q.Connect()
			token.Wait()
			if err := token.Error(); err != nil {
				return err
			}
			<-ctx.Done()
			return q.Close()
		})))
	}
	if err := runner.Wait(); err != nil && err != io.EOF {
		log.Println(err)
	}
}
