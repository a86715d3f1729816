package mqtt

import (
	"context"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/msgs"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// OnlineTopic is the retained presence topic of a device.
const OnlineTopic = "online"

const (
	online  = "1"
	offline = "0"
)

// Publisher is an event.Sink publishing JSON envelopes to
// <device-id>/<event-type>. Status events are retained.
type Publisher struct {
	Queue    *Queue
	DeviceID string
	// Frames enables publishing of camera frames.
	Frames bool
}

// NewPublisher creates a Publisher.
func NewPublisher(q *Queue, deviceID string) *Publisher {
	p := &Publisher{Queue: q, DeviceID: deviceID}
	q.OnConnect = func(*Queue) { p.setOnline(true) }
	return p
}

// Topic returns the topic of an event type.
func (p *Publisher) Topic(eventType string) string {
	return p.DeviceID + "/" + eventType
}

// Emit implements event.Sink.
func (p *Publisher) Emit(ev event.Event) {
	if ev.EventType() == pixel.EventType && !p.Frames {
		return
	}
	typed, err := msgs.TypedFrom(ev)
	if err != nil {
		glog.Errorf("MQTT publish %s error: %v", ev.EventType(), err)
		return
	}
	payload, err := typed.EncodeJSON()
	if err != nil {
		glog.Errorf("MQTT encode %s error: %v", ev.EventType(), err)
		return
	}
	retain := ev.EventType() == event.StatusType
	p.Queue.PubWith(p.Topic(typed.Type), payload, 0, retain)
}

// Name implements framework.Named.
func (p *Publisher) Name() string { return "mqtt" }

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.setOnline(false).Wait()
	p.Queue.Close()
	return nil
}

func (p *Publisher) setOnline(on bool) paho.Token {
	state := offline
	if on {
		state = online
	}
	return p.Queue.PubWith(p.Topic(OnlineTopic), []byte(state), 1, true)
}
