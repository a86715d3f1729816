package mqtt

import (
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/msgs"
)

// SubscribeEvents subscribes the events of a device, or of all devices
// when deviceID is "+", and delivers the decoded events to sink.
func SubscribeEvents(q *Queue, deviceID string, sink DeviceSink) *Subscription {
	return q.Sub(deviceID+"/+", func(topic string, payload []byte) {
		device, eventType := splitTopic(topic)
		if eventType == OnlineTopic {
			sink.DeviceOnline(device, string(payload) == online)
			return
		}
		typed, err := msgs.DecodeJSON(payload)
		if err != nil {
			glog.Warningf("drop message on %q: %v", topic, err)
			return
		}
		sink.DeviceEvent(device, typed)
	})
}

// DeviceSink receives events of remote devices.
type DeviceSink interface {
	DeviceEvent(deviceID string, typed *msgs.Typed)
	DeviceOnline(deviceID string, online bool)
}

func splitTopic(topic string) (device, eventType string) {
	i := strings.LastIndexByte(topic, '/')
	return topic[:max(i, 0)], topic[i+1:]
}
