// Package monitor keeps the live plant status derived from telemetry events.
package monitor

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// Defaults.
const (
	DefaultAlertThreshold = 0.8
	DefaultHistorySize    = 100
)

// Plant and soil states.
const (
	PlantDiseased = "Diseased"
	PlantHealthy  = "Healthy"
	SoilWet       = "Wet"
	SoilDry       = "Dry"
)

// Config defines the monitor settings.
type Config struct {
	AlertThreshold float64
	HistorySize    int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{AlertThreshold: DefaultAlertThreshold, HistorySize: DefaultHistorySize}
}

// Sample is one prediction kept in the history.
type Sample struct {
	Time     time.Time `json:"time"`
	Diseased float64   `json:"diseased"`
	Healthy  float64   `json:"healthy"`
}

// Status is a snapshot of the monitor.
type Status struct {
	Link        string    `json:"link"`
	LastError   string    `json:"last_error,omitempty"`
	Temp        *float64  `json:"temp"`
	Hum         *float64  `json:"hum"`
	Diseased    *float64  `json:"diseased"`
	Healthy     *float64  `json:"healthy"`
	Soil        *float64  `json:"soil"`
	RSSI        *int32    `json:"rssi"`
	PlantState  string    `json:"plant_state,omitempty"`
	SoilState   string    `json:"soil_state,omitempty"`
	Alert       bool      `json:"alert"`
	Predictions int       `json:"predictions"`
	Frames      int       `json:"frames"`
	Updated     time.Time `json:"updated"`
}

// Monitor is an event.Sink which tracks the latest readings, the plant
// state and a bounded history of predictions. It is safe for concurrent use.
type Monitor struct {
	Config Config
	// Now is the clock, replaceable in tests.
	Now func() time.Time

	lock    sync.RWMutex
	status  Status
	history []Sample
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &Monitor{Config: cfg, Now: time.Now}
}

// Emit implements event.Sink.
func (m *Monitor) Emit(ev event.Event) {
	m.lock.Lock()
	defer m.lock.Unlock()
	now := m.Now()
	switch e := ev.(type) {
	case *event.Status:
		m.status.Link = e.Message
	case error:
		m.status.Link = "error"
		m.status.LastError = e.Error()
	case *telemetry.TempHumidity:
		temp, hum := e.Temp, e.Hum
		m.status.Temp, m.status.Hum = &temp, &hum
	case *telemetry.Prediction:
		m.updatePrediction(e, now)
	case *pixel.Frame:
		m.status.Frames++
	default:
		return
	}
	m.status.Updated = now
}

func (m *Monitor) updatePrediction(p *telemetry.Prediction, now time.Time) {
	m.status.Diseased, m.status.Healthy, m.status.Soil, m.status.RSSI = p.Diseased, p.Healthy, p.Soil, p.RSSI
	if p.Temp != nil && p.Hum != nil {
		m.status.Temp, m.status.Hum = p.Temp, p.Hum
	}
	m.status.Predictions++

	diseased, healthy, soil := valueOf(p.Diseased), valueOf(p.Healthy), valueOf(p.Soil)
	m.history = append(m.history, Sample{Time: now, Diseased: diseased, Healthy: healthy})
	if over := len(m.history) - m.Config.HistorySize; over > 0 {
		m.history = append(m.history[:0], m.history[over:]...)
	}

	alert := diseased > m.Config.AlertThreshold
	if alert {
		m.status.PlantState = PlantDiseased
		if !m.status.Alert {
			glog.Warningf("ALERT! Diseased %.2f", diseased)
		}
	} else {
		m.status.PlantState = PlantHealthy
		if m.status.Alert {
			glog.Infof("alert cleared, diseased %.2f", diseased)
		}
	}
	m.status.Alert = alert

	if soil == 1 {
		m.status.SoilState = SoilWet
	} else {
		m.status.SoilState = SoilDry
	}
}

// Status returns a snapshot of the current status.
func (m *Monitor) Status() Status {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.status
}

// History returns a copy of the prediction history, oldest first.
func (m *Monitor) History() []Sample {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]Sample(nil), m.history...)
}

func valueOf(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
