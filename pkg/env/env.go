// Package env wires the event consumers shared by the link binaries:
// the event queue, metrics, capture file, MQTT publisher and HTTP server.
package env

import (
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/robotalks/sensorlink/pkg/event"
	fx "github.com/robotalks/sensorlink/pkg/framework"
	"github.com/robotalks/sensorlink/pkg/metrics"
	"github.com/robotalks/sensorlink/pkg/sink/mqtt"
	"github.com/robotalks/sensorlink/pkg/sink/rawlog"
	"github.com/robotalks/sensorlink/pkg/sink/ws"
)

// Config provides common options of the event consumers.
type Config struct {
	// HTTPAddr enables the HTTP/WebSocket server, e.g. :8080.
	HTTPAddr string
	// CapturePath enables recording of all events into a capture file.
	CapturePath string
	QueueSize   int

	MQTT *mqtt.Config
}

var defaultConfig = Config{
	QueueSize: event.DefaultQueueSize,
}

// SetupFlags sets command line flags, including the MQTT flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "HTTP listen address for /ws, /frame.png, /status and /metrics")
	flag.StringVar(&defaultConfig.CapturePath, "capture", defaultConfig.CapturePath, "Record events into a capture file")
	flag.IntVar(&defaultConfig.QueueSize, "queue", defaultConfig.QueueSize, "Event queue size")
	mqtt.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.MQTT = mqtt.NewConfig()
	return &conf
}

// Env is the running environment of a link binary. Readers emit into
// Queue, and a pump delivers queued events to Sinks.
type Env struct {
	Config   *Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Queue    *event.Queue
	Sinks    event.Mux
	HTTP     *ws.Server
	Runner   *fx.Runner

	runnables []fx.Runnable
	closers   []io.Closer
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	e := &Env{
		Config:   c,
		Registry: reg,
		Metrics:  metrics.New(reg),
		Queue:    event.NewQueue(c.QueueSize),
		Runner:   fx.NewRunner().HandleSignals(),
	}
	e.Runner.StopOnExit = true
	e.Queue.OnDrop = func(ev event.Event) {
		glog.V(2).Infof("queue full, drop %s", ev.EventType())
		e.Metrics.RecordQueueDropped(1)
	}
	if c.CapturePath != "" {
		w, err := rawlog.Create(c.CapturePath)
		if err != nil {
			return nil, fmt.Errorf("create capture error: %w", err)
		}
		e.AddSink(w)
		e.closers = append(e.closers, w)
	}
	if c.MQTT != nil && c.MQTT.Enabled() {
		pub, err := c.MQTT.NewPublisher()
		if err != nil {
			return nil, fmt.Errorf("create MQTT publisher error: %w", err)
		}
		e.AddSink(pub)
		e.runnables = append(e.runnables, pub)
	}
	if c.HTTPAddr != "" {
		e.HTTP = ws.NewServer(c.HTTPAddr)
		e.HTTP.Gatherer = reg
		e.AddSink(e.HTTP)
		e.runnables = append(e.runnables, e.HTTP)
	}
	return e, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddSink adds a consumer of queued events.
func (e *Env) AddSink(sink event.Sink) {
	e.Sinks = append(e.Sinks, sink)
}

// AddCloser registers a resource closed by Wait.
func (e *Env) AddCloser(closer io.Closer) {
	e.closers = append(e.closers, closer)
}

// Start runs the readers together with the pump and the consumers.
// The first one to exit stops all.
func (e *Env) Start(readers ...fx.Runnable) {
	e.Runner.Go(fx.NamedRun("pump", &event.Pump{Queue: e.Queue, Sink: e.Sinks}))
	e.Runner.Go(e.runnables...)
	e.Runner.Go(readers...)
}

// Wait waits for all runnables and closes the registered resources.
func (e *Env) Wait() error {
	err := e.Runner.Wait()
	var errs fx.AggregatedError
	errs.Add(err)
	for _, closer := range e.closers {
		errs.Add(closer.Close())
	}
	if dropped := e.Queue.Dropped(); dropped > 0 {
		glog.Warningf("%d events dropped by a full queue", dropped)
	}
	return errs.Aggregate()
}
