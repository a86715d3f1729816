package mqtt

import (
	"flag"
	"os"

	"github.com/denisbrodbeck/machineid"
)

// Config provides the options to publish events over MQTT.
type Config struct {
	// BrokerURL specifies the MQTT broker to use, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix
	BrokerURL string
	// DeviceID is the topic segment identifying this link.
	DeviceID string
	// Frames enables publishing of camera frames.
	Frames bool
}

var defaultConfig = Config{}

func init() {
	if val := os.Getenv("SENSORLINK_MQTT_URL"); val != "" {
		defaultConfig.BrokerURL = val
	}
	if val := os.Getenv("SENSORLINK_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	} else {
		defaultConfig.DeviceID = MachineID()
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.BrokerURL, "mqtt", defaultConfig.BrokerURL, "MQTT broker URL, e.g. mqtt://localhost:1883/sensorlink/")
	flag.StringVar(&defaultConfig.DeviceID, "device-id", defaultConfig.DeviceID, "Device ID used in MQTT topics")
	flag.BoolVar(&defaultConfig.Frames, "mqtt-frames", defaultConfig.Frames, "Publish camera frames over MQTT")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Enabled reports whether a broker is configured.
func (c *Config) Enabled() bool {
	return c.BrokerURL != ""
}

// NewPublisher creates a Publisher from the config.
func (c *Config) NewPublisher() (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(c.BrokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("sensorlink:" + c.DeviceID)
	}
	opts.SetBinaryWill(topicPrefix+c.DeviceID+"/"+OnlineTopic, []byte(offline), 1, true)
	p := NewPublisher(NewQueue(opts, topicPrefix), c.DeviceID)
	p.Frames = c.Frames
	return p, nil
}

// MachineID retrieves an ID identifying the machine, derived from the
// OS machine ID. It falls back to the hostname.
func MachineID() string {
	if id, err := machineid.ProtectedID("sensorlink"); err == nil {
		return id[:16]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "sensorlink"
}
