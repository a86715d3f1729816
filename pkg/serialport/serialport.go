// Package serialport opens the serial transport shared by the link readers.
package serialport

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// ErrNoPort indicates no port was given and none could be found.
var ErrNoPort = errors.New("no serial port found")

// Config provides the options to open a serial port.
type Config struct {
	// Name is the device, e.g. /dev/ttyUSB0 or COM3. Empty selects the
	// first enumerated port.
	Name        string
	BaudRate    int
	ReadTimeout time.Duration
}

var defaultConfig = Config{
	BaudRate:    115200,
	ReadTimeout: time.Second,
}

// listPorts enumerates the serial ports.
var listPorts = serial.GetPortsList

func init() {
	if val := os.Getenv("SENSORLINK_PORT"); val != "" {
		defaultConfig.Name = val
	}
}

// SetDefaults should be called in init by binaries to set the transport
// defaults of their link, before SetupFlags.
func SetDefaults(baudRate int, readTimeout time.Duration) {
	defaultConfig.BaudRate = baudRate
	defaultConfig.ReadTimeout = readTimeout
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "port", defaultConfig.Name, "Serial port, empty for the first one found")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
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

// List returns the names of the available serial ports.
func List() ([]string, error) {
	return listPorts()
}

// PortName returns the configured port or the first enumerated one.
func (c *Config) PortName() (string, error) {
	if c.Name != "" {
		return c.Name, nil
	}
	ports, err := listPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoPort
	}
	glog.Infof("using serial port %s", ports[0])
	return ports[0], nil
}

// Open opens the port in 8N1 mode with the configured read timeout.
func (c *Config) Open() (*Port, error) {
	name, err := c.PortName()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if c.ReadTimeout > 0 {
		if err := port.SetReadTimeout(c.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
		}
	}
	glog.Infof("opened %s at %d baud", name, c.BaudRate)
	return &Port{Name: name, port: port}, nil
}

// Port is an opened serial port. A read timeout is a zero-byte read.
type Port struct {
	Name string

	port serial.Port
}

// Read implements io.Reader. Reads on a closed port fail with os.ErrClosed.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	return n, mapError(err)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	return n, mapError(err)
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}

func mapError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return os.ErrClosed
	}
	return err
}
