package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/sensorlink/pkg/framework"
	"github.com/robotalks/sensorlink/pkg/monitor"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// FrameSource provides the latest frame and its sequence number.
type FrameSource interface {
	Load() (*pixel.Frame, uint64)
}

// Shell provides ishell backed interactive control of a running link.
// Components left nil disable the related commands.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell       *ishell.Shell
	Orientation *pixel.Orientation
	Frames      FrameSource
	Monitor     *monitor.Monitor
}

const (
	shellKey = "$shell"
	prompt   = "sensorlink > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ByteSwapCmd,
		&ChannelSwapCmd,
		&FlagsCmd,
		&FrameCmd,
		&StatusCmd,
		&HistoryCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the shell until the user exits. With args, they are processed
// as a single command instead.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return nil
	}
	s.Shell.Run()
	return nil
}

// Stop stops a running shell.
func (s *Shell) Stop() {
	s.Shell.Stop()
}

// Runnable runs the interactive shell alongside the links. It returns
// when the user exits the shell. A non-interactive shell waits for ctx.
func (s *Shell) Runnable() fx.Runnable {
	return fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
		if !s.Interactive {
			<-ctx.Done()
			return ctx.Err()
		}
		return fx.RunWithContextCancel(ctx, s.Stop, func() error { return s.Run() })
	}))
}

// ParseSwitch parses an on/off argument. No argument toggles current.
func ParseSwitch(args []string, current bool) (bool, error) {
	if len(args) == 0 {
		return !current, nil
	}
	switch strings.ToLower(args[0]) {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return current, fmt.Errorf("invalid switch %q, expect on or off", args[0])
}

// FormatFlags prints orientation flags like the viewer's exit summary.
func FormatFlags(f pixel.Flags) string {
	return fmt.Sprintf("byte_swap=%v channel_swap=%v", f.ByteSwap, f.ChannelSwap)
}

// SetByteSwap applies a byteswap command and returns the output.
func (s *Shell) SetByteSwap(args []string) (string, error) {
	if s.Orientation == nil {
		return "", fmt.Errorf("no camera link")
	}
	on, err := ParseSwitch(args, s.Orientation.Flags().ByteSwap)
	if err != nil {
		return "", err
	}
	s.Orientation.SetByteSwap(on)
	return s.flagsOutput()
}

// SetChannelSwap applies a chanswap command and returns the output.
func (s *Shell) SetChannelSwap(args []string) (string, error) {
	if s.Orientation == nil {
		return "", fmt.Errorf("no camera link")
	}
	on, err := ParseSwitch(args, s.Orientation.Flags().ChannelSwap)
	if err != nil {
		return "", err
	}
	s.Orientation.SetChannelSwap(on)
	return s.flagsOutput()
}

func (s *Shell) flagsOutput() (string, error) {
	if s.Orientation == nil {
		return "", fmt.Errorf("no camera link")
	}
	flags := s.Orientation.Flags()
	if s.OutputJSON {
		return s.jsonOutput(flags)
	}
	return FormatFlags(flags), nil
}

// FrameInfo summarizes the latest frame.
type FrameInfo struct {
	Seq    uint64    `json:"seq"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Mean   pixel.RGB `json:"mean"`
}

// FrameOutput returns the frame command output.
func (s *Shell) FrameOutput() (string, error) {
	if s.Frames == nil {
		return "", fmt.Errorf("no camera link")
	}
	frame, seq := s.Frames.Load()
	if frame == nil {
		return "no frame", nil
	}
	info := FrameInfo{Seq: seq, Width: frame.Width, Height: frame.Height, Mean: meanColor(frame)}
	if s.OutputJSON {
		return s.jsonOutput(&info)
	}
	return fmt.Sprintf("#%d %dx%d mean=(%d,%d,%d)",
		info.Seq, info.Width, info.Height, info.Mean.R, info.Mean.G, info.Mean.B), nil
}

// StatusOutput returns the status command output.
func (s *Shell) StatusOutput() (string, error) {
	if s.Monitor == nil {
		return "", fmt.Errorf("no telemetry link")
	}
	st := s.Monitor.Status()
	if s.OutputJSON {
		return s.jsonOutput(&st)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Link:        %s\n", st.Link)
	if st.LastError != "" {
		fmt.Fprintf(&b, "Last error:  %s\n", st.LastError)
	}
	fmt.Fprintf(&b, "Temperature: %s °C\n", formatFloat(st.Temp, 1))
	fmt.Fprintf(&b, "Humidity:    %s %%\n", formatFloat(st.Hum, 1))
	fmt.Fprintf(&b, "RSSI:        %s dBm\n", formatRSSI(st.RSSI))
	fmt.Fprintf(&b, "Diseased:    %s\n", formatFloat(st.Diseased, 2))
	fmt.Fprintf(&b, "Healthy:     %s\n", formatFloat(st.Healthy, 2))
	fmt.Fprintf(&b, "Plant State: %s\n", orDashes(st.PlantState))
	fmt.Fprintf(&b, "Soil State:  %s\n", orDashes(st.SoilState))
	if st.Alert {
		fmt.Fprintf(&b, "ALERT! Diseased %s\n", formatFloat(st.Diseased, 2))
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// HistoryOutput returns the last n history samples, all when n <= 0.
func (s *Shell) HistoryOutput(n int) (string, error) {
	if s.Monitor == nil {
		return "", fmt.Errorf("no telemetry link")
	}
	history := s.Monitor.History()
	if n > 0 && n < len(history) {
		history = history[len(history)-n:]
	}
	if s.OutputJSON {
		if history == nil {
			history = []monitor.Sample{}
		}
		return s.jsonOutput(history)
	}
	lines := make([]string, 0, len(history))
	for _, sample := range history {
		lines = append(lines, fmt.Sprintf("%s diseased=%.2f healthy=%.2f",
			sample.Time.Format("15:04:05"), sample.Diseased, sample.Healthy))
	}
	if len(lines) == 0 {
		return "no predictions", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Shell) jsonOutput(v interface{}) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func meanColor(f *pixel.Frame) pixel.RGB {
	if len(f.Pix) == 0 {
		return pixel.RGB{}
	}
	var r, g, b int
	for _, c := range f.Pix {
		r, g, b = r+int(c.R), g+int(c.G), b+int(c.B)
	}
	n := len(f.Pix)
	return pixel.RGB{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n)}
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return "---"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatRSSI(v *int32) string {
	if v == nil {
		return "---"
	}
	return strconv.Itoa(int(*v))
}

func orDashes(s string) string {
	if s == "" {
		return "---"
	}
	return s
}
