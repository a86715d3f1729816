package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/cli/sh"
	"github.com/robotalks/sensorlink/pkg/env"
	"github.com/robotalks/sensorlink/pkg/event"
	fx "github.com/robotalks/sensorlink/pkg/framework"
	"github.com/robotalks/sensorlink/pkg/link/camera"
	"github.com/robotalks/sensorlink/pkg/pixel"
	"github.com/robotalks/sensorlink/pkg/serialport"
)

var (
	geometry = pixel.DefaultGeometry()
	flags    = pixel.Flags{ByteSwap: true, ChannelSwap: true}
	shell    = true
)

func init() {
	serialport.SetDefaults(921600, 10*time.Millisecond)
	serialport.SetupFlags()
	env.SetupFlags()
	flag.IntVar(&geometry.Width, "width", geometry.Width, "Frame width in pixels")
	flag.IntVar(&geometry.Height, "height", geometry.Height, "Frame height in pixels")
	flag.BoolVar(&flags.ByteSwap, "byteswap", flags.ByteSwap, "Swap the bytes of each pixel")
	flag.BoolVar(&flags.ChannelSwap, "chanswap", flags.ChannelSwap, "Swap red and blue channels")
	flag.BoolVar(&shell, "shell", shell, "Run the interactive shell to toggle orientation")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	port, err := serialport.NewConfig().Open()
	if err != nil {
		glog.Exitf("open serial port: %v", err)
	}
	e.AddCloser(port)

	orientation := pixel.NewOrientation(flags)
	slot := &camera.Slot{}
	reader := camera.NewReader(port, camera.NewExtractor(geometry, orientation), event.Mux{slot, e.Queue})
	reader.Metrics = e.Metrics
	if e.HTTP != nil {
		e.HTTP.FrameSource = slot
		e.HTTP.Orientation = orientation
	}

	runnables := []fx.Runnable{reader}
	if shell {
		s := sh.New()
		s.Orientation = orientation
		s.Frames = slot
		runnables = append(runnables, s.Runnable())
	}
	e.Start(runnables...)
	err = e.Wait()

	final := orientation.Flags()
	fmt.Printf("Final flags: byte_swap=%v, channel_swap=%v\n", final.ByteSwap, final.ChannelSwap)
	glog.Infof("frames decoded %d, dropped %d", reader.Extractor.Frames(), reader.Extractor.Dropped())
	if err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
