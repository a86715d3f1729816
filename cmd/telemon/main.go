package main

import (
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/sensorlink/pkg/cli/sh"
	"github.com/robotalks/sensorlink/pkg/env"
	fx "github.com/robotalks/sensorlink/pkg/framework"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
	"github.com/robotalks/sensorlink/pkg/monitor"
	"github.com/robotalks/sensorlink/pkg/serialport"
	"github.com/robotalks/sensorlink/pkg/sink/csvlog"
)

var (
	csvPath    = csvlog.DefaultFilename
	monitorCfg = monitor.DefaultConfig()
	echo       bool
	shell      bool
)

func init() {
	serialport.SetDefaults(115200, time.Second)
	serialport.SetupFlags()
	env.SetupFlags()
	flag.StringVar(&csvPath, "csv", csvPath, "CSV sensor log, empty to disable")
	flag.Float64Var(&monitorCfg.AlertThreshold, "alert", monitorCfg.AlertThreshold, "Diseased probability raising an alert")
	flag.IntVar(&monitorCfg.HistorySize, "history", monitorCfg.HistorySize, "Number of predictions kept in history")
	flag.BoolVar(&echo, "echo", echo, "Log every received line")
	flag.BoolVar(&shell, "shell", shell, "Run the interactive shell")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	e := env.NewConfig().MustNewEnv()
	mon := monitor.New(monitorCfg)
	e.AddSink(mon)
	if csvPath != "" {
		logger, err := csvlog.Open(csvPath)
		if err != nil {
			glog.Exitf("open CSV log: %v", err)
		}
		e.AddSink(logger)
		e.AddCloser(logger)
	}
	if e.HTTP != nil {
		e.HTTP.Status = func() interface{} { return mon.Status() }
	}

	port, err := serialport.NewConfig().Open()
	if err != nil {
		glog.Exitf("open serial port: %v", err)
	}
	e.AddCloser(port)

	reader := telemetry.NewReader(port, e.Queue)
	reader.Metrics = e.Metrics
	reader.Echo = echo

	runnables := []fx.Runnable{reader}
	if shell {
		s := sh.New()
		s.Monitor = mon
		runnables = append(runnables, s.Runnable())
	}
	e.Start(runnables...)
	if err := e.Wait(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
